package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/core/tables"
)

const assetID = "A1234567-89AB-CDEF-0123-456789ABCDEF"

type testEnv struct {
	dir    string
	server *Server
	pipe   *core.Pipeline
	cfg    *config.Config
}

func newTestEnv(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()
	dir := t.TempDir()
	write(t, dir, "fields.csv", "id,status,ip\n")
	write(t, dir, "export.csv", "id,status,ip\n"+
		assetID+",Планируется,10.0.0.5\n"+
		"bad-id,Planned,999.1.1.1\n")

	pipe, err := core.NewPipeline(core.Options{
		DataDir:       dir,
		ReferenceFile: "fields.csv",
		MergedFile:    "input.csv",
		ResultFile:    "result.csv",
		DeletedFile:   "deleted.csv",
		ReportFile:    "report.yaml",
		RowCap:        100,
		Rules:         tables.Rules(),
		MaxWait:       50 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	cfg := &config.Config{
		Sink:   config.SinkConfig{Driver: config.SinkNone},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
	}
	if tweak != nil {
		tweak(cfg)
	}
	return &testEnv{dir: dir, server: NewServer(pipe, cfg), pipe: pipe, cfg: cfg}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRunAndReport(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN003", decodeError(t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report core.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, core.TriggerHTTP, report.Trigger)
	assert.NotEmpty(t, report.ClientIP)
	assert.Equal(t, 2, report.Counts.Merged)
	assert.Equal(t, 1, report.Counts.Valid)
	assert.Equal(t, 1, report.Counts.Invalid)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var last core.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, report.RunID, last.RunID)
}

func TestRun_NoSources(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, os.Remove(filepath.Join(env.dir, "export.csv")))

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "SRC002", resp.Code)
	require.NotNil(t, resp.Report, "failed runs carry their report")
	assert.NotEmpty(t, resp.Report.Error)
}

func TestRun_Busy(t *testing.T) {
	env := newTestEnv(t, nil)
	require.True(t, env.pipe.Limiter().TryAcquire("test"))
	defer env.pipe.Limiter().Release()

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "RUN001", decodeError(t, rec).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Limiter.Busy)
	assert.Equal(t, "test", status.Limiter.Holder)
	assert.Equal(t, 3, status.Fields)
}

func TestRun_RequiresAPIKey(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	})

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/run", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	// Read-only endpoints stay open.
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestDatasets(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/valid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DS002", decodeError(t, rec).Code)

	require.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil)).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/valid", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "id,status,ip\n"+assetID+",Планируется,10.0.0.5\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="result.csv"`)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/invalid", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,status,ip\nbad-id,"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DS001", decodeError(t, rec).Code)
}

func TestDatasets_JSON(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/valid?format=json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DS002", decodeError(t, rec).Code)

	require.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil)).Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/datasets/merged?format=json", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "merged", resp.Name)
	assert.Equal(t, []string{"id", "status", "ip"}, resp.Fields)
	assert.Equal(t, []map[string]string{
		{"id": assetID, "status": "Планируется", "ip": "10.0.0.5"},
		{"id": "bad-id", "status": "Planned", "ip": "999.1.1.1"},
	}, resp.Records)
	assert.Empty(t, resp.Reasons)
}

func TestStatusPage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No run yet.")

	runRec := env.do(httptest.NewRequest(http.MethodPost, "/api/run", nil))
	require.Equal(t, http.StatusOK, runRec.Code)
	var report core.RunReport
	require.NoError(t, json.Unmarshal(runRec.Body.Bytes(), &report))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, report.RunID)
	assert.Contains(t, body, "export.csv")
	assert.Contains(t, body, `href="/api/datasets/valid"`)
}

func TestStatusPage_EscapesSourceNames(t *testing.T) {
	var buf bytes.Buffer
	err := StatusPage(StatusPageData{Report: &core.RunReport{
		RunID:   "r1",
		Sources: []core.SourceReport{{Name: "<script>.csv"}},
	}}).Render(t.Context(), &buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "<script>.csv")
	assert.Contains(t, buf.String(), "&lt;script&gt;.csv")
}

func TestStatusPage_States(t *testing.T) {
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		data     StatusPageData
		contains []string
		absent   []string
	}{
		{
			name:     "idle without report",
			data:     StatusPageData{Fields: 27, Sink: "sqlite"},
			contains: []string{"Schema fields: 27", "Sink: sqlite", "<p>Idle</p>", "No run yet."},
			absent:   []string{"Last run"},
		},
		{
			name:     "running",
			data:     StatusPageData{Limiter: core.RunLimiterStatus{Busy: true, Holder: "watch", Since: since}},
			contains: []string{"<strong>Running</strong> (watch since 2026-01-02 03:04:05)"},
			absent:   []string{"<p>Idle</p>"},
		},
		{
			name: "failed run with truncated source",
			data: StatusPageData{Report: &core.RunReport{
				RunID: "r2",
				Error: "no sources to merge",
				Sources: []core.SourceReport{
					{Name: "big.csv", Rows: 2, Truncated: true, ReadPercent: 12, Missing: []string{"ip", "dns"}},
				},
				Counts: core.RunCounts{Merged: 2, DuplicateGroups: 1},
			}},
			contains: []string{
				"Last run r2",
				`<p class="err">no sources to merge</p>`,
				"<td>big.csv</td><td>2</td><td>true</td><td>12%</td><td>ip, dns</td>",
				`href="/api/datasets/invalid"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, StatusPage(tt.data).Render(t.Context(), &buf))
			body := buf.String()
			assert.True(t, strings.HasPrefix(body, "<!doctype html>"))
			for _, want := range tt.contains {
				assert.Contains(t, body, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, body, unwanted)
			}
		})
	}
}

// uploadRequest builds a multipart request with one part per file.
func uploadRequest(t *testing.T, files map[string]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sources", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadSources(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(uploadRequest(t, map[string]string{"new.csv": "\xEF\xBB\xBFid\n1\n"}, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data, err := os.ReadFile(filepath.Join(env.dir, "new.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data), "BOM is stripped on save")

	// Same name again without overwrite keeps the original.
	rec = env.do(uploadRequest(t, map[string]string{"new.csv": "id\n2\n"}, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Sources []UploadedSource `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sources, 1)
	assert.NotEqual(t, "new.csv", resp.Sources[0].Name)
	assert.True(t, strings.HasPrefix(resp.Sources[0].Name, "new_"))
	assert.Equal(t, int64(5), resp.Sources[0].Bytes)

	rec = env.do(uploadRequest(t, map[string]string{"new.csv": "id\n3\n"}, map[string]string{"overwrite": "true"}))
	require.Equal(t, http.StatusCreated, rec.Code)
	data, err = os.ReadFile(filepath.Join(env.dir, "new.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n3\n", string(data))
}

func TestUploadSources_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		status int
		code   string
	}{
		{"no files", nil, http.StatusBadRequest, "FILE004"},
		{"not csv", map[string]string{"inventory.xlsx": "x"}, http.StatusBadRequest, "FILE006"},
		{"hidden file", map[string]string{".hidden.csv": "id\n"}, http.StatusBadRequest, "FILE006"},
		{"pipeline output", map[string]string{"result.csv": "id\n"}, http.StatusBadRequest, "FILE007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(uploadRequest(t, tt.files, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestUploadSources_TooLarge(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Upload.MaxFileSize = 64 })

	rec := env.do(uploadRequest(t, map[string]string{"big.csv": strings.Repeat("x", 1024)}, nil))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)

	_, err := os.Stat(filepath.Join(env.dir, "big.csv"))
	assert.True(t, os.IsNotExist(err))
}
