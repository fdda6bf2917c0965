package web

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// datasetFile maps a dataset category to its output file name.
func (s *Server) datasetFile(name string) (string, bool) {
	opts := s.pipeline.Options()
	switch name {
	case core.CategoryMerged:
		return opts.MergedFile, true
	case core.CategoryValid:
		return opts.ResultFile, true
	case core.CategoryInvalid:
		return opts.DeletedFile, true
	}
	return "", false
}

// DatasetResponse is the JSON form of an output file.
type DatasetResponse struct {
	Name    string              `json:"name"`
	Fields  []string            `json:"fields"`
	Records []map[string]string `json:"records"`
	Reasons [][]string          `json:"reasons,omitempty"`
}

// handleDataset downloads the latest merged, valid or invalid output, as
// CSV or, with ?format=json, as records keyed by field name.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	file, ok := s.datasetFile(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: "unknown dataset", Message: fmt.Sprintf("unknown dataset %q", name), Code: "DS001",
		})
		return
	}

	if r.URL.Query().Get("format") == "json" {
		s.writeDatasetJSON(w, r, name, file)
		return
	}

	f, err := os.Open(s.pipeline.Path(file))
	if errors.Is(err, fs.ErrNotExist) {
		datasetNotWritten(w)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, info.Name()))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) writeDatasetJSON(w http.ResponseWriter, r *http.Request, name, file string) {
	schema := s.pipeline.Schema()

	records, reasons, err := core.ReadDataset(s.pipeline.Path(file), schema)
	if errors.Is(err, fs.ErrNotExist) {
		datasetNotWritten(w)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := DatasetResponse{
		Name:    name,
		Fields:  schema.Fields(),
		Records: make([]map[string]string, len(records)),
		Reasons: reasons,
	}
	for i, rec := range records {
		resp.Records[i] = schema.Map(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

func datasetNotWritten(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error: "dataset not written yet", Message: "Run the pipeline first", Code: "DS002",
	})
}
