package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/AssetRecon/internal/core"
	"github.com/JonMunkholm/AssetRecon/internal/logging"
)

// maxMemory is the multipart form size kept in memory; larger parts spill to disk.
const maxMemory = 32 << 20

var (
	errNoFile = errors.New("no file provided")
	errNotCSV = errors.New("not a csv file")
)

// UploadedSource describes one saved source file.
type UploadedSource struct {
	Name     string `json:"name"`
	Original string `json:"original"`
	Bytes    int64  `json:"bytes"`
}

// handleUploadSources saves multipart "files" into the data directory.
// An existing file is kept unless overwrite=true; the upload is then
// stored under a suffixed name.
func (s *Server) handleUploadSources(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	for _, fh := range files {
		if err := s.checkUploadName(fh.Filename); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}

	// Uploads share the run limiter so a run never sees a half-written source.
	if err := s.pipeline.Limiter().Acquire(r.Context(), "upload"); err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer s.pipeline.Limiter().Release()

	overwrite := r.FormValue("overwrite") == "true"
	saved := make([]UploadedSource, 0, len(files))
	for _, fh := range files {
		src, err := s.saveSource(fh, overwrite)
		if err != nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		saved = append(saved, src)
	}

	log := logging.FromContext(r.Context())
	for _, src := range saved {
		log.Info("source uploaded", "name", src.Name, "bytes", src.Bytes)
		if src.Name == filepath.Base(s.pipeline.Options().ReferenceFile) {
			log.Warn("reference file replaced; restart to load the new schema")
		}
	}

	writeJSON(w, http.StatusCreated, map[string]any{"sources": saved})
}

// checkUploadName rejects anything that would not be discovered as a
// source or would clobber a pipeline output.
func (s *Server) checkUploadName(name string) error {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".csv") || strings.HasPrefix(base, ".") {
		return fmt.Errorf("%s: %w", base, errNotCSV)
	}

	opts := s.pipeline.Options()
	for _, out := range []string{opts.MergedFile, opts.ResultFile, opts.DeletedFile} {
		if strings.EqualFold(base, filepath.Base(out)) {
			return fmt.Errorf("%s is a pipeline output and cannot be uploaded", base)
		}
	}
	return nil
}

// saveSource writes one upload to the data directory, stripping a BOM and
// replacing invalid UTF-8.
func (s *Server) saveSource(fh *multipart.FileHeader, overwrite bool) (UploadedSource, error) {
	dir := s.pipeline.Options().DataDir
	name := filepath.Base(fh.Filename)
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil && !overwrite {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:8] + ext
	}

	in, err := fh.Open()
	if err != nil {
		return UploadedSource{}, err
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return UploadedSource{}, err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return UploadedSource{}, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, core.NewTextReader(in))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return UploadedSource{}, fmt.Errorf("save %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return UploadedSource{}, fmt.Errorf("save %s: %w", name, err)
	}

	return UploadedSource{Name: name, Original: fh.Filename, Bytes: n}, nil
}
