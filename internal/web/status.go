package web

//go:generate templ generate

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// StatusPageData is what the status page renders.
type StatusPageData struct {
	Fields  int
	Sink    string
	Limiter core.RunLimiterStatus
	Report  *core.RunReport // nil before the first run
}

// handleStatusPage renders the HTML overview of the last run.
func (s *Server) handleStatusPage(w http.ResponseWriter, r *http.Request) {
	data := StatusPageData{
		Fields:  s.pipeline.Schema().Len(),
		Sink:    s.cfg.Sink.Driver,
		Limiter: s.pipeline.Limiter().Status(),
	}

	report, err := s.pipeline.LastReport()
	switch {
	case err == nil:
		data.Report = report
	case !errors.Is(err, core.ErrNoReport):
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := StatusPage(data).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// readPercent shows how much of a source was read, blank when unknown.
func readPercent(src core.SourceReport) string {
	if src.ReadPercent == 0 {
		return ""
	}
	return strconv.Itoa(src.ReadPercent) + "%"
}
