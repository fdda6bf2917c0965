package web

import (
	"net/http"

	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// StatusResponse describes the pipeline for monitoring.
type StatusResponse struct {
	Fields  int                   `json:"fields"`
	Sink    string                `json:"sink"`
	Limiter core.RunLimiterStatus `json:"limiter"`
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns the schema size, sink and run limiter state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Fields:  s.pipeline.Schema().Len(),
		Sink:    s.cfg.Sink.Driver,
		Limiter: s.pipeline.Limiter().Status(),
	})
}

// handleRun executes one pipeline run and returns its report.
// A run already in progress yields 409 once the wait times out.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)

	report, err := s.pipeline.Run(ctx)
	if err != nil {
		respondErrorReport(w, r, err, 0, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleReport returns the most recent run report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.pipeline.LastReport()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
