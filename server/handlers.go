package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
	"github.com/teranos/capgen/pipeline"
	"github.com/teranos/capgen/taxonomy"
	"github.com/teranos/capgen/version"
)

const (
	csvFilename     = "capabilities.csv"
	outlineFilename = "capabilities_outline.csv"
)

// begin validates a generation request and derives its context. The
// returned release func must be called when the run ends.
func (s *Server) begin(w http.ResponseWriter, r *http.Request) (context.Context, string, func(), bool) {
	if !requireMethod(w, r, http.MethodGet) {
		return nil, "", nil, false
	}
	if s.getState() != ServerStateRunning {
		writeError(w, r, s.logger, errors.ErrServiceUnavailable)
		return nil, "", nil, false
	}
	industry, err := pipeline.ValidateIndustry(r.URL.Query().Get("industry"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return nil, "", nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout())
	untrack := s.track()
	return ctx, industry, func() {
		cancel()
		untrack()
	}, true
}

// HandleGenerate runs the full pipeline and answers with the CSV as an attachment.
func (s *Server) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, industry, release, ok := s.begin(w, r)
	if !ok {
		return
	}
	defer release()

	result, err := s.newDriver(s.logger).Run(ctx, industry, nil)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	data, err := result.CSV()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+csvFilename)
	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Warning-Count", strconv.Itoa(len(result.Warnings)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warnw("Failed to write CSV response", logger.FieldError, err, "run_id", result.RunID)
	}
}

// HandleOutline runs the L0 stage only and streams the L0×L1 outline, one
// flushed row at a time.
func (s *Server) HandleOutline(w http.ResponseWriter, r *http.Request) {
	ctx, industry, release, ok := s.begin(w, r)
	if !ok {
		return
	}
	defer release()

	outline, err := s.newDriver(s.logger).Outline(ctx, industry)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+outlineFilename)
	w.Header().Set("X-Run-ID", outline.RunID)
	w.Header().Set("X-Warning-Count", strconv.Itoa(len(outline.Warnings)))
	w.WriteHeader(http.StatusOK)

	// Headers are sent; a failure from here on can only end the stream
	if err := taxonomy.StreamOutline(ctx, w, outline.Industry); err != nil {
		s.logger.Warnw("Outline stream aborted", logger.FieldError, err, "run_id", outline.RunID)
	}
}

// HandleHealth reports liveness and build info
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      s.getState().String(),
		"version":     info.Version,
		"commit":      info.CommitHash,
		"active_runs": s.active.Load(),
	})
}
