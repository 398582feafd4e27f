package web

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/lucasnoah/patchfactory/internal/analytics"
	"github.com/lucasnoah/patchfactory/internal/db"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/schema"
	"github.com/lucasnoah/patchfactory/internal/trace"
)

// createRunRequest is the body of POST /api/runs.
type createRunRequest struct {
	Trace        string `json:"trace"`
	CodebaseRoot string `json:"codebase_root,omitempty"`
}

// runResponse is the JSON shape of a run outcome.
type runResponse struct {
	RunID       string                   `json:"run_id"`
	Succeeded   bool                     `json:"succeeded"`
	FailedStage string                   `json:"failed_stage,omitempty"`
	Reason      string                   `json:"reason,omitempty"`
	Summary     string                   `json:"summary"`
	StartedAt   string                   `json:"started_at"`
	FinishedAt  string                   `json:"finished_at"`
	Results     map[string]schema.Result `json:"results"`
}

func toRunResponse(o *pipeline.Outcome) runResponse {
	return runResponse{
		RunID:       o.RunID,
		Succeeded:   o.Succeeded,
		FailedStage: o.FailedStage,
		Reason:      o.Reason,
		Summary:     o.Summary,
		StartedAt:   o.StartedAt.Format(time.RFC3339),
		FinishedAt:  o.FinishedAt.Format(time.RFC3339),
		Results:     o.State.Results,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report, err := trace.Parse(req.Trace)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.CodebaseRoot != "" {
		if info, err := os.Stat(req.CodebaseRoot); err != nil || !info.IsDir() {
			httpError(w, http.StatusBadRequest, "codebase_root is not an existing directory")
			return
		}
	}

	outcome, err := s.newOrchestrator(req.CodebaseRoot).Run(r.Context(), report)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	status := http.StatusOK
	if !outcome.Succeeded {
		// The run completed but the pipeline failed; the outcome body says why.
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, toRunResponse(outcome))
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := s.db.RecentRuns(50)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(outcome))
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		httpError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome.State.Transcript)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")

	summary, err := analytics.QuerySummary(s.db, since)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	durations, err := analytics.QueryStageDurations(s.db, since)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	failures, err := analytics.QueryStageFailures(s.db, since)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	throughput, err := analytics.QueryThroughput(s.db, since)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":         summary,
		"stage_durations": durations,
		"stage_failures":  failures,
		"throughput":      throughput,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
