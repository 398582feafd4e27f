// Package web exposes the pipeline over HTTP: submit a defect report, fetch
// a run's outcome and transcript, list recent runs. It is a thin collaborator
// over the orchestrator and the stores; all pipeline semantics live below it.
package web

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/lucasnoah/patchfactory/internal/config"
	"github.com/lucasnoah/patchfactory/internal/db"
	"github.com/lucasnoah/patchfactory/internal/llm"
	"github.com/lucasnoah/patchfactory/internal/orchestrator"
	"github.com/lucasnoah/patchfactory/internal/pipeline"
	"github.com/lucasnoah/patchfactory/internal/stage"
	"github.com/lucasnoah/patchfactory/internal/tools"
)

// Server is the HTTP front end.
type Server struct {
	cfg     *config.Config
	service llm.Service
	store   *pipeline.Store
	db      *db.DB
	port    int
}

// NewServer creates a Server.
func NewServer(cfg *config.Config, service llm.Service, store *pipeline.Store, database *db.DB) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		store:   store,
		db:      database,
		port:    cfg.Web.Port,
	}
}

// Handler returns the route table, exported separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/runs", s.handleCreateRun)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/runs/{id}/transcript", s.handleGetTranscript)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return mux
}

// Start runs the server until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("patchfactory web listening on %s", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// newOrchestrator wires an orchestrator for one request. The codebase root
// may be overridden per request; everything else comes from config.
func (s *Server) newOrchestrator(codebaseRoot string) *orchestrator.Orchestrator {
	if codebaseRoot == "" {
		codebaseRoot = s.cfg.CodebaseRoot
	}
	facade := tools.NewFacade(codebaseRoot, s.cfg.PatchDir)
	runner := stage.NewRunner(s.service, facade)
	return orchestrator.New(runner, s.store, s.db, s.cfg.Stages)
}
