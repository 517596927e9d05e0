// Package api exposes the watchface service over HTTP: asset upload,
// project generation and editing, project CRUD, and per-client API key
// management. JSON in, JSON out; caller identity travels in the X-Client-ID
// header.
package api

import (
	"errors"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/faceforge/faceforge/internal/agent"
	"github.com/faceforge/faceforge/internal/credential"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/project"
)

// Server timeouts. ReadHeaderTimeout guards against Slowloris; the write
// timeout must exceed the longest model call.
const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 16 * time.Minute
	IdleTimeout       = 120 * time.Second
)

// ServerConfig contains everything needed to build the HTTP surface.
type ServerConfig struct {
	Logger      log.Logger
	Projects    *project.Store    // Required
	Credentials *credential.Store // Required
	Provider    *agent.Provider   // Required

	GenerateTimeout time.Duration // Per model call; zero uses the agent default
	Limiter         *rate.Limiter // Optional: shared model-call rate limiter
	CORSOrigins     []string
}

// Server is the JSON API HTTP server.
type Server struct {
	mux http.Handler
}

// NewServer wires all routes and the middleware chain.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Projects == nil {
		return nil, errors.New("project store is required")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ph := &projectHandler{
		logger:   logger,
		projects: cfg.Projects,
		provider: cfg.Provider,
		timeout:  cfg.GenerateTimeout,
		limiter:  cfg.Limiter,
	}
	uh := &uploadHandler{logger: logger, projects: cfg.Projects}
	kh := &keyHandler{logger: logger, credentials: cfg.Credentials}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload-asset", uh.upload)

	mux.HandleFunc("POST /api/generate-project", ph.generate)
	mux.HandleFunc("POST /api/edit-project", ph.edit)
	mux.HandleFunc("GET /api/projects", ph.list)
	mux.HandleFunc("GET /api/project/{id}", ph.get)
	mux.HandleFunc("DELETE /api/project/{id}", ph.delete)
	mux.HandleFunc("DELETE /api/projects", ph.deleteAll)

	mux.HandleFunc("POST /api/apikey", kh.set)
	mux.HandleFunc("GET /api/apikey/{client_id}", kh.status)
	mux.HandleFunc("DELETE /api/apikey/{client_id}", kh.delete)
	mux.HandleFunc("GET /api/apikeys/stats", kh.stats)

	// Middleware stack, outermost first:
	//   Recovery → Logging → CORS → ClientID → Routes
	var handler http.Handler = mux
	handler = clientIDMiddleware()(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.mux }
