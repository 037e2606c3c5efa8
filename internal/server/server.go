// Package server exposes the practice, roadmap and tutor features over HTTP.
package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/p-n-ai/sat-prep/internal/chat"
	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/platform/metrics"
	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/roadmap"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

const readyTimeout = 2 * time.Second

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config holds the server's dependencies.
type Config struct {
	Taxonomy      *taxonomy.Taxonomy
	Bank          *practice.Bank
	Sessions      *practice.SessionStore
	Roadmaps      *roadmap.Service
	Tutor         *chat.WebSocketChannel // nil disables /ws/tutor
	Metrics       *metrics.Metrics
	Events        events.Logger
	SessionSecret string
	SessionName   string
	SessionMaxAge time.Duration
	SecureCookies bool
	// TrustLearnerHeader accepts LearnerHeader as the caller's identity.
	// Only enable it behind a gateway that sets the header itself.
	TrustLearnerHeader bool
	Checks             []Check
}

// Server is the HTTP API.
type Server struct {
	tax         *taxonomy.Taxonomy
	matcher     *practice.Matcher
	bank        *practice.Bank
	sessions    *practice.SessionStore
	roadmaps    *roadmap.Service
	tutor       *chat.WebSocketChannel
	metrics     *metrics.Metrics
	events      events.Logger
	cookies     sessions.Store
	sessionName string
	trustHeader bool
	validator   *requestValidator
	checks      []Check
}

// New builds a server. Roadmaps is required; a missing bank serves an
// empty question set.
func New(cfg Config) (*Server, error) {
	if cfg.Roadmaps == nil {
		return nil, fmt.Errorf("roadmap service is required")
	}
	tax := cfg.Taxonomy
	if tax == nil {
		tax = taxonomy.Default()
	}
	bank := cfg.Bank
	if bank == nil {
		bank = practice.NewBank(nil)
	}
	store := cfg.Sessions
	if store == nil {
		store = practice.NewSessionStore()
	}
	logger := cfg.Events
	if logger == nil {
		logger = events.Nop{}
	}
	name := cfg.SessionName
	if name == "" {
		name = "sat_session"
	}
	maxAge := cfg.SessionMaxAge
	if maxAge == 0 {
		maxAge = 30 * 24 * time.Hour
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = rand.Text()
		slog.Warn("no session secret configured, learner cookies will not survive a restart")
	}
	cookies, err := newCookieStore(secret, maxAge, cfg.SecureCookies)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}

	return &Server{
		tax:         tax,
		matcher:     practice.NewMatcher(tax),
		bank:        bank,
		sessions:    store,
		roadmaps:    cfg.Roadmaps,
		tutor:       cfg.Tutor,
		metrics:     cfg.Metrics,
		events:      logger,
		cookies:     cookies,
		sessionName: name,
		trustHeader: cfg.TrustLearnerHeader,
		validator:   newRequestValidator(),
		checks:      cfg.Checks,
	}, nil
}

// Handler returns the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}

	route("GET /healthz", handleHealthz)
	route("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	route("GET /api/taxonomy", s.handleTaxonomy)
	route("GET /api/taxonomy/resolve/{slug}", s.handleResolve)

	route("GET /api/practice/topics/{slug}/questions", s.handleTopicQuestions)
	route("POST /api/practice/questions/search", s.handleSearchQuestions)
	route("POST /api/practice/sessions", s.handleStartSession)
	route("GET /api/practice/sessions/{id}", s.handleGetSession)
	route("POST /api/practice/sessions/{id}/answers", s.handleAnswer)
	route("DELETE /api/practice/sessions/{id}", s.handleEndSession)

	route("GET /api/roadmap", s.handleGetRoadmap)
	route("POST /api/roadmap", s.handleGenerateRoadmap)
	route("PUT /api/roadmap/progress", s.handleSetProgress)
	route("DELETE /api/roadmap", s.handleDeleteRoadmap)

	if s.tutor != nil {
		route("GET /ws/tutor", s.handleTutorSocket)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if len(s.checks) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for _, c := range s.checks {
		if err := c.Fn(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": failed})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleTutorSocket(w http.ResponseWriter, r *http.Request) {
	learnerID, err := s.learnerID(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.tutor.Serve(w, r, learnerID)
}
