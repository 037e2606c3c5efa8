package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/sat-prep/internal/ai"
	"github.com/p-n-ai/sat-prep/internal/chat"
	"github.com/p-n-ai/sat-prep/internal/events"
	"github.com/p-n-ai/sat-prep/internal/platform/cache"
	"github.com/p-n-ai/sat-prep/internal/platform/config"
	"github.com/p-n-ai/sat-prep/internal/platform/database"
	"github.com/p-n-ai/sat-prep/internal/platform/metrics"
	"github.com/p-n-ai/sat-prep/internal/platform/sqlite"
	"github.com/p-n-ai/sat-prep/internal/practice"
	"github.com/p-n-ai/sat-prep/internal/roadmap"
	"github.com/p-n-ai/sat-prep/internal/server"
	"github.com/p-n-ai/sat-prep/internal/taxonomy"
	"github.com/p-n-ai/sat-prep/internal/tutor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "env", cfg.Env, "roadmap_store", cfg.Roadmap.Store)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Websockets are hijacked and not tracked by Shutdown.
	if err := a.gateway.StopAll(); err != nil {
		slog.Warn("failed to stop chat channels", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app holds the wired process and the resources it must release.
type app struct {
	handler http.Handler
	gateway *chat.Gateway
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var checks []server.Check

	var db *database.DB
	if cfg.Database.URL != "" {
		db, err = database.Open(ctx, cfg.Database.URL, database.PoolConfig{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks = append(checks, server.Check{Name: "database", Fn: db.HealthCheck})
	}

	var c *cache.Cache
	if cfg.Cache.URL != "" {
		c, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks = append(checks, server.Check{Name: "cache", Fn: c.HealthCheck})
	}

	m := metrics.New()

	var eventLog events.Logger = events.Nop{}
	if db != nil {
		eventLog = events.NewPostgres(db.Pool)
	}

	store, storeCheck, err := newRoadmapStore(ctx, cfg, db, a)
	if err != nil {
		return nil, err
	}
	if storeCheck != nil {
		checks = append(checks, *storeCheck)
	}
	if c != nil && cfg.Cache.RoadmapTTL > 0 {
		store = roadmap.NewCachedStore(store, c, cfg.Cache.RoadmapTTL)
	}

	tax := taxonomy.Default()
	roadmaps := roadmap.NewService(store,
		roadmap.WithTaxonomy(tax),
		roadmap.WithTieBreaker(roadmap.NewTieBreaker(cfg.Roadmap.TieBreak, cfg.Roadmap.Seed)),
		roadmap.WithEvents(eventLog),
		roadmap.WithMetrics(m),
	)

	bank, err := practice.LoadBank(cfg.Questions.BankPath)
	if err != nil {
		slog.Warn("question bank unavailable, serving no questions", "path", cfg.Questions.BankPath, "error", err)
		bank = practice.NewBank(nil)
	}

	engine, err := newTutor(cfg, db, c, bank, eventLog, m)
	if err != nil {
		return nil, err
	}

	ws := chat.NewWebSocketChannel(chat.WithConnectionHook(m.TutorConnected))
	a.gateway = chat.NewGateway()
	a.gateway.Register(chat.ChannelWebSocket, ws)
	if err := a.gateway.StartAll(ctx, tutorHandler(a.gateway, engine)); err != nil {
		return nil, fmt.Errorf("starting chat channels: %w", err)
	}

	if cfg.Session.TrustHeader && cfg.IsProduction() {
		slog.Warn("trusting the learner header in production, callers can act as any learner", "header", server.LearnerHeader)
	}
	srv, err := server.New(server.Config{
		Taxonomy: tax,
		Bank:     bank,
		Sessions: practice.NewSessionStore(
			practice.WithSessionTTL(cfg.Questions.SessionTTL),
			practice.WithSessionLimit(cfg.Questions.SessionLimit),
		),
		Roadmaps:           roadmaps,
		Tutor:              ws,
		Metrics:            m,
		Events:             eventLog,
		SessionSecret:      cfg.Session.Secret,
		SessionName:        cfg.Session.Name,
		SessionMaxAge:      cfg.Session.MaxAge,
		SecureCookies:      cfg.Session.Secure,
		TrustLearnerHeader: cfg.Session.TrustHeader,
		Checks:             checks,
	})
	if err != nil {
		return nil, err
	}
	a.handler = srv.Handler()
	return a, nil
}

// newRoadmapStore opens the configured roadmap persistence.
func newRoadmapStore(ctx context.Context, cfg *config.Config, db *database.DB, a *app) (roadmap.Store, *server.Check, error) {
	switch cfg.Roadmap.Store {
	case "postgres":
		if db == nil {
			return nil, nil, errors.New("postgres roadmap store needs a database")
		}
		s, err := roadmap.NewPostgresStore(db.Pool)
		return s, nil, err
	case "sqlite":
		sdb, err := sqlite.Open(ctx, cfg.Roadmap.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() { _ = sdb.Close() })
		s, err := roadmap.NewSQLiteStore(sdb.SQL)
		if err != nil {
			return nil, nil, err
		}
		return s, &server.Check{Name: "sqlite", Fn: sdb.HealthCheck}, nil
	case "worker":
		opts := []roadmap.WorkerOption{}
		if cfg.Roadmap.WorkerToken != "" {
			opts = append(opts, roadmap.WithWorkerToken(cfg.Roadmap.WorkerToken))
		}
		s := roadmap.NewWorkerStore(cfg.Roadmap.WorkerURL, opts...)
		return s, &server.Check{Name: "roadmap_worker", Fn: s.HealthCheck}, nil
	default:
		return roadmap.NewMemoryStore(), nil, nil
	}
}

func newTutor(cfg *config.Config, db *database.DB, c *cache.Cache, bank *practice.Bank, eventLog events.Logger, m *metrics.Metrics) (*tutor.Engine, error) {
	router := ai.NewRouter()
	if key := cfg.AI.Anthropic.APIKey; key != "" {
		p, err := ai.NewAnthropicProvider(key)
		if err != nil {
			return nil, fmt.Errorf("creating anthropic provider: %w", err)
		}
		router.Register("anthropic", p)
	}
	if key := cfg.AI.OpenAI.APIKey; key != "" {
		router.Register("openai", ai.NewOpenAIProvider(key))
	}
	if key := cfg.AI.DeepSeek.APIKey; key != "" {
		router.Register("deepseek", ai.NewDeepSeekProvider(key))
	}
	if key := cfg.AI.OpenRouter.APIKey; key != "" {
		router.Register("openrouter", ai.NewOpenRouterProvider(key))
	}
	if cfg.AI.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.AI.Ollama.URL))
	}
	if !router.HasProvider() {
		slog.Warn("no AI provider configured, tutor replies will use the fallback message")
	} else {
		slog.Info("AI providers registered", "providers", router.Names())
	}

	limit := int64(cfg.Tutor.DailyTokenBudget)
	var budget ai.BudgetChecker = ai.NewInMemoryBudget(limit)
	if c != nil {
		budget = ai.NewRedisBudget(c, limit)
	}

	var store tutor.ConversationStore = tutor.NewMemoryStore()
	if db != nil {
		ps, err := tutor.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		store = ps
	}

	return tutor.NewEngine(tutor.EngineConfig{
		AI:        router,
		Store:     store,
		Questions: bank,
		Budget:    budget,
		Events:    eventLog,
		Metrics:   m,
		Model:     cfg.AI.DefaultModel,
		MaxTokens: cfg.Tutor.MaxTokens,
	}), nil
}

// tutorHandler answers inbound chat messages on the channel they came from.
// Work stops when the sender's connection closes.
func tutorHandler(gw *chat.Gateway, engine *tutor.Engine) chat.Handler {
	return func(ctx context.Context, msg chat.InboundMessage) {
		if err := gw.SendTyping(ctx, msg.Channel, msg.LearnerID); err != nil {
			slog.Debug("typing indicator failed", "learner_id", msg.LearnerID, "error", err)
		}
		reply, err := engine.ProcessMessage(ctx, msg)
		if err != nil {
			slog.Warn("tutor message rejected", "channel", msg.Channel, "error", err)
			return
		}
		if err := gw.Send(ctx, chat.OutboundMessage{
			Channel:   msg.Channel,
			LearnerID: msg.LearnerID,
			Text:      reply,
		}); err != nil {
			slog.Warn("failed to deliver tutor reply", "learner_id", msg.LearnerID, "error", err)
		}
	}
}
