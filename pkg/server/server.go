// Package server wires the admin console: configuration, telemetry, the
// backend transport, the shared resource store, the mutation orchestrator
// and the console API.
//
// Usage:
//
//	srv, err := server.New(ctx, cfg)
//	defer srv.Close(ctx)
//	go srv.Poll(ctx)
//	go srv.Sweep(ctx)
//	http.ListenAndServe(":8090", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agentoven/agentoven/console/internal/api"
	"github.com/agentoven/agentoven/console/internal/api/handlers"
	"github.com/agentoven/agentoven/console/internal/config"
	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/internal/notify"
	"github.com/agentoven/agentoven/console/internal/sessions"
	"github.com/agentoven/agentoven/console/internal/store"
	"github.com/agentoven/agentoven/console/internal/telemetry"
	"github.com/agentoven/agentoven/console/internal/transport"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized console.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the shared cache of backend collections.
	Store *store.Store

	// Deps are the page dependencies, for callers that drive the pages
	// directly (the CLI).
	Deps console.Deps

	Config *config.Config

	handlers *handlers.Handlers
	shutdown func(context.Context) error
}

// New initializes every console component from cfg.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	deps := NewDeps(cfg)
	log.Info().Str("backend", cfg.Backend.URL).Msg("Backend transport initialized")

	h := handlers.New(deps, sessions.NewGate())
	h.Polling = cfg.Pages.DashboardPoll > 0

	return &Server{
		Handler:  api.NewRouter(cfg, h),
		Store:    deps.Store,
		Deps:     deps,
		Config:   cfg,
		handlers: h,
		shutdown: shutdown,
	}, nil
}

// NewDeps builds the transport, store and orchestrator without the HTTP
// layer.
func NewDeps(cfg *config.Config) console.Deps {
	var opts []transport.Option
	if cfg.Backend.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Backend.Timeout))
	}
	client := transport.New(cfg.Backend.URL, opts...)
	s := store.New(client, store.WithToolsEnabledOnly(cfg.Pages.ToolsEnabledOnly))
	return console.DepsFromConfig(cfg.Pages, s, mutation.New(mutation.WithNotifier(Notifier(cfg.Notify))))
}

// Notifier logs every mutation notice and, when a webhook is configured,
// forwards it there as well.
func Notifier(cfg config.NotifyConfig) mutation.Notifier {
	if cfg.WebhookURL == "" {
		return mutation.LogNotifier{}
	}
	log.Info().Str("url", cfg.WebhookURL).Bool("signed", cfg.Secret != "").Msg("Mutation webhook enabled")
	return notify.Fanout{mutation.LogNotifier{}, notify.NewWebhook(cfg.WebhookURL, cfg.Secret)}
}

// Poll refreshes the shared dashboard every DashboardPoll until ctx is done.
// It returns at once when polling is disabled.
func (s *Server) Poll(ctx context.Context) {
	every := s.Config.Pages.DashboardPoll
	if every <= 0 {
		return
	}
	if err := s.handlers.Board.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial dashboard load failed")
	}
	log.Info().Dur("every", every).Msg("Dashboard polling started")
	s.handlers.Board.Poll(ctx, every)
}

// Sweep closes idle sessions and their pages until ctx is done. It returns
// at once when SessionIdle is zero.
func (s *Server) Sweep(ctx context.Context) {
	if s.Config.SessionIdle <= 0 {
		return
	}
	sessions.NewJanitor(s.handlers.Gate, s.Config.SessionIdle, s.handlers.Drop).Start(ctx)
}

// Close closes every page controller and flushes telemetry.
func (s *Server) Close(ctx context.Context) error {
	s.handlers.Close()
	return s.shutdown(ctx)
}
