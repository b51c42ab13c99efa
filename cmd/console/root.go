package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentoven/agentoven/console/internal/config"
	"github.com/agentoven/agentoven/console/internal/console"
	"github.com/agentoven/agentoven/console/internal/mutation"
	"github.com/agentoven/agentoven/console/pkg/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Shared CLI flags
var (
	backendURL string
	logLevel   string
	assumeYes  bool
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "AgentOven admin console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLevel(logLevel)
		},
	}
	root.PersistentFlags().StringVar(&backendURL, "backend", "", "admin backend URL (overrides CONSOLE_BACKEND_URL)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides CONSOLE_LOG_LEVEL)")

	root.AddCommand(
		serveCmd(),
		usersCmd(),
		agentsCmd(),
		toolsCmd(),
		logsCmd(),
		usageCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if logLevel == "" {
		setLevel(cfg.LogLevel)
	}
	return cfg, nil
}

func setLevel(level string) {
	if level == "" {
		return
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("Unknown log level, keeping info")
		return
	}
	zerolog.SetGlobalLevel(lvl)
}

// pages builds standalone page controllers for one CLI invocation.
func pages() (*console.Console, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return console.New(server.NewDeps(cfg)), nil
}

// approve turns --yes into an approved context for destructive commands.
func approve(ctx context.Context) context.Context {
	if assumeYes {
		return mutation.Approve(ctx)
	}
	return ctx
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail reports err the way the console notifies it and returns it so
// cobra exits non-zero.
func fail(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", mutation.Message(err))
	}
	return err
}

// ── serve ────────────────────────────────────────────────────

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the console API for the browser front-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fail(err)
			}
			if port > 0 {
				cfg.Port = port
			}
			return serve(cfg)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides CONSOLE_PORT)")
	return cmd
}

func serve(cfg *config.Config) error {
	log.Info().Msg("AgentOven Console starting...")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer srv.Close(context.Background())

	go srv.Poll(ctx)
	go srv.Sweep(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().
		Int("port", cfg.Port).
		Str("backend", cfg.Backend.URL).
		Msg("Console ready")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
		return err
	}
	return nil
}
