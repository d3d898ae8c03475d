package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/roundtable/catalog"
	"github.com/tailored-agentic-units/roundtable/history"
	"github.com/tailored-agentic-units/roundtable/server"
	"github.com/tailored-agentic-units/roundtable/upstream"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat proxy server",
		Long:  "Starts the HTTP proxy that hides the upstream API key, streams completions as SSE, and serves the agent catalog and conversation history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		slog.Warn("CHATGLM_API_KEY is not set; chat endpoints will answer with a setup notice")
	}

	up := upstream.New(cfg.APIKey,
		upstream.WithBaseURL(cfg.UpstreamURL),
		upstream.WithModel(cfg.Model),
	)

	registry := catalog.NewRegistry()
	seeds := catalog.DefaultSeeds()
	if cfg.SeedFile != "" {
		if seeds, err = catalog.LoadSeeds(cfg.SeedFile); err != nil {
			return err
		}
	}
	for _, a := range seeds {
		if err := registry.Register(a); err != nil {
			return err
		}
	}
	slog.Info("Agent catalog ready", "agents", registry.Len())

	histCfg := history.DefaultConfig()
	histCfg.Path = cfg.DBPath
	store, err := history.NewStore(&histCfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("Failed to close history store", "error", closeErr)
			}
		}()
		slog.Info("History store ready", "path", cfg.DBPath)
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     server.New(up, registry, store, cfg.AllowedOrigins).Router(),
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE responses stay open for the whole stream.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("Server stopped")
	return nil
}
