package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goalchat/goalchat/internal/api"
	"github.com/goalchat/goalchat/internal/auth"
	"github.com/goalchat/goalchat/internal/config"
	"github.com/goalchat/goalchat/internal/conversation"
	"github.com/goalchat/goalchat/internal/docstore"
	"github.com/goalchat/goalchat/internal/gemini"
	"github.com/goalchat/goalchat/internal/log"
	"github.com/goalchat/goalchat/internal/observability"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // generation calls can be slow
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces", "error", err)
		}
	}()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}

	signer, err := auth.NewSigner([]byte(cfg.AuthSecret))
	if err != nil {
		return fmt.Errorf("initializing token signer: %w", err)
	}

	var generator api.Generator
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return fmt.Errorf("initializing gemini client: %w", err)
		}
		generator = client
		logger.Info("chat proxy enabled", "model", client.Model())
	} else {
		logger.Warn("no Gemini API key configured, chat proxy disabled")
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		DB:          db,
		Store:       conversation.New(db, logger),
		Signer:      signer,
		Generator:   generator,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		RateBurst:   cfg.RateBurst,
		TrustProxy:  cfg.TrustProxy,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.Addr,
		"api", "/api/*",
		"health", "/health, /ready",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}

// openStore selects the persistence backend: Firestore when a project is
// configured, otherwise the in-memory store for credential-less
// development.
func openStore(ctx context.Context, cfg *config.Config, logger log.Logger) (docstore.DB, error) {
	if cfg.FirestoreProject == "" {
		logger.Warn("no Firestore project configured, using in-memory store; data will not survive restart")
		return docstore.NewMemory(), nil
	}

	db, err := docstore.Open(ctx, cfg.FirestoreProject)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to Firestore", "project", cfg.FirestoreProject)
	return db, nil
}
