package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/fundflow/internal/auth"
	"github.com/mmynk/fundflow/internal/cache"
	"github.com/mmynk/fundflow/internal/config"
	"github.com/mmynk/fundflow/internal/directory"
	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/metrics"
	"github.com/mmynk/fundflow/internal/middleware"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/notify"
	"github.com/mmynk/fundflow/internal/service"
	"github.com/mmynk/fundflow/internal/storage"
	"github.com/mmynk/fundflow/internal/storage/dynamo"
	"github.com/mmynk/fundflow/internal/storage/postgres"
	"github.com/mmynk/fundflow/internal/storage/sqlite"
	"github.com/mmynk/fundflow/internal/validator"
	"github.com/mmynk/fundflow/pkg/api"
	"github.com/mmynk/fundflow/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logging.SetupWith(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.StoreDriver)

	repo := storage.NewRepository(store)
	m := metrics.New()

	var sender notify.Sender = notify.NewStoreSender(repo)
	if cfg.NotifySender == config.SenderLog {
		sender = notify.LogSender{}
	}
	worker := notify.NewWorker(sender, cfg.NotifyBuffer, m)
	worker.Start()
	defer worker.Shutdown()

	dir := directory.New(repo, cache.New[string, models.User](cfg.UserCacheTTL, nil))
	orchestrator := ledger.New(repo, worker, nil, ledger.WithRecorder(m))
	v := validator.New(cfg.Policy, m)
	refresher := ledger.NewRefresher(repo, orchestrator.Cache(), cfg.RefreshInterval, m)
	defer refresher.Stop()

	parser := llm.NewClient(cfg.LLM, nil, m)
	if err := parser.Check(); err != nil {
		slog.Warn("AI parsing unavailable", "error", err)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	var google *auth.GoogleAuthenticator
	if cfg.GoogleClientID != "" {
		verifier, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID)
		if err != nil {
			return fmt.Errorf("failed to initialize Google sign-in: %w", err)
		}
		google = auth.NewGoogleAuthenticator(verifier, repo)
		slog.Info("Google sign-in enabled")
	}

	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager, api.PublicProcedures...),
		middleware.LoggingInterceptor(),
		middleware.MetricsInterceptor(m),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewAuthServiceHandler(
		service.NewAuthService(auth.NewPasswordAuthenticator(repo), google, jwtManager, repo, dir), interceptors))
	mux.Handle(api.NewFundServiceHandler(
		service.NewFundService(repo, orchestrator, dir, service.WithRefresher(refresher)), interceptors))
	mux.Handle(api.NewTransactionServiceHandler(
		service.NewTransactionService(repo, orchestrator, v, parser, dir), interceptors))
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// h2c serves HTTP/2 without TLS, which Connect's gRPC protocol needs.
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.DocumentStore, error) {
	switch cfg.StoreDriver {
	case config.DriverDynamo:
		return dynamo.New(ctx, cfg.DynamoTable, cfg.AWSRegion)
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	default:
		return sqlite.New(cfg.DBPath)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms, "+middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
