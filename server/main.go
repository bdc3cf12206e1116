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

	"github.com/powerskills-labs/powerskills-go/internal/gateway"
	"github.com/powerskills-labs/powerskills-go/internal/identity"
	"github.com/powerskills-labs/powerskills-go/internal/orchestration"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
	"github.com/powerskills-labs/powerskills-go/internal/platform/env"
	"github.com/powerskills-labs/powerskills-go/internal/platform/httpserver"
	"github.com/powerskills-labs/powerskills-go/internal/platform/objectstore"
	"github.com/powerskills-labs/powerskills-go/internal/platform/postgres"
	"github.com/powerskills-labs/powerskills-go/internal/skills"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("POWERSKILLS_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("POWERSKILLS_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := gateway.EnsureCollections(startupCtx, db); err != nil {
		cancel()
		logger.Error("collection setup failed", "error", err)
		os.Exit(1)
	}
	cancel()
	gw := gateway.NewPostgres(db)

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()
	reportStore, err := objectstore.NewMinioStoreWithClient(storeClient)
	if err != nil {
		logger.Error("object store init failed", "error", err)
		os.Exit(2)
	}

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}
	if authCfg.JWTSecret == "" {
		logger.Error("missing jwt secret", "env", "AUTH_JWT_SECRET")
		os.Exit(2)
	}
	issuer, err := auth.NewIssuer(authCfg)
	if err != nil {
		logger.Error("token issuer init failed", "error", err)
		os.Exit(2)
	}

	var authenticator auth.Authenticator
	switch authCfg.Mode {
	case auth.ModeLocal:
		authenticator = auth.NewLocalAuthenticator(issuer)
	case auth.ModeOIDC:
		oidcAuth, err := auth.NewOIDCAuthenticator(ctx, authCfg)
		if err != nil {
			logger.Error("oidc init failed", "error", err)
			os.Exit(2)
		}
		authenticator = oidcAuth
	case auth.ModeDev, auth.ModeDisabled:
		authenticator = auth.NewDevAuthenticator(authCfg)
	default:
		logger.Error("unsupported auth mode", "mode", string(authCfg.Mode))
		os.Exit(2)
	}

	orchCfg, err := orchestration.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid orchestration config", "error", err)
		os.Exit(2)
	}
	deriver, err := orchCfg.Deriver()
	if err != nil {
		logger.Error("chain deriver init failed", "error", err)
		os.Exit(2)
	}
	executor := orchestration.NewExecutor(ctx, gw, logger,
		orchestration.WithStepDelay(orchCfg.StepDelay),
		orchestration.WithReportStore(reportStore, storeCfg.BucketReports),
	)

	identitySvc := identity.New(gw, issuer)
	skillsSvc := skills.New(gw)
	orchestrationSvc := orchestration.NewService(gw, deriver, executor, logger, orchCfg.EnforceOwnership)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("powerskills"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"powerskills",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)

	api := newServerAPI(logger, identitySvc, skillsSvc, orchestrationSvc)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		SkipPrefixes: []string{
			"/healthz",
			"/readyz",
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/auth/refresh",
		},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "powerskills",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "powerskills", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := executor.Shutdown(drainCtx); err != nil {
		logger.Warn("executor drain incomplete", "error", err)
	}
}
