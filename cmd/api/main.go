package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"insights-dashboard/internal/audit"
	"insights-dashboard/internal/auth"
	"insights-dashboard/internal/config"
	"insights-dashboard/internal/httpapi"
	"insights-dashboard/internal/idp"
	"insights-dashboard/internal/idp/idpfake"
	"insights-dashboard/internal/mfa"
	"insights-dashboard/internal/session"
	"insights-dashboard/pkg/logger"
	"insights-dashboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	provider, verifier, err := buildProvider(rootCtx, cfg, log)
	if err != nil {
		log.Error("identity provider init failed", "err", err)
		os.Exit(1)
	}

	var db *sql.DB
	var auditRepo audit.Repository = audit.NewMemoryRepo()
	if cfg.HasPostgres() {
		db, err = utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		repo, err := audit.NewPostgresRepo(rootCtx, db)
		if err != nil {
			log.Error("audit repo init failed", "err", err)
			os.Exit(1)
		}
		auditRepo = repo
	} else {
		log.Info("DB_HOST not set, audit trail kept in memory")
	}
	auditSvc := audit.NewService(auditRepo, log)

	var limiter mfa.Limiter
	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		limiter = mfa.NewRedisLimiter(rdb, cfg.MFA.MaxVerifyAttempts, cfg.MFA.AttemptWindow)
	} else {
		log.Info("REDIS_HOST not set, mfa verify attempts are not capped")
	}

	// ID tokens on the refresh path come straight from the provider over TLS.
	// Verify them anyway when a verifier is configured.
	var sessionDecoder auth.Decoder = auth.UnverifiedDecoder{}
	if verifier != nil {
		sessionDecoder = verifier
	}

	h := httpapi.Handlers{
		Session: session.NewService(provider, sessionDecoder, auditSvc),
		Login:   session.NewSignInService(provider, sessionDecoder, auditSvc),
		MFA:     mfa.NewService(provider, mfa.Options{Limiter: limiter, Audit: auditSvc, Logger: log}),
		Cookie: httpapi.CookiePolicy{
			Name:   cfg.Cookie.Name,
			Path:   cfg.Cookie.Path,
			MaxAge: cfg.Cookie.MaxAge,
			Secure: cfg.Cookie.Secure,
		},
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, verifier, db, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "idp", cfg.IdP.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// buildProvider returns the configured identity provider and, when one is
// available, a decoder that verifies ID token signatures.
func buildProvider(ctx context.Context, cfg config.Config, log *slog.Logger) (idp.Provider, auth.Decoder, error) {
	switch cfg.IdP.Provider {
	case config.ProviderCognito:
		p, err := idp.NewCognito(ctx, cfg.IdP.CognitoRegion, cfg.IdP.CognitoClientID)
		if err != nil {
			return nil, nil, err
		}
		if !cfg.IdP.VerifyIDToken {
			return p, nil, nil
		}
		d, err := auth.NewOIDCDecoder(ctx, cfg.IdP.CognitoIssuer(), cfg.IdP.CognitoClientID)
		if err != nil {
			return nil, nil, err
		}
		return p, d, nil

	case config.ProviderFake:
		var users []idpfake.User
		if cfg.IdP.FakeUsersFile != "" {
			u, err := idpfake.LoadUsersFile(cfg.IdP.FakeUsersFile)
			if err != nil {
				return nil, nil, err
			}
			users = u
		}
		p, err := idpfake.New(idpfake.Options{Secret: cfg.IdP.FakeSecret, Users: users})
		if err != nil {
			return nil, nil, err
		}
		log.Warn("using in-memory fake identity provider", "users", len(users))
		return p, p.Verifier(), nil

	default:
		return nil, nil, fmt.Errorf("unknown identity provider %q", cfg.IdP.Provider)
	}
}
