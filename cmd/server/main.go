package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	audithandler "intia/internal/audit/handler"
	auditsvc "intia/internal/audit/service"
	auditstore "intia/internal/audit/store"
	authhandler "intia/internal/auth/handler"
	authsvc "intia/internal/auth/service"
	branchhandler "intia/internal/branch/handler"
	branchstore "intia/internal/branch/store"
	clienthandler "intia/internal/client/handler"
	clientsvc "intia/internal/client/service"
	clientstore "intia/internal/client/store"
	"intia/internal/jwttoken"
	"intia/internal/platform/config"
	"intia/internal/platform/httpserver"
	"intia/internal/platform/logger"
	"intia/internal/platform/metrics"
	"intia/internal/platform/postgres"
	platformredis "intia/internal/platform/redis"
	policyhandler "intia/internal/policy/handler"
	policysvc "intia/internal/policy/service"
	policystore "intia/internal/policy/store"
	"intia/internal/ratelimit"
	httptransport "intia/internal/transport/http"
	userhandler "intia/internal/user/handler"
	userstore "intia/internal/user/store"
	"intia/pkg/platform/tx"
)

const tokenIssuer = "intia"

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient == nil {
		log.Warn("redis not configured, login lockout disabled")
	} else {
		defer redisClient.Close()
	}

	m := metrics.New()
	runner := tx.SQLRunner{DB: db}

	users := userstore.NewPostgres(db)
	branches := branchstore.NewPostgres(db)
	clients := clientstore.NewPostgres(db)
	policies := policystore.NewPostgres(db)
	audit := auditstore.NewPostgres(db)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, tokenIssuer)
	lockout := ratelimit.NewLockout(redisClient, ratelimit.DefaultMaxFailures, ratelimit.DefaultWindow)

	auditService := auditsvc.New(audit, m, log)
	clientService := clientsvc.New(clients, policies, auditService, runner, log)
	policyService := policysvc.New(policies, clients, auditService, runner, log)
	authService := authsvc.New(users, tokens, auditService, lockout, cfg.TokenLifetime, m, log)

	router := httptransport.NewRouter(httptransport.Handlers{
		Auth:     authhandler.New(authService, log),
		Branches: branchhandler.New(branches, log),
		Clients:  clienthandler.New(clientService, log),
		Policies: policyhandler.New(policyService, log),
		Users:    userhandler.New(users, log),
		Audit:    audithandler.New(auditService, log),
	}, httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		TokenValidator: tokens,
		UserLoader:     users,
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
