// @title           Silianos Voyage API
// @version         1.0
// @description     Travel agency back office: customer and administrator sessions, bookings and site content.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/silianos/voyage-api/internal/api"
	mongodb "github.com/silianos/voyage-api/internal/infrastructure/db/mongo"
	redisdb "github.com/silianos/voyage-api/internal/infrastructure/db/redis"
	"github.com/silianos/voyage-api/internal/infrastructure/queue"
	"github.com/silianos/voyage-api/internal/pkg/config"
	"github.com/silianos/voyage-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "voyage-api",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb unavailable")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	customers := mongodb.NewCustomerRepository(db)
	admins := mongodb.NewAdminRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"users":       customers.EnsureIndexes,
		"admin_users": admins.EnsureIndexes,
		"auth_events": auditRepo.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Fatal().Err(err).Str("collection", name).Msg("failed to create indexes")
		}
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		// Login throttling is skipped without Redis; everything else still works.
		log.Warn().Err(err).Msg("redis unavailable, login throttling disabled")
	} else {
		defer rdb.Close()
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, logger.Component("audit"))
	dispatcher.Start(ctx)

	e, err := api.NewRouter(cfg, api.Deps{
		DB:    db,
		Redis: rdb,
		Audit: dispatcher,
		Log:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("base_path", cfg.BasePath).Msg("server starting")
	if err := api.Serve(ctx, e, ":"+cfg.Port, shutdownTimeout); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}
