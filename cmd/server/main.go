// @title          Customer Portal API
// @version        1.0
// @description    Accounts, policies, claims and complaints for the insurance customer portal.
// @BasePath       /
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	_ "github.com/insureportal/portal-api/docs"
	"github.com/insureportal/portal-api/internal/api"
	"github.com/insureportal/portal-api/internal/api/handler"
	"github.com/insureportal/portal-api/internal/core/domain"
	"github.com/insureportal/portal-api/internal/core/ports"
	"github.com/insureportal/portal-api/internal/core/service"
	mongodb "github.com/insureportal/portal-api/internal/infrastructure/db/mongo"
	redisdb "github.com/insureportal/portal-api/internal/infrastructure/db/redis"
	"github.com/insureportal/portal-api/internal/infrastructure/http/handlers"
	"github.com/insureportal/portal-api/internal/infrastructure/queue"
	"github.com/insureportal/portal-api/internal/infrastructure/ratelimit"
	"github.com/insureportal/portal-api/internal/pkg/config"
	"github.com/insureportal/portal-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "portal-api"})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	userRepo := mongodb.NewUserRepository(db)
	policyRepo := mongodb.NewPolicyRepository(db)
	claimRepo := mongodb.NewClaimRepository(db)
	complaintRepo := mongodb.NewComplaintRepository(db)
	if err := mongodb.EnsureIndexes(ctx, userRepo, policyRepo, claimRepo, complaintRepo); err != nil {
		return err
	}

	allocator, err := service.NewAllocator(mongodb.NewCounterRepository(db), cfg.NumberFormats(), log)
	if err != nil {
		return err
	}
	policies := service.NewRecordService[*domain.Policy](policyRepo, allocator, log, domain.RoleAgent)
	claims := service.NewRecordService[*domain.Claim](claimRepo, allocator, log, domain.RoleAgent)
	complaints := service.NewRecordService[*domain.Complaint](complaintRepo, allocator, log, domain.RoleAgent)
	intake := service.NewIntakeService(userRepo, policies, claims, complaints)

	activity := queue.NewActivityDispatcher(cfg.Activity.Workers, userRepo, log)
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	activity.Start(workerCtx)

	authService := service.NewAuthService(userRepo, activity, cfg.JWTSecret, cfg.TokenTTL, log)

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		Intake:      intake,
		Policies:    policies,
		Claims:      claims,
		Complaints:  complaints,
		Limiter:     newLimiter(cfg, rdb, log),
		Cookie: handler.CookieConfig{
			Name:   cfg.Cookie.Name,
			Secure: cfg.Cookie.Secure,
			MaxAge: cfg.TokenTTL,
		},
		Readiness: handlers.NewHealthDependenciesHandler(db, rdb),
	}, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		stopWorkers()
		activity.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Requests are drained, so no new activity can be queued.
	stopWorkers()
	activity.Wait()
	return nil
}

func newLimiter(cfg *config.Config, rdb *redis.Client, log zerolog.Logger) ports.RateLimiter {
	memory := ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.MaxKeys)
	if cfg.RateLimit.Backend != "redis" || rdb == nil {
		return memory
	}
	return redisdb.NewRateLimiter(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window, memory, log)
}
