// Command server runs the travel planner HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/config"
	"github.com/iliyamo/ai-travel-planner/internal/database"
	"github.com/iliyamo/ai-travel-planner/internal/handler"
	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/middleware"
	"github.com/iliyamo/ai-travel-planner/internal/queue"
	"github.com/iliyamo/ai-travel-planner/internal/registry"
	"github.com/iliyamo/ai-travel-planner/internal/repository"
	"github.com/iliyamo/ai-travel-planner/internal/router"
	"github.com/iliyamo/ai-travel-planner/internal/service"
	"github.com/iliyamo/ai-travel-planner/internal/token"
	"github.com/iliyamo/ai-travel-planner/internal/utils"
)

func main() {
	cfg, err := config.Load() // .env + environment
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			zl.Fatal("migrate", zap.Error(err))
		}
	}

	// Redis is optional: nil disables the rate limiter and response cache.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		zl.Warn("redis unavailable; rate limiting and caching disabled", zap.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	tokens, err := newRegistry(cfg.Registry, db, rdb)
	if err != nil {
		zl.Fatal("refresh token registry", zap.Error(err))
	}
	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.AccessTTL)
	if err != nil {
		zl.Fatal("token issuer", zap.Error(err))
	}

	events := startEvents(ctx, cfg.Queue, zl)

	users := repository.NewUserRepo(db)
	auth := service.NewAuthService(users, issuer, tokens, newHasher(cfg.Password), events, zl,
		service.WithRevokeOnPasswordChange(cfg.Registry.RevokeOnPasswordChange))
	plans := service.NewTravelPlanService(
		repository.NewTravelPlanRepo(db),
		repository.NewActivityRepo(db),
		repository.NewAccommodationRepo(db),
		repository.NewTransportationRepo(db),
		events, zl,
	)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(zl))

	router.Register(e, router.Deps{
		Health:  handler.Health(db),
		Auth:    handler.NewAuthHandler(auth, zl),
		Plans:   handler.NewTravelPlanHandler(plans, zl),
		Search:  handler.NewSearchHandler(repository.NewSearchRepo(db), zl),
		JWT:     middleware.JWTAuth(issuer),
		Limiter: middleware.RateLimit(cfg.RateLimit, rdb, zl),
		Cache:   middleware.ResponseCache(cfg.Cache, rdb, zl),
	})

	addr := ":" + cfg.App.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}

func newRegistry(cfg config.Registry, db *sql.DB, rdb *redis.Client) (registry.Registry, error) {
	opts := []registry.Option{registry.WithTTL(cfg.TokenTTL)}
	switch cfg.Backend {
	case config.RegistryRedis:
		if rdb == nil {
			return nil, errors.New("REGISTRY_BACKEND=redis needs a reachable redis")
		}
		return registry.NewRedis(rdb, cfg.Prefix, opts...), nil
	case config.RegistryMySQL:
		return registry.NewMySQL(db, opts...), nil
	default:
		return registry.NewMemory(opts...), nil
	}
}

func newHasher(cfg config.Password) utils.PasswordHasher {
	if cfg.Scheme == config.PasswordSHA256 {
		return utils.LegacySHA256Hasher{}
	}
	return utils.NewBcryptHasher(cfg.BcryptCost)
}

// startEvents returns the publisher services write to. With a broker URL,
// events go through a buffered publisher and the activity-log consumer runs
// alongside the server until ctx ends.
func startEvents(ctx context.Context, cfg config.Queue, zl *zap.Logger) queue.Publisher {
	if cfg.URL == "" {
		return queue.NopPublisher{}
	}
	async := queue.NewAsyncPublisher(queue.NewAMQPPublisher(cfg.URL, cfg.Name, zl), 256, zl)
	go async.Run(ctx)

	consumer := queue.NewConsumer(cfg.URL, cfg.Name, cfg.ActivityLogFile, zl)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("activity consumer stopped", zap.Error(err))
		}
	}()
	return async
}
