package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vetcare/identity-api/internal/api"
	"github.com/vetcare/identity-api/internal/api/handler"
	"github.com/vetcare/identity-api/internal/core/ports"
	"github.com/vetcare/identity-api/internal/core/service"
	"github.com/vetcare/identity-api/internal/infrastructure/db/memory"
	"github.com/vetcare/identity-api/internal/infrastructure/db/mongo"
	"github.com/vetcare/identity-api/internal/infrastructure/db/redis"
	"github.com/vetcare/identity-api/internal/infrastructure/mail"
	"github.com/vetcare/identity-api/internal/infrastructure/security"
	"github.com/vetcare/identity-api/internal/pkg/config"
	"github.com/vetcare/identity-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// @title        Vetcare Identity API
// @version      1.0
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: "identity-api"})
		boot.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "identity-api",
	})

	var (
		store   ports.CredentialStore
		closers []func(context.Context) error
		pingers = map[string]handler.Pinger{}
	)

	switch cfg.Store {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory credential store, data is lost on restart")
		store = memory.NewCredentialStore()
	default:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect mongodb")
		}
		closers = append(closers, func(ctx context.Context) error { return mongo.Disconnect(ctx, client) })
		pingers["mongodb"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		})

		credentials := mongo.NewCredentialStore(client, db)
		if err := credentials.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
		}
		store = credentials
	}

	opts := []service.Option{
		service.WithSessionLifetimes(cfg.Session.RefreshTTL, cfg.Session.ResetTTL),
		service.WithSlidingRefresh(cfg.Session.SlidingRefresh),
		service.WithResetTokenConsumption(cfg.Session.ConsumeResetTokens),
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		closers = append(closers, func(context.Context) error { return rdb.Close() })
		pingers["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redis.Ping(ctx, rdb)
		})
		opts = append(opts, service.WithTokenLocker(redis.NewTokenLock(rdb, cfg.Redis.LockTTL)))
	}

	issuer, err := security.NewJWTIssuer(security.JWTOptions{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		AccessTTL: cfg.JWT.AccessTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build jwt issuer")
	}

	authService := service.NewAuthService(
		store,
		security.NewBcryptHasher(cfg.BcryptCost),
		issuer,
		newNotifier(cfg, log),
		logger.Component("auth"),
		opts...,
	)

	e := api.NewRouter(api.Deps{
		AuthService:  authService,
		Verifier:     issuer,
		Cookies:      handler.CookieOptions{Secure: cfg.Cookie.Secure},
		Dependencies: pingers,
		Log:          logger.Component("http"),
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(log, e, closers)
}

func newNotifier(cfg *config.Config, log zerolog.Logger) ports.Notifier {
	if !cfg.MailEnabled() {
		return mail.NewLogNotifier(logger.Component("mail"))
	}
	notifier, err := mail.NewSMTPNotifier(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build smtp notifier")
	}
	return notifier
}

func waitForShutdown(log zerolog.Logger, e *echo.Echo, closers []func(context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	for _, closeFn := range closers {
		if err := closeFn(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("close dependency failed")
		}
	}

	log.Info().Msg("server exited cleanly")
}
