// Command identityd serves user registration, login and profile management.
//
//	@title						Identity Service API
//	@version					1.0
//	@description				User registration, login and profile management.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/api"
	"github.com/tripeco/identity-service/internal/api/handler"
	"github.com/tripeco/identity-service/internal/api/identity"
	"github.com/tripeco/identity-service/internal/core/ports"
	"github.com/tripeco/identity-service/internal/core/service"
	"github.com/tripeco/identity-service/internal/infrastructure/db/mongo"
	"github.com/tripeco/identity-service/internal/infrastructure/db/redis"
	"github.com/tripeco/identity-service/internal/infrastructure/mail"
	"github.com/tripeco/identity-service/internal/infrastructure/queue"
	"github.com/tripeco/identity-service/internal/pkg/config"
	"github.com/tripeco/identity-service/pkg/logger"
)

const (
	serviceName     = "identity-service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.New(logger.Options{Service: serviceName})
		log.Fatal().Err(err).Msg("identity service stopped with error")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
		Env:     cfg.Env,
	})

	// --- Storage ---
	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.Disconnect(context.Background(), mongoClient); err != nil {
			log.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()

	users := mongo.NewUserRepository(db, cfg.Mongo.Collection)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Notifications ---
	dispatcher := queue.NewDispatcher(queue.Config{
		Workers:     cfg.Notifier.Workers,
		QueueSize:   cfg.Notifier.QueueSize,
		SendTimeout: cfg.Notifier.SendTimeout,
	}, newMailer(cfg, log), redis.NewDeliveryDedup(rdb, cfg.Redis.DedupTTL), log)

	// Workers outlive the signal context so requests still in flight during
	// server shutdown can enqueue mail; cancelWorkers then drains the queues.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	dispatcher.Start(workerCtx)

	// --- Core services ---
	hasher := service.NewBcryptHasher(cfg.Password.HashCost)
	policy, err := service.NewPasswordPolicy(service.PasswordPolicyConfig{
		Production: cfg.IsProduction(),
		Regex:      cfg.Password.Regex,
		Length:     cfg.Password.Length,
	})
	if err != nil {
		return err
	}
	tokens := service.NewTokenService(service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Prefix: cfg.JWT.Prefix,
		TTL:    cfg.JWT.TTL,
	})

	userService := service.NewUserService(users, hasher, policy, dispatcher, identity.Provider{}, log)
	authenticator := service.NewAuthenticator(users, hasher, log)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:          log,
		Users:        userService,
		Login:        handler.NewLoginPipeline(handler.JSONCredentialExtractor{}, authenticator, tokens, cfg.JWT.Header, log),
		Tokens:       tokens,
		UserHeader:   cfg.UserHeader,
		TokenHeader:  cfg.JWT.Header,
		EnforceRoles: cfg.EnforceRoles,
		Checks:       []handler.DependencyCheck{handler.MongoCheck(db), handler.RedisCheck(rdb)},
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("identity service starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful server shutdown failed")
	}

	cancelWorkers()
	dispatcher.Wait()

	log.Info().Msg("identity service stopped")
	return nil
}

func newMailer(cfg *config.Config, log zerolog.Logger) ports.Mailer {
	if cfg.Mail.Host == "" {
		log.Warn().Msg("SMTP_HOST not set, notifications will only be logged")
		return mail.NewNoopMailer(log)
	}
	return mail.NewSMTPMailer(mail.Config{
		Host:          cfg.Mail.Host,
		Port:          cfg.Mail.Port,
		Username:      cfg.Mail.Username,
		Password:      cfg.Mail.Password,
		Security:      cfg.Mail.Security,
		From:          cfg.Mail.From,
		Subject:       cfg.Mail.Subject,
		Production:    cfg.IsProduction(),
		TestRecipient: cfg.Mail.TestRecipient,
	}, log)
}
