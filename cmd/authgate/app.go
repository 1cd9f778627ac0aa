package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"authgate/internal/db"
	"authgate/internal/handlers"
	"authgate/internal/logger"
	"authgate/internal/mail"
	"authgate/internal/ratelimit"
	"authgate/internal/repository/postgres"
	"authgate/internal/service/auth"
	"authgate/internal/service/passreset"
	"authgate/internal/service/token"
	"authgate/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	if c.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         c.SentryDSN,
			Environment: c.Environment,
		})
		if err != nil {
			return nil, fmt.Errorf("error while initializing sentry: %w", err)
		}
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db: %w", err)
	}

	storage := postgres.NewStorage(pool)

	// Attempt counters live in Redis when an address is configured, so
	// several instances share one lockout window. In-process otherwise.
	var attemptStore ratelimit.AttemptStore
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis: %w", err)
		}
		attemptStore = ratelimit.NewRedisStore(client)
	}
	limiter := ratelimit.New(ratelimit.Config{}, attemptStore)

	issuer, err := token.NewIssuer(token.Config{
		AccessTTL:  c.AccessTTL,
		RefreshTTL: c.RefreshTTL,
	}, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating token issuer: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, limiter, issuer, storage.User())
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service: %w", err)
	}

	var mailer passreset.Mailer
	if c.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:        c.SMTPHost,
			Port:        c.SMTPPort,
			Username:    c.SMTPUsername,
			Password:    c.SMTPPassword,
			From:        c.SMTPFrom,
			FrontendURL: c.FrontendURL,
		})
	} else {
		mailer = mail.LogMailer{Logger: log}
	}

	resetService, err := passreset.NewService(passreset.Config{}, storage.User(), storage.PasswordReset(), issuer, mailer, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating password reset service: %w", err)
	}

	userService := user.NewService(storage.User())

	mux := handlers.NewRouter(handlers.RouterDeps{
		Auth:      handlers.NewAuth(authService, log),
		PassReset: handlers.NewPassReset(resetService, log),
		User:      handlers.NewUser(userService, log),
		Admin:     handlers.NewAdmin(userService, log),
		Resolver:  issuer,
		Logger:    log,
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	s.Logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	sentry.Flush(2 * time.Second)

	return err
}
