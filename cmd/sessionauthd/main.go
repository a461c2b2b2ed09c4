// Command sessionauthd serves the session authentication API.
//
// Settings come from the environment; see internal/config. With
// REDIS_HOST=memory and no DATABASE_URL it runs with no external
// dependencies, which is only meant for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/internal/config"
	"github.com/MrEthical07/sessionauth/internal/httpapi"
	"github.com/MrEthical07/sessionauth/jwt"
	promexport "github.com/MrEthical07/sessionauth/metrics/export/prometheus"
	"github.com/MrEthical07/sessionauth/notify"
	"github.com/MrEthical07/sessionauth/oauth"
	"github.com/MrEthical07/sessionauth/session"
	"github.com/MrEthical07/sessionauth/userstore/memory"
	"github.com/MrEthical07/sessionauth/userstore/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sessionauthd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.DebugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logger.Info("starting sessionauthd",
		slog.String("environment", cfg.NodeEnv),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	users, closeUsers, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	notifier, closeNotifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	builder := sessionauth.New().
		WithConfig(engineConfig(cfg)).
		WithRedis(rdb).
		WithUserStore(users).
		WithNotifier(notifier).
		WithLogger(logger).
		WithMetricsEnabled(cfg.MetricsEnabled)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(sessionauth.NewSlogSink(logger.With(slog.String("component", "audit"))))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	sessions := session.NewGorillaStore(engine.SessionStore(), cfg.DeriveKey("session"))
	sessions.Options.Secure = cfg.Production()

	states, err := jwt.NewManager(jwt.Config{
		PrivateKey: cfg.DeriveKey("oauth-state"),
		Issuer:     cfg.AppDomain,
	})
	if err != nil {
		return fmt.Errorf("oauth state signer: %w", err)
	}

	deps := httpapi.Deps{
		Service:      engine,
		Sessions:     sessions,
		CookieName:   session.DefaultCookieName,
		CSRFKey:      cfg.DeriveKey("csrf"),
		SecureCookie: cfg.Production(),
		CORSOrigins:  cfg.CORSOrigins,
		States:       states,
		Logger:       logger,
	}
	if cfg.GoogleClientID != "" {
		google, err := oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			AppDomain:    cfg.AppDomain,
		})
		if err != nil {
			return fmt.Errorf("google provider: %w", err)
		}
		deps.Google = google
	}
	if cfg.MetricsEnabled {
		exporter := promexport.NewExporter(engine)
		exporter.Registry().MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		deps.Metrics = exporter.Handler()
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

func engineConfig(cfg config.Config) sessionauth.Config {
	c := sessionauth.DefaultConfig()
	c.Session.MaxAge = cfg.SessionMaxAge
	c.Verification.AppDomain = cfg.AppDomain
	c.Password.Algorithm = sessionauth.PasswordAlgorithm(cfg.PasswordAlgorithm)
	c.Password.BcryptCost = cfg.BcryptCost
	c.Audit.Enabled = cfg.AuditEnabled
	c.Metrics.Enabled = cfg.MetricsEnabled
	return c
}

func openRedis(ctx context.Context, cfg config.Config, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr()
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("embedded redis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn("using embedded redis; sessions are lost on restart")
	}

	opts := &redis.Options{Addr: addr}
	if mr == nil {
		opts.Username = cfg.RedisUsername
		opts.Password = cfg.RedisPassword
	}
	rdb := redis.NewClient(opts)
	closeFn := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	logger.Info("connected to redis", slog.String("addr", addr))
	return rdb, closeFn, nil
}

func openUserStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (sessionauth.UserStore, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; users are kept in memory")
		return memory.New(), func() {}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to postgres; migrations applied")
	return postgres.New(pool), pool.Close, nil
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (sessionauth.Notifier, func(), error) {
	var (
		next    sessionauth.Notifier
		name    string
		closer  io.Closer
		mailLog = logger.With(slog.String("component", "notify"))
	)

	switch {
	case len(cfg.KafkaBrokers) > 0:
		k := notify.NewKafka(notify.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaMailTopic,
		}, mailLog)
		next, name, closer = k, "kafka", k
	case cfg.SMTPHost != "":
		s, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}, notify.DefaultTemplates(), mailLog)
		if err != nil {
			return nil, nil, fmt.Errorf("smtp notifier: %w", err)
		}
		next, name = s, "smtp"
	default:
		logger.Warn("no mail transport configured; verification links are logged")
		next, name = notify.NewLog(mailLog), "log"
	}

	closeFn := func() {}
	if closer != nil {
		closeFn = func() {
			if err := closer.Close(); err != nil {
				logger.Warn("notifier close failed", slog.String("error", err.Error()))
			}
		}
	}
	return notify.NewBreaker(next, notify.DefaultBreakerConfig("mail-"+name), mailLog), closeFn, nil
}
