package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"

	"storefront-restock-api/internal/cache"
	"storefront-restock-api/internal/catalog"
	"storefront-restock-api/internal/config"
	"storefront-restock-api/internal/handler"
	"storefront-restock-api/internal/logger"
	"storefront-restock-api/internal/middleware"
	"storefront-restock-api/internal/notify"
	"storefront-restock-api/internal/repository"
	"storefront-restock-api/internal/router"
	"storefront-restock-api/internal/service"
)

func main() {
	cfg := config.MustLoad()

	log := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	defer func() { _ = log.Sync() }()

	log.Info("starting restock API",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment))

	checks := make(map[string]handler.ReadinessCheck)

	// Inventory store and subscription registry share one database.
	var (
		store    repository.InventoryStore
		registry repository.SubscriptionRegistry
	)
	switch cfg.Store.Type {
	case "postgres", "postgresql":
		db, err := repository.OpenPostgres(cfg.Store.PostgresDSN())
		if err != nil {
			log.Fatal("failed to initialize PostgreSQL", zap.Error(err))
		}
		defer db.Close()
		store = repository.NewPostgresInventoryRepository(db, log)
		registry = repository.NewPostgresSubscriptionRepository(db)
		checks["store"] = db.PingContext
		log.Info("PostgreSQL store initialized")
	case "memory":
		store = repository.NewMemoryInventoryRepository()
		registry = repository.NewMemorySubscriptionRepository()
		log.Warn("in-memory store initialized, state is lost on restart")
	default:
		db, err := repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		defer db.Close()
		store = repository.NewSQLiteInventoryRepository(db, log)
		registry = repository.NewSQLiteSubscriptionRepository(db)
		checks["store"] = db.PingContext
		log.Info("SQLite store initialized", zap.String("path", cfg.Store.Path))
	}

	// Redis backs the catalog cache and admin sessions (optional).
	var redisClient *redis.Client
	if cfg.Cache.Type == "redis" || cfg.Admin.LoginKey != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis connection failed", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			log.Info("Redis client initialized", zap.String("addr", cfg.Cache.RedisAddress()))
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	lookup := newCatalog(cfg, log, redisClient)
	if lookup != nil {
		checks["catalog"] = func(ctx context.Context) error {
			_, err := lookup.List(ctx)
			return err
		}
	}

	mailer := newMailer(cfg, log)
	dispatcher := notify.NewDispatcher(mailer, cfg.Notify.Concurrency, cfg.Notify.SendTimeout, log)

	restock := service.NewRestockService(store, registry, lookup, dispatcher, service.RestockOptions{
		SiteURL:   cfg.Notify.SiteURL,
		StoreName: cfg.Notify.StoreName,
	}, log)

	var tokenService *service.TokenService
	if redisClient != nil {
		tokenService = service.NewTokenService(redisClient, cfg.Admin.TokenTTL, log)
	}

	var backfill *service.BackfillScheduler
	if lookup != nil {
		backfill = service.NewBackfillScheduler(restock, service.BackfillConfig{Interval: cfg.Backfill.Interval}, log)
		backfill.Start()
	}

	if len(cfg.Admin.APIKeys) == 0 && tokenService == nil {
		log.Warn("no admin credentials configured, admin endpoints will reject every request")
	}

	var tokens middleware.TokenValidator
	if tokenService != nil {
		tokens = tokenService
	}

	r := router.New(router.Config{
		Handler:          handler.New(cfg.App.Version, checks),
		InventoryHandler: handler.NewInventoryHandler(restock, log),
		AdminHandler:     handler.NewAdminHandler(restock, cfg.Store.Type, log),
		AuthHandler:      handler.NewAuthHandler(tokenService, cfg.Admin.LoginKey, log),
		AdminAuth: middleware.NewAdminAuth(middleware.AuthConfig{
			Tokens:  tokens,
			APIKeys: cfg.Admin.APIKeys,
		}),
		Logger: log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	if backfill != nil {
		backfill.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
}

// newCatalog builds the catalog lookup with its cache. It returns nil when
// no catalog is reachable; notifications then fall back to raw identifiers.
func newCatalog(cfg *config.Config, log *zap.Logger, redisClient *redis.Client) catalog.Lookup {
	var base catalog.Lookup
	switch cfg.Catalog.Source {
	case "mysql":
		db, err := sql.Open("mysql", cfg.Catalog.DSN())
		if err != nil {
			log.Warn("MySQL catalog unavailable", zap.Error(err))
			return nil
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			log.Warn("MySQL catalog ping failed", zap.Error(err))
			_ = db.Close()
			return nil
		}
		base = catalog.NewMySQLCatalog(db)
		log.Info("MySQL catalog initialized")
	default:
		fc, err := catalog.LoadFile(cfg.Catalog.Path)
		if err != nil {
			log.Warn("catalog file unavailable", zap.String("path", cfg.Catalog.Path), zap.Error(err))
			return nil
		}
		base = fc
		log.Info("file catalog loaded", zap.String("path", cfg.Catalog.Path))
	}

	var c cache.Cache
	if cfg.Cache.Type == "redis" && redisClient != nil {
		c = cache.NewRedisCache(redisClient, "")
	} else {
		c = cache.NewMemoryCache(time.Minute)
	}
	return catalog.NewCachedCatalog(base, c, cfg.Cache.TTL, log)
}

func newMailer(cfg *config.Config, log *zap.Logger) notify.Mailer {
	if !cfg.Mail.Configured() {
		log.Warn("outbound mail not configured, restock notifications will be counted as send errors")
		return notify.Unconfigured{}
	}

	switch cfg.Mail.Transport {
	case "ses":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m, err := notify.NewSESMailer(ctx, cfg.Mail.AWSRegion, cfg.Mail.From)
		if err != nil {
			log.Error("failed to initialize SES mailer, restock notifications will be counted as send errors", zap.Error(err))
			return notify.Unconfigured{}
		}
		log.Info("SES mailer initialized", zap.String("region", cfg.Mail.AWSRegion))
		return m
	default:
		log.Info("SMTP mailer initialized", zap.String("host", cfg.Mail.SMTPHost))
		return notify.NewSMTPMailer(notify.SMTPConfig{
			Host:           cfg.Mail.SMTPHost,
			Port:           cfg.Mail.SMTPPort,
			Username:       cfg.Mail.SMTPUsername,
			Password:       cfg.Mail.SMTPPassword,
			AllowAnonymous: cfg.Mail.SMTPAllowAnonymous,
			UseTLS:         cfg.Mail.SMTPUseTLS,
			From:           cfg.Mail.From,
		})
	}
}
