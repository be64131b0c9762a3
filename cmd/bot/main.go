package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"phonemarket-bot/internal/bot"
	"phonemarket-bot/internal/cache"
	"phonemarket-bot/internal/catalog"
	"phonemarket-bot/internal/config"
	"phonemarket-bot/internal/handler"
	"phonemarket-bot/internal/market"
	"phonemarket-bot/internal/middleware"
	"phonemarket-bot/internal/repository"
	"phonemarket-bot/internal/router"
	"phonemarket-bot/internal/service"
	"phonemarket-bot/internal/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	setupLogger(cfg)

	log.Info().
		Str("environment", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("Starting phonemarket bot")

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Bot exited with error")
	}
	log.Info().Msg("Goodbye!")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if cfg.App.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.App.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Game database
	repo, err := openRepository(cfg.Database)
	if err != nil {
		return err
	}
	defer repo.Close()

	// Confirmation dialogs
	var sessionCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			return err
		}
		sessionCache = rc
	default:
		sessionCache = cache.NewMemoryCache()
	}
	defer sessionCache.Close()
	sessions := session.NewStore(sessionCache, cfg.Cache.SessionRetention)

	// Purchase audit log
	var audit repository.PurchaseLogRepository
	auditType := "memory"
	if cfg.Audit.MongoURI != "" {
		mongoLog, err := repository.NewMongoDBPurchaseLog(cfg.Audit.MongoURI, cfg.Audit.MongoDatabase, cfg.Audit.MongoCollection)
		if err != nil {
			return err
		}
		audit = mongoLog
		auditType = "mongodb"
	} else {
		audit = repository.NewMemoryPurchaseLog(cfg.Audit.MemoryCapacity)
	}
	defer audit.Close()

	// Market service
	marketCfg, err := market.ConfigFrom(cfg.App, cfg.BlackMarket)
	if err != nil {
		return err
	}
	svc := market.NewService(marketCfg, catalog.Default(), repo, sessions, log.Logger, market.WithAuditLog(audit))
	defer svc.Wait()

	// Telegram
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return err
	}
	api.Debug = cfg.Telegram.Debug
	botHandler := bot.NewHandler(api, svc, log.Logger, cfg.RateLimit)

	cleanup := service.NewCleanupScheduler(repo, service.CleanupConfig{
		Retention: cfg.BlackMarket.OfferRetention,
		Interval:  cfg.BlackMarket.CleanupInterval,
		CycleStart: func(now time.Time) time.Time {
			start, _ := marketCfg.Cycle.Window(now)
			return start
		},
	})
	cleanup.Start()
	defer cleanup.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop() // polling ended, take the admin API down with it
		return bot.Run(gctx, api, botHandler, cfg.Telegram.PollTimeout)
	})

	if cfg.Server.Enabled {
		srv := newAdminServer(cfg, svc, repo, sessions, audit, cleanup, auditType)

		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Msg("Admin API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("Shutting down admin API...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func openRepository(db config.DatabaseConfig) (repository.Repository, error) {
	switch db.Type {
	case "postgres", "postgresql":
		return repository.NewPostgresRepository(db.PostgresDSN())
	case "mysql":
		return repository.NewMySQLRepository(db.MySQLDSN())
	default: // sqlite
		if db.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
				return nil, err
			}
		}
		return repository.NewSQLiteRepository(db.Path)
	}
}

func newAdminServer(
	cfg *config.Config,
	svc *market.Service,
	repo repository.Repository,
	sessions *session.Store,
	audit repository.PurchaseLogRepository,
	cleanup *service.CleanupScheduler,
	auditType string,
) *http.Server {
	health := handler.New(cfg.App.Name, cfg.App.Version).
		AddCheck("database", repo).
		AddCheck("sessions", sessions)

	r := router.New(router.Config{
		Handler:        health,
		MarketHandler:  handler.NewMarketHandler(svc),
		AdminHandler:   handler.NewAdminHandler(repo, audit, cleanup, cfg.Database.Type, auditType),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.Server.APIKeys}),
	})

	return &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
