package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"beachbookings/internal/api"
	"beachbookings/internal/config"
	"beachbookings/internal/database"
	"beachbookings/internal/domain"
	"beachbookings/internal/events"
	"beachbookings/internal/export"
	"beachbookings/internal/google"
	"beachbookings/internal/logging"
	"beachbookings/internal/metrics"
	"beachbookings/internal/notify"
	"beachbookings/internal/repository"
	"beachbookings/internal/service"
	"beachbookings/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	sheetsCacheRefresh = 10 * time.Minute
	healthInterval     = 15 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer func() { _ = repository.Close(redisClient) }()
	}
	draftRepo := initDraftRepository(cfg, redisClient, &logger)

	eventBus := events.NewEventBus(&logger)
	subscribeAuditLog(eventBus, &logger)

	syncWorker := initSheetsSync(ctx, cfg, db, redisClient, &logger)

	dispatcher := notify.NewDispatcher(
		initMailer(cfg, &logger),
		notify.NewRenderer(cfg.App.BaseURL, cfg.App.Location()),
		cfg.SendTimeout(),
		&logger,
	)

	facilityService := service.NewFacilityService(db, &logger)
	if err := facilityService.Seed(ctx, cfg.Facilities); err != nil {
		logger.Error().Err(err).Msg("seed facilities")
		return err
	}

	deps := api.Deps{
		Bookings:     service.NewBookingService(db, eventBus, syncWorker, dispatcher, &logger),
		Users:        service.NewUserService(db, &logger),
		Associations: service.NewAssociationService(db, eventBus, dispatcher, draftRepo, &logger),
		Facilities:   facilityService,
		Drafts:       service.NewDraftService(draftRepo, cfg.DraftTTL(), &logger),
		Exporter:     export.NewExporter(cfg.App.Location()),
		Identity:     api.NewHeaderIdentity(cfg.API.Identity),
		Store:        db,
		PollInterval: cfg.PollInterval(),
	}

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, &logger)
		go backupService.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(&cfg.API, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	httpServer := api.NewHTTPServer(&cfg.API, deps, &logger)

	return startServers(ctx, grpcServer, httpServer, dispatcher, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("create database directory")
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = repository.Close(redisClient)
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

// initDraftRepository prefers redis and falls back to process memory while redis is down.
func initDraftRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	memory := repository.NewMemoryDraftRepository()
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisDraftRepository(redisClient, cfg.DraftTTL())
	return repository.NewFailoverDraftRepository(primary, memory, logger)
}

func subscribeAuditLog(bus *events.EventBus, logger *zerolog.Logger) {
	auditLog := logging.Component(logger, "events")
	bus.Subscribe(events.Wildcard, func(ev *events.Event) error {
		auditLog.Debug().Str("event", ev.Type).RawJSON("payload", ev.Payload).Msg("domain event")
		return nil
	})
}

// initSheetsSync starts the Google Sheets mirror when credentials are configured.
// The returned worker is nil otherwise.
func initSheetsSync(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) domain.SyncWorker {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.BookingSpreadSheetID == "" {
		logger.Info().Msg("google sheets not configured, mirror disabled")
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.BookingSpreadSheetID, cfg.App.Location(), logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		if email, emailErr := google.GetServiceAccountEmail(cfg.Google.GoogleCredentialsFile); emailErr == nil {
			logger.Warn().Err(err).Str("service_account", email).Msg("google sheets unreachable; share the spreadsheet with the service account")
		} else {
			logger.Warn().Err(err).Msg("google sheets unreachable")
		}
		return nil
	}
	go sheetsService.StartCacheRefresh(ctx, sheetsCacheRefresh)

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, db, redisClient, worker.DefaultSheetsRetry(), logger)
	go sheetsWorker.Start(ctx)

	if err := sheetsWorker.EnqueueFullSync(ctx); err != nil {
		logger.Warn().Err(err).Msg("schedule initial sheets sync")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsWorker
}

// initMailer picks the mail sink. Without an API key mail is only logged.
func initMailer(cfg *config.Config, logger *zerolog.Logger) domain.Mailer {
	mailLogger := logging.Component(logger, "mail")

	var primary domain.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderResend:
		primary = notify.NewResendMailer(cfg.Mail.APIKey, cfg.Mail.From, cfg.Mail.Endpoint, &http.Client{Timeout: cfg.SendTimeout()}, mailLogger)
	default:
		primary = notify.NewLogMailer(mailLogger)
	}

	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		return primary
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram mirror disabled")
		return primary
	}
	bot.Debug = cfg.Telegram.Debug
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", cfg.Telegram.ChatID).Msg("telegram mirror enabled")

	return notify.NewMultiMailer(primary, notify.NewTelegramMirror(bot, cfg.Telegram.ChatID))
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	dispatcher *notify.Dispatcher,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	if grpcServer != nil {
		go grpcServer.WatchHealth(ctx, healthInterval)
		go func() {
			if err := grpcServer.Serve(); err != nil {
				logger.Error().Err(err).Msg("grpc server stopped")
			}
		}()
	}

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Bool("grpc", grpcServer != nil).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending notifications were not delivered")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
