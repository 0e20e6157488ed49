package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdesk/fulfillment-service/config"
	"github.com/opsdesk/fulfillment-service/internal/api"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/taskbridge"
	"github.com/opsdesk/fulfillment-service/pkg/cache"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/opsdesk/fulfillment-service/pkg/mailer"
	"github.com/opsdesk/fulfillment-service/pkg/postgres"

	catRepoPkg "github.com/opsdesk/fulfillment-service/internal/catalog/repository"
	catUCPkg "github.com/opsdesk/fulfillment-service/internal/catalog/usecase"
	fbaRepoPkg "github.com/opsdesk/fulfillment-service/internal/fba/repository"
	fbaUCPkg "github.com/opsdesk/fulfillment-service/internal/fba/usecase"
	maniRepoPkg "github.com/opsdesk/fulfillment-service/internal/manifest/repository"
	maniUCPkg "github.com/opsdesk/fulfillment-service/internal/manifest/usecase"
	refRepoPkg "github.com/opsdesk/fulfillment-service/internal/reference/repository"
	repRepoPkg "github.com/opsdesk/fulfillment-service/internal/reports/repository"
	repUCPkg "github.com/opsdesk/fulfillment-service/internal/reports/usecase"
	trackRepoPkg "github.com/opsdesk/fulfillment-service/internal/tracking/repository"
	trackUCPkg "github.com/opsdesk/fulfillment-service/internal/tracking/usecase"
	"github.com/opsdesk/fulfillment-service/internal/updates"
	updRepoPkg "github.com/opsdesk/fulfillment-service/internal/updates/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     false,
		DisableStacktrace: false,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, caching disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 5. External clients
	omsClient := oms.NewHTTPClient(cfg.OMS.Domain, cfg.OMS.Username, cfg.OMS.Password)
	carrierClient := oms.NewScurriClient(cfg.Tracking.BaseURL, cfg.Tracking.APIKey)
	appMailer := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.FromEmail,
		Debug:    cfg.Server.Debug,
	}, appLogger)
	appClock := clock.Real{}

	bridge := taskbridge.NewKafkaBridge(cfg.Kafka.Brokers, cfg.Kafka.Topic, appClock)
	defer bridge.Close()

	// 6. Repositories and use cases
	refRepo := refRepoPkg.NewPGRepository(db)
	catRepo := catRepoPkg.NewPGRepository(db)
	updRepo := updRepoPkg.NewPGRepository(db)
	maniRepo := maniRepoPkg.NewPGRepository(db)
	fbaRepo := fbaRepoPkg.NewPGRepository(db)
	trackRepo := trackRepoPkg.NewPGRepository(db)
	repRepo := repRepoPkg.NewPGRepository(db)

	catUC := catUCPkg.NewCatalogUseCase(catRepo, omsClient, redisClient, cfg.Server.Debug, appLogger)
	coordinator := updates.NewCoordinator(updRepo, appClock, appLogger)
	trackUC := trackUCPkg.NewTrackingUseCase(trackRepo, refRepo, carrierClient, appClock, appLogger)
	repUC := repUCPkg.NewReportsUseCase(repRepo, appMailer, appClock, appLogger,
		cfg.SMTP.PurchaseReportEmailTo)
	fbaUC := fbaUCPkg.NewFBAUseCase(fbaRepo, catUC, appClock, appLogger,
		cfg.FBA.InvoiceTemplatePath)

	manifestRules := maniUCPkg.Config{
		ManifestEmailTo: cfg.SMTP.ManifestEmailTo,
		DocketEmailTo:   cfg.SMTP.DocketEmailTo,
	}
	for _, ruleID := range cfg.Manifest.ShippingRuleIDs {
		manifestRules.Rules = append(manifestRules.Rules, oms.DispatchCandidatesRequest{
			ShippingRuleID: ruleID,
			OrderType:      cfg.Manifest.OrderType,
			NumberOfDays:   cfg.Manifest.NumberOfDays,
		})
	}
	maniUC := maniUCPkg.NewManifestUseCase(maniRepo, refRepo, omsClient, bridge, appMailer,
		appClock, appLogger, manifestRules)

	// 7. HTTP server
	server := api.NewServer(maniUC, fbaUC, trackUC, repUC, coordinator, bridge, appLogger)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 8. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Shutting down API server", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
