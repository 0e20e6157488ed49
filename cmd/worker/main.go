package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsdesk/fulfillment-service/config"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/taskbridge"
	"github.com/opsdesk/fulfillment-service/pkg/cache"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/opsdesk/fulfillment-service/pkg/mailer"
	"github.com/opsdesk/fulfillment-service/pkg/postgres"

	catRepoPkg "github.com/opsdesk/fulfillment-service/internal/catalog/repository"
	catUCPkg "github.com/opsdesk/fulfillment-service/internal/catalog/usecase"
	maniRepoPkg "github.com/opsdesk/fulfillment-service/internal/manifest/repository"
	maniUCPkg "github.com/opsdesk/fulfillment-service/internal/manifest/usecase"
	ordRepoPkg "github.com/opsdesk/fulfillment-service/internal/orders/repository"
	ordUCPkg "github.com/opsdesk/fulfillment-service/internal/orders/usecase"
	refRepoPkg "github.com/opsdesk/fulfillment-service/internal/reference/repository"
	refUCPkg "github.com/opsdesk/fulfillment-service/internal/reference/usecase"
	repRepoPkg "github.com/opsdesk/fulfillment-service/internal/reports/repository"
	repUCPkg "github.com/opsdesk/fulfillment-service/internal/reports/usecase"
	shipRepoPkg "github.com/opsdesk/fulfillment-service/internal/shipping/repository"
	shipUCPkg "github.com/opsdesk/fulfillment-service/internal/shipping/usecase"
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

	// 4. Initialize Redis. The catalog cache degrades to direct reads when
	// Redis is unavailable.
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
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
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

	// 6. Repositories
	refRepo := refRepoPkg.NewPGRepository(db)
	catRepo := catRepoPkg.NewPGRepository(db)
	shipRepo := shipRepoPkg.NewPGRepository(db)
	ordRepo := ordRepoPkg.NewPGRepository(db)
	updRepo := updRepoPkg.NewPGRepository(db)
	maniRepo := maniRepoPkg.NewPGRepository(db)
	trackRepo := trackRepoPkg.NewPGRepository(db)
	repRepo := repRepoPkg.NewPGRepository(db)

	// 7. Use cases
	refUC := refUCPkg.NewReferenceUseCase(refRepo, &http.Client{Timeout: 30 * time.Second},
		cfg.Exchange.RateURL, appClock, appLogger)
	catUC := catUCPkg.NewCatalogUseCase(catRepo, omsClient, redisClient, cfg.Server.Debug, appLogger)
	pricer := shipUCPkg.NewPricer(shipRepo, appLogger)
	coordinator := updates.NewCoordinator(updRepo, appClock, appLogger)
	ordUC := ordUCPkg.NewOrderUseCase(ordRepo, refRepo, catUC, pricer, omsClient, omsClient,
		coordinator, appClock, appLogger, cfg.Exports.ProcessedOrdersFilePath)
	trackUC := trackUCPkg.NewTrackingUseCase(trackRepo, refRepo, carrierClient, appClock, appLogger)
	repUC := repUCPkg.NewReportsUseCase(repRepo, appMailer, appClock, appLogger,
		cfg.SMTP.PurchaseReportEmailTo)

	bridge := taskbridge.NewKafkaBridge(cfg.Kafka.Brokers, cfg.Kafka.Topic, appClock)
	defer bridge.Close()

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

	// 8. Task worker. The bridge doubles as the requeue path for deferred
	// tasks that are not yet due.
	worker := taskbridge.NewWorker(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID,
		bridge, appClock, appLogger)
	defer worker.Close()

	worker.Register(taskbridge.TaskOrderUpdate, func(ctx context.Context, _ map[string]string) error {
		return ordUC.RunOrderUpdate(ctx)
	})
	worker.Register(taskbridge.TaskDetailsUpdate, func(ctx context.Context, _ map[string]string) error {
		return ordUC.RunDetailsUpdate(ctx)
	})
	worker.Register(taskbridge.TaskUpdateExchangeRates, func(ctx context.Context, _ map[string]string) error {
		return refUC.UpdateExchangeRates(ctx)
	})
	worker.Register(taskbridge.TaskUpdateTracking, func(ctx context.Context, _ map[string]string) error {
		if err := trackUC.UpdatePackages(ctx); err != nil {
			return err
		}
		return trackUC.BackfillPackages(ctx)
	})
	worker.Register(taskbridge.TaskMonthlyPurchaseExport, func(ctx context.Context, _ map[string]string) error {
		return repUC.SendMonthlyPurchaseReport(ctx)
	})
	worker.Register(taskbridge.TaskCloseManifest, func(ctx context.Context, args map[string]string) error {
		return maniUC.Close(ctx, args["manifest_id"])
	})
	worker.Register(taskbridge.TaskRegenerateManifest, func(ctx context.Context, args map[string]string) error {
		return maniUC.Regenerate(ctx, args["manifest_id"])
	})
	worker.Register(taskbridge.TaskClearFiles, func(ctx context.Context, args map[string]string) error {
		return maniUC.ClearFiles(ctx, args["manifest_id"])
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	// 9. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Shutting down worker", zap.String("signal", sig.String()))
	cancel()
}
