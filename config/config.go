package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
	OMS      OMSConfig
	Tracking TrackingConfig
	Exchange ExchangeConfig
	Exports  ExportsConfig
	Manifest ManifestConfig
	FBA      FBAConfig
}

type ServerConfig struct {
	AppEnv string
	Port   string
	// Debug suppresses side-effecting writes against the OMS and real email
	// sends, surfacing warnings instead.
	Debug bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type SMTPConfig struct {
	Host                  string
	Port                  int
	User                  string
	Password              string
	FromEmail             string
	ManifestEmailTo       string
	DocketEmailTo         string
	PurchaseReportEmailTo string
}

type OMSConfig struct {
	Domain   string
	Username string
	Password string
}

type TrackingConfig struct {
	BaseURL string
	APIKey  string
}

type ExchangeConfig struct {
	RateURL string
}

// ManifestConfig selects which shipping rules feed the ITD manifest; the
// order type and day window are the provider's filter knobs.
type ManifestConfig struct {
	ShippingRuleIDs []string
	OrderType       int
	NumberOfDays    int
}

type FBAConfig struct {
	InvoiceTemplatePath string
}

// ExportsConfig holds the integrator's export directory prefixes.
type ExportsConfig struct {
	InventoryFilePath       string
	ChannelItemsFilePath    string
	ProcessedOrdersFilePath string
	StockLevelFilePath      string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv: getEnv("APP_ENV", "dev"),
			Port:   getEnv("HTTP_PORT", "8080"),
			Debug:  getEnvBool("DEBUG", false),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "fulfillment"),
			Password:        getEnv("POSTGRES_PASSWORD", "fulfillment"),
			DBName:          getEnv("POSTGRES_DB", "fulfillment"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC_TASKS", "fulfillment.tasks"),
			GroupID: getEnv("KAFKA_GROUP_WORKER", "fulfillment-worker"),
		},
		SMTP: SMTPConfig{
			Host:                  getEnv("SMTP_HOST", "localhost"),
			Port:                  getEnvInt("SMTP_PORT", 587),
			User:                  getEnv("SMTP_USER", ""),
			Password:              getEnv("SMTP_PASSWORD", ""),
			FromEmail:             getEnv("FROM_EMAIL", "noreply@example.com"),
			ManifestEmailTo:       getEnv("MANIFEST_EMAIL_TO", ""),
			DocketEmailTo:         getEnv("DOCKET_EMAIL_TO", ""),
			PurchaseReportEmailTo: getEnv("PURCHASE_REPORT_EMAIL_TO", ""),
		},
		OMS: OMSConfig{
			Domain:   getEnv("OMS_DOMAIN", ""),
			Username: getEnv("OMS_USERNAME", ""),
			Password: getEnv("OMS_PASSWORD", ""),
		},
		Tracking: TrackingConfig{
			BaseURL: getEnv("TRACKING_BASE_URL", "https://api.scurri.co.uk"),
			APIKey:  getEnv("TRACKING_API_KEY", ""),
		},
		Exchange: ExchangeConfig{
			RateURL: getEnv("EXCHANGE_RATE_URL", "https://api.exchangerate-api.com/v4/latest/GBP"),
		},
		Manifest: ManifestConfig{
			ShippingRuleIDs: getEnvSlice("MANIFEST_SHIPPING_RULE_IDS", nil),
			OrderType:       getEnvInt("MANIFEST_ORDER_TYPE", 0),
			NumberOfDays:    getEnvInt("MANIFEST_NUMBER_OF_DAYS", 1),
		},
		FBA: FBAConfig{
			InvoiceTemplatePath: getEnv("FBA_INVOICE_TEMPLATE_PATH", "templates/customs_invoice.xlsx"),
		},
		Exports: ExportsConfig{
			InventoryFilePath:       getEnv("INVENTORY_EXPORT_FILE_PATH", ""),
			ChannelItemsFilePath:    getEnv("CHANNEL_ITEMS_EXPORT_FILE_PATH", ""),
			ProcessedOrdersFilePath: getEnv("PROCESSED_ORDERS_EXPORT_FILE_PATH", ""),
			StockLevelFilePath:      getEnv("STOCK_LEVEL_EXPORT_FILE_PATH", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}
