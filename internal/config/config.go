package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Database  DatabaseConfig  `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Kafka     KafkaConfig     `envconfig:"KAFKA"`
	Midtrans  MidtransConfig  `envconfig:"MIDTRANS"`
	Storage   StorageConfig   `envconfig:"STORAGE"`
	Email     EmailConfig     `envconfig:"EMAIL"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Affiliate AffiliateConfig `envconfig:"AFFILIATE"`
	Log       LogConfig       `envconfig:"LOG"`
}

type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8084"`
	ReadTimeout    time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout    time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

type DatabaseConfig struct {
	DSN          string        `envconfig:"POSTGRES_DSN"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	MaxLifetime  time.Duration `envconfig:"MAX_LIFETIME" default:"5m"`
	AutoMigrate  bool          `envconfig:"AUTO_MIGRATE" default:"true"`
}

type RedisConfig struct {
	Addr         string        `envconfig:"ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PASSWORD"`
	DB           int           `envconfig:"DB" default:"0"`
	WebhookLock  time.Duration `envconfig:"WEBHOOK_LOCK_TTL" default:"30s"`
	RoleCacheTTL time.Duration `envconfig:"ROLE_CACHE_TTL" default:"5m"`
}

type KafkaConfig struct {
	Enabled       bool        `envconfig:"ENABLED" default:"true"`
	Brokers       []string    `envconfig:"BROKERS" default:"localhost:9092"`
	ConsumerGroup string      `envconfig:"CONSUMER_GROUP" default:"booking-service"`
	Topics        TopicConfig `envconfig:"TOPIC"`
}

type TopicConfig struct {
	BookingCreated      string `envconfig:"BOOKING_CREATED" default:"booking.created"`
	BookingPaid         string `envconfig:"BOOKING_PAID" default:"booking.paid"`
	BookingStatus       string `envconfig:"BOOKING_STATUS" default:"booking.status_changed"`
	WithdrawalProcessed string `envconfig:"WITHDRAWAL_PROCESSED" default:"withdrawal.processed"`
	FulfillmentRetry    string `envconfig:"FULFILLMENT_RETRY" default:"booking.fulfillment_retry"`
}

func (t TopicConfig) All() []string {
	return []string{t.BookingCreated, t.BookingPaid, t.BookingStatus, t.WithdrawalProcessed, t.FulfillmentRetry}
}

type MidtransConfig struct {
	ServerKey    string `envconfig:"SERVER_KEY"`
	ClientKey    string `envconfig:"CLIENT_KEY"`
	IsProduction bool   `envconfig:"IS_PRODUCTION" default:"false"`
}

type StorageConfig struct {
	Bucket        string `envconfig:"BUCKET" default:"tickets"`
	Region        string `envconfig:"REGION" default:"auto"`
	Endpoint      string `envconfig:"ENDPOINT"`
	AccessKey     string `envconfig:"ACCESS_KEY"`
	SecretKey     string `envconfig:"SECRET_KEY"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
	TicketPrefix  string `envconfig:"TICKET_PREFIX" default:"tickets"`
}

type EmailConfig struct {
	Enabled      bool   `envconfig:"ENABLED" default:"true"`
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`
	From         string `envconfig:"FROM" default:"Tickets <tickets@example.com>"`
}

type AuthConfig struct {
	JWTSecret     string `envconfig:"JWT_SECRET"`
	OIDCIssuer    string `envconfig:"OIDC_ISSUER"`
	OIDCClientID  string `envconfig:"OIDC_CLIENT_ID"`
	SuperAdminUID string `envconfig:"SUPER_ADMIN_UID"`
}

type AffiliateConfig struct {
	CommissionRatePercent float64 `envconfig:"COMMISSION_RATE_PERCENT" default:"10"`
}

type LogConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
	Dir   string `envconfig:"DIR" default:"logs"`
}

// Load reads the process environment. Callers load .env beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every missing mandatory setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "DB_POSTGRES_DSN")
	}
	if c.Midtrans.ServerKey == "" {
		missing = append(missing, "MIDTRANS_SERVER_KEY")
	}
	if c.Auth.JWTSecret == "" && c.Auth.OIDCIssuer == "" {
		missing = append(missing, "AUTH_JWT_SECRET or AUTH_OIDC_ISSUER")
	}
	if c.Affiliate.CommissionRatePercent < 0 || c.Affiliate.CommissionRatePercent > 100 {
		return errors.New("AFFILIATE_COMMISSION_RATE_PERCENT must be within [0,100]")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
