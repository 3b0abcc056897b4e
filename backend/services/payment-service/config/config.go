package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8087"`
	Env         string `env:"ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"payment-service"`

	OrderStore        string `env:"ORDER_STORE" envDefault:"postgres"`
	OrdersDynamoTable string `env:"ORDERS_DYNAMO_TABLE" envDefault:"orders"`

	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresDB       string `env:"POSTGRES_DB"`
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresTimeZone string `env:"POSTGRES_TIMEZONE" envDefault:"UTC"`
	DBMaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns   int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	WebhookSecret        string        `env:"PAYMENT_WEBHOOK_SECRET"`
	EnforceEventOrdering bool          `env:"ENFORCE_EVENT_ORDERING" envDefault:"false"`
	NotifyTimeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	OrderEventsTopicARN   string   `env:"ORDER_EVENTS_SNS_TOPIC_ARN"`
	KafkaBrokers          []string `env:"KAFKA_BROKERS" envSeparator:","`
	OrderEventsKafkaTopic string   `env:"ORDER_EVENTS_KAFKA_TOPIC" envDefault:"order-events"`

	RedisURL  string        `env:"REDIS_URL"`
	DedupeTTL time.Duration `env:"DEDUPE_TTL" envDefault:"24h"`

	WebhookQueueURL          string `env:"PAYMENT_WEBHOOK_QUEUE_URL"`
	WebhookVisibilityTimeout int32  `env:"PAYMENT_WEBHOOK_VISIBILITY_TIMEOUT" envDefault:"60"`

	AdminRateLimit float64 `env:"ADMIN_RATE_LIMIT" envDefault:"5"`
	AdminRateBurst int     `env:"ADMIN_RATE_BURST" envDefault:"10"`

	CloudWatchEnabled   bool   `env:"CLOUDWATCH_ENABLED" envDefault:"false"`
	CloudWatchNamespace string `env:"CLOUDWATCH_NAMESPACE" envDefault:"PrintForge"`
	CloudWatchLogGroup  string `env:"CLOUDWATCH_LOG_GROUP" envDefault:"/printforge/payment-service"`

	UseSecrets bool   `env:"AWS_USE_SECRETS" envDefault:"false"`
	SecretsID  string `env:"PAYMENT_SECRETS_ID" envDefault:"payment/SECRETS"`
}

// SecretSource fetches a JSON secret as a flat string map. *aws.SecretsClient satisfies it.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.LoadConfig: %w", err)
	}
	cfg.OrderStore = strings.ToLower(strings.TrimSpace(cfg.OrderStore))
	return &cfg, nil
}

// ApplySecrets overrides database credentials and the webhook secret with the values
// stored in Secrets Manager under SecretsID. Keys absent from the secret are left alone.
func (c *Config) ApplySecrets(ctx context.Context, src SecretSource) error {
	m, err := src.GetSecretMap(ctx, c.SecretsID)
	if err != nil {
		return fmt.Errorf("config.ApplySecrets: %w", err)
	}
	overrides := map[string]*string{
		"POSTGRES_USER":          &c.PostgresUser,
		"POSTGRES_PASSWORD":      &c.PostgresPassword,
		"POSTGRES_DB":            &c.PostgresDB,
		"POSTGRES_HOST":          &c.PostgresHost,
		"POSTGRES_PORT":          &c.PostgresPort,
		"PAYMENT_WEBHOOK_SECRET": &c.WebhookSecret,
		"SMTP_PASS":              &c.SMTPPass,
	}
	for key, dst := range overrides {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings required by the selected components.
func (c *Config) Validate() error {
	var errs []error
	switch c.OrderStore {
	case StorePostgres:
		if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
			errs = append(errs, errors.New("POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DB and POSTGRES_HOST are required for the postgres order store"))
		}
	case StoreDynamoDB:
		if c.OrdersDynamoTable == "" {
			errs = append(errs, errors.New("ORDERS_DYNAMO_TABLE is required for the dynamodb order store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ORDER_STORE %q", c.OrderStore))
	}
	if c.IsProduction() && c.WebhookSecret == "" {
		errs = append(errs, errors.New("PAYMENT_WEBHOOK_SECRET is required in production"))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive"))
	}
	if c.RedisURL != "" && c.DedupeTTL <= 0 {
		errs = append(errs, errors.New("DEDUPE_TTL must be positive when REDIS_URL is set"))
	}
	return errors.Join(errs...)
}

// PostgresDSN builds the gorm postgres DSN.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}
