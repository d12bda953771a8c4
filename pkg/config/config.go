package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "farmlink"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Locks        LockConfig
	Idempotency  IdempotencyConfig
	Procurement  ProcurementConfig
	PubSub       PubSubConfig
	Integrations IntegrationsConfig
	Retention    RetentionConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FARMLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMLINK_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FARMLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FARMLINK_DB_DSN"`
	Driver string `envconfig:"FARMLINK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FARMLINK_DB_HOST"`
	Port     int    `envconfig:"FARMLINK_DB_PORT" default:"5432"`
	User     string `envconfig:"FARMLINK_DB_USER"`
	Password string `envconfig:"FARMLINK_DB_PASSWORD"`
	Name     string `envconfig:"FARMLINK_DB_NAME"`
	SSLMode  string `envconfig:"FARMLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("db dsn or host/user/name are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMLINK_REDIS_URL"`
	Address      string        `envconfig:"FARMLINK_REDIS_ADDR"`
	Password     string        `envconfig:"FARMLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMLINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMLINK_JWT_ISSUER" default:"farmlink"`
	ExpirationMinutes int    `envconfig:"FARMLINK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LockConfig bounds the per-aggregate lease behaviour.
type LockConfig struct {
	LeaseTTL      time.Duration `envconfig:"FARMLINK_LOCK_LEASE_TTL" default:"30s"`
	WaitTimeout   time.Duration `envconfig:"FARMLINK_LOCK_WAIT_TIMEOUT" default:"5s"`
	RetryInterval time.Duration `envconfig:"FARMLINK_LOCK_RETRY_INTERVAL" default:"100ms"`
}

// IdempotencyConfig bounds how long completed operation results are kept.
type IdempotencyConfig struct {
	Retention time.Duration `envconfig:"FARMLINK_IDEMPOTENCY_RETENTION" default:"720h"`
}

// ProcurementConfig carries the deduction rates and recommendation weights.
// It is passed to the recommendation engine and the deduction calculator at
// construction time rather than read from ambient state.
type ProcurementConfig struct {
	MortalityPenaltyPerUnit decimal.Decimal `envconfig:"FARMLINK_MORTALITY_PENALTY_PER_UNIT" default:"25.00"`
	QualityPenaltyPerUnit   decimal.Decimal `envconfig:"FARMLINK_QUALITY_PENALTY_PER_UNIT" default:"5.00"`

	BusinessRegistrationScore int  `envconfig:"FARMLINK_SCORE_BUSINESS_REGISTRATION" default:"100"`
	SettlementAccountScore    int  `envconfig:"FARMLINK_SCORE_SETTLEMENT_ACCOUNT" default:"50"`
	InventoryScoreCap         int  `envconfig:"FARMLINK_SCORE_INVENTORY_CAP" default:"100"`
	DistressBonusEnabled      bool `envconfig:"FARMLINK_DISTRESS_BONUS_ENABLED" default:"true"`

	MaxFarmsPerOrder   int  `envconfig:"FARMLINK_MAX_FARMS_PER_ORDER" default:"5"`
	SeparationOfDuties bool `envconfig:"FARMLINK_SEPARATION_OF_DUTIES" default:"true"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"FARMLINK_GCP_PROJECT_ID"`
	EventsTopic string `envconfig:"FARMLINK_PUBSUB_EVENTS_TOPIC" default:"farmlink-fulfillment-events"`
}

// Enabled reports whether a pubsub dispatcher should be wired at all.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != ""
}

// IntegrationsConfig points at the external collaborators the API consumes.
type IntegrationsConfig struct {
	DirectoryBaseURL string        `envconfig:"FARMLINK_DIRECTORY_BASE_URL"`
	DirectoryAPIKey  string        `envconfig:"FARMLINK_DIRECTORY_API_KEY"`
	RailBaseURL      string        `envconfig:"FARMLINK_PAYMENT_RAIL_BASE_URL"`
	RailAPIKey       string        `envconfig:"FARMLINK_PAYMENT_RAIL_API_KEY"`
	Timeout          time.Duration `envconfig:"FARMLINK_INTEGRATIONS_TIMEOUT" default:"10s"`
}

type RetentionConfig struct {
	Interval time.Duration `envconfig:"FARMLINK_RETENTION_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"FARMLINK_RETENTION_LOCK_TTL" default:"25h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FARMLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FARMLINK_AUTO_MIGRATE" default:"false"`
}
