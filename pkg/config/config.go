package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"DESTELLO_APP_ENV" required:"true"`
	Port         string `envconfig:"DESTELLO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DESTELLO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DESTELLO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DESTELLO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DESTELLO_DB_DSN"`
	Driver string `envconfig:"DESTELLO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DESTELLO_DB_HOST"`
	LegacyPort     int    `envconfig:"DESTELLO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DESTELLO_DB_USER"`
	LegacyPassword string `envconfig:"DESTELLO_DB_PASSWORD"`
	LegacyName     string `envconfig:"DESTELLO_DB_NAME"`
	LegacySSLMode  string `envconfig:"DESTELLO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DESTELLO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DESTELLO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DESTELLO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DESTELLO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DESTELLO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DESTELLO_REDIS_ADDR"`
	Password     string        `envconfig:"DESTELLO_REDIS_PASSWORD"`
	DB           int           `envconfig:"DESTELLO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DESTELLO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DESTELLO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DESTELLO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DESTELLO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DESTELLO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"DESTELLO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"DESTELLO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"DESTELLO_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type FeatureFlagsConfig struct {
	AutoMigrate        bool `envconfig:"DESTELLO_AUTO_MIGRATE" default:"false"`
	RepairStockOnDrift bool `envconfig:"DESTELLO_REPAIR_STOCK_ON_DRIFT" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DESTELLO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DESTELLO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DESTELLO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"DESTELLO_PUBSUB_ORDERS_TOPIC" default:"destello-order-events"`
	OrdersSubscription    string `envconfig:"DESTELLO_PUBSUB_ORDERS_SUBSCRIPTION"`
	InventoryTopic        string `envconfig:"DESTELLO_PUBSUB_INVENTORY_TOPIC" default:"destello-inventory-events"`
	InventorySubscription string `envconfig:"DESTELLO_PUBSUB_INVENTORY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"DESTELLO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"DESTELLO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"DESTELLO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"DESTELLO_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"DESTELLO_CRON_INTERVAL" default:"1h"`
}

// CheckoutConfig holds the order pricing knobs. Fees are decimal strings so
// they survive env parsing without float rounding.
type CheckoutConfig struct {
	ShippingFlatFee  string `envconfig:"DESTELLO_SHIPPING_FLAT_FEE" default:"15.00"`
	FreeShippingOver string `envconfig:"DESTELLO_FREE_SHIPPING_OVER" default:"150.00"`
}

// RateLimitConfig throttles order placement per user. A zero window or
// limit disables the counter.
type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"DESTELLO_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"DESTELLO_RATE_LIMIT_CHECKOUT_LIMIT" default:"5"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
