package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Epayco        EpaycoConfig
	Payments      PaymentsConfig
	Cron          CronConfig
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
	Env          string `envconfig:"GANADERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"GANADERIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GANADERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GANADERIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GANADERIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GANADERIA_DB_DSN"`
	Driver string `envconfig:"GANADERIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GANADERIA_DB_HOST"`
	LegacyPort     int    `envconfig:"GANADERIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GANADERIA_DB_USER"`
	LegacyPassword string `envconfig:"GANADERIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"GANADERIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"GANADERIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GANADERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GANADERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GANADERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GANADERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GANADERIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GANADERIA_REDIS_ADDR"`
	Password     string        `envconfig:"GANADERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"GANADERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GANADERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GANADERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GANADERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GANADERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GANADERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GANADERIA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GANADERIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GANADERIA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GANADERIA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GANADERIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GANADERIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GANADERIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GANADERIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GANADERIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GANADERIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GANADERIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GANADERIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GANADERIA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GANADERIA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GANADERIA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GANADERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GANADERIA_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"GANADERIA_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GANADERIA_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"GANADERIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GANADERIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic            string `envconfig:"GANADERIA_PUBSUB_PAYMENTS_TOPIC" required:"true"`
	PaymentsSubscription     string `envconfig:"GANADERIA_PUBSUB_PAYMENTS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"GANADERIA_PUBSUB_NOTIFICATION_TOPIC" default:"gd-notification-events"`
	NotificationSubscription string `envconfig:"GANADERIA_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GANADERIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GANADERIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GANADERIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// EpaycoConfig carries the PSE gateway credentials and callback URLs.
type EpaycoConfig struct {
	BaseURL         string        `envconfig:"GANADERIA_EPAYCO_BASE_URL" default:"https://apify.epayco.co"`
	PublicKey       string        `envconfig:"GANADERIA_EPAYCO_PUBLIC_KEY" required:"true"`
	PrivateKey      string        `envconfig:"GANADERIA_EPAYCO_PRIVATE_KEY" required:"true"`
	CustomerID      string        `envconfig:"GANADERIA_EPAYCO_CUSTOMER_ID" required:"true"`
	PKey            string        `envconfig:"GANADERIA_EPAYCO_P_KEY" required:"true"`
	ResponseURL     string        `envconfig:"GANADERIA_EPAYCO_RESPONSE_URL" required:"true"`
	ConfirmationURL string        `envconfig:"GANADERIA_EPAYCO_CONFIRMATION_URL" required:"true"`
	Test            bool          `envconfig:"GANADERIA_EPAYCO_TEST" default:"true"`
	Timeout         time.Duration `envconfig:"GANADERIA_EPAYCO_TIMEOUT" default:"15s"`
}

// PaymentsConfig tunes the payment lifecycle engine.
type PaymentsConfig struct {
	VATRatePercent   int           `envconfig:"GANADERIA_PAYMENTS_VAT_RATE_PERCENT" default:"19"`
	TimeoutWindow    time.Duration `envconfig:"GANADERIA_PAYMENTS_TIMEOUT_WINDOW" default:"30m"`
	BankCacheTTL     time.Duration `envconfig:"GANADERIA_PAYMENTS_BANK_CACHE_TTL" default:"10m"`
	WebhookDedupeTTL time.Duration `envconfig:"GANADERIA_PAYMENTS_WEBHOOK_DEDUPE_TTL" default:"24h"`
}

// CronConfig tunes the background maintenance worker. The interval has to
// stay well under the payment timeout window or stale intents linger.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"GANADERIA_CRON_INTERVAL" default:"10m"`
	LockTTL                   time.Duration `envconfig:"GANADERIA_CRON_LOCK_TTL" default:"1h"`
	NotificationRetentionDays int           `envconfig:"GANADERIA_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"GANADERIA_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	OutboxMinAttempts         int           `envconfig:"GANADERIA_CRON_OUTBOX_MIN_ATTEMPTS" default:"5"`
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
