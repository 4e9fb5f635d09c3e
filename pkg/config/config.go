package config

import (
	"fmt"
	"net/url"
	"os"
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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	GCP          GCPConfig
	Storage      StorageConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Billing      BillingConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DENTALDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"DENTALDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DENTALDESK_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"DENTALDESK_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"DENTALDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DENTALDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DENTALDESK_DB_DSN"`
	Driver string `envconfig:"DENTALDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DENTALDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"DENTALDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DENTALDESK_DB_USER"`
	LegacyPassword string `envconfig:"DENTALDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"DENTALDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"DENTALDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DENTALDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DENTALDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DENTALDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DENTALDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"DENTALDESK_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DENTALDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DENTALDESK_REDIS_ADDR"`
	Password     string        `envconfig:"DENTALDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"DENTALDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DENTALDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DENTALDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DENTALDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DENTALDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DENTALDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret of the hosted identity provider. An
// empty Audience skips the aud check.
type JWTConfig struct {
	Secret   string        `envconfig:"DENTALDESK_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"DENTALDESK_JWT_ISSUER" required:"true"`
	Audience string        `envconfig:"DENTALDESK_JWT_AUDIENCE"`
	Leeway   time.Duration `envconfig:"DENTALDESK_JWT_LEEWAY" default:"30s"`
}

type RateLimitConfig struct {
	SubmissionWindow time.Duration `envconfig:"DENTALDESK_RATE_LIMIT_SUBMISSION_WINDOW" default:"10m"`
	SubmissionLimit  int           `envconfig:"DENTALDESK_RATE_LIMIT_SUBMISSION_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DENTALDESK_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"DENTALDESK_IDEMPOTENCY_ENABLED" default:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"DENTALDESK_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DENTALDESK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"DENTALDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DENTALDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

// Credentials returns the service account JSON from the inline value or the
// credentials file. Nil means fall back to ambient credentials.
func (g GCPConfig) Credentials() ([]byte, error) {
	if g.CredentialsJSON != "" {
		return []byte(g.CredentialsJSON), nil
	}
	if g.ApplicationCredentials == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(g.ApplicationCredentials)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	return raw, nil
}

// StorageConfig configures the proof-of-payment object store.
type StorageConfig struct {
	ProofBucket        string        `envconfig:"DENTALDESK_PROOF_BUCKET" default:"payment-screenshots"`
	ProofReadURLExpiry time.Duration `envconfig:"DENTALDESK_PROOF_READ_URL_EXPIRY" default:"15m"`
	ProofMaxUploadMB   int           `envconfig:"DENTALDESK_PROOF_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes returns the proof size limit in bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.ProofMaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(s.ProofMaxUploadMB) << 20
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"DENTALDESK_PUBSUB_DOMAIN_TOPIC" default:"dentaldesk-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DENTALDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DENTALDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DENTALDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"DENTALDESK_OUTBOX_RETENTION" default:"720h"`
}

// BillingConfig carries the local/reference currency pair used when
// recording subscriptions.
type BillingConfig struct {
	Currency          string `envconfig:"DENTALDESK_BILLING_CURRENCY" default:"IQD"`
	ReferenceCurrency string `envconfig:"DENTALDESK_BILLING_REFERENCE_CURRENCY" default:"USD"`
	IQDPerUSD         int64  `envconfig:"DENTALDESK_BILLING_IQD_PER_USD" default:"1500"`
}

func (b BillingConfig) validate() error {
	if b.IQDPerUSD <= 0 {
		return fmt.Errorf("%s must be positive", EnvBillingIQDPerUSD)
	}
	return nil
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"DENTALDESK_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"DENTALDESK_CRON_LOCK_TTL" default:"10m"`
	JobTimeout          time.Duration `envconfig:"DENTALDESK_CRON_JOB_TIMEOUT" default:"5m"`
	StalePendingPayment time.Duration `envconfig:"DENTALDESK_CRON_STALE_PENDING_AFTER" default:"72h"`
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
