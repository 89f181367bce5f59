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
	Reconcile    ReconcileConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	Env          string `envconfig:"MOSTRADOR_APP_ENV" required:"true"`
	Port         string `envconfig:"MOSTRADOR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOSTRADOR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOSTRADOR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOSTRADOR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MOSTRADOR_DB_DSN"`
	Driver string `envconfig:"MOSTRADOR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MOSTRADOR_DB_HOST"`
	Port     int    `envconfig:"MOSTRADOR_DB_PORT" default:"5432"`
	User     string `envconfig:"MOSTRADOR_DB_USER"`
	Password string `envconfig:"MOSTRADOR_DB_PASSWORD"`
	Name     string `envconfig:"MOSTRADOR_DB_NAME"`
	SSLMode  string `envconfig:"MOSTRADOR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOSTRADOR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOSTRADOR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOSTRADOR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOSTRADOR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MOSTRADOR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOSTRADOR_REDIS_ADDR"`
	Password     string        `envconfig:"MOSTRADOR_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOSTRADOR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOSTRADOR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOSTRADOR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOSTRADOR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOSTRADOR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOSTRADOR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MOSTRADOR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MOSTRADOR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MOSTRADOR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MOSTRADOR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MOSTRADOR_AUTO_MIGRATE" default:"false"`
}

type ReconcileConfig struct {
	Interval    time.Duration `envconfig:"MOSTRADOR_RECONCILE_INTERVAL" default:"24h"`
	LockTTL     time.Duration `envconfig:"MOSTRADOR_RECONCILE_LOCK_TTL" default:"1h"`
	AutoCorrect bool          `envconfig:"MOSTRADOR_RECONCILE_AUTO_CORRECT" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOSTRADOR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOSTRADOR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOSTRADOR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MOSTRADOR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	LedgerTopic        string `envconfig:"MOSTRADOR_PUBSUB_LEDGER_TOPIC" default:"mostrador-ledger-events"`
	LedgerSubscription string `envconfig:"MOSTRADOR_PUBSUB_LEDGER_SUBSCRIPTION"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
