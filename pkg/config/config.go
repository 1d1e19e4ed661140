package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
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
	Tokenomics   TokenomicsConfig
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
	if err := cfg.Tokenomics.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOKENOMICS_APP_ENV" required:"true"`
	Port         string `envconfig:"TOKENOMICS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TOKENOMICS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOKENOMICS_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"TOKENOMICS_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOKENOMICS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOKENOMICS_DB_DSN"`
	Driver string `envconfig:"TOKENOMICS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOKENOMICS_DB_HOST"`
	LegacyPort     int    `envconfig:"TOKENOMICS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOKENOMICS_DB_USER"`
	LegacyPassword string `envconfig:"TOKENOMICS_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOKENOMICS_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOKENOMICS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOKENOMICS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOKENOMICS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOKENOMICS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOKENOMICS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOKENOMICS_REDIS_URL"`
	Address      string        `envconfig:"TOKENOMICS_REDIS_ADDR"`
	Password     string        `envconfig:"TOKENOMICS_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOKENOMICS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOKENOMICS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOKENOMICS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOKENOMICS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOKENOMICS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOKENOMICS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"TOKENOMICS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOKENOMICS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOKENOMICS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TOKENOMICS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TOKENOMICS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"TOKENOMICS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"TOKENOMICS_PUBSUB_NOTIFICATION_TOPIC"`
}

// Enabled reports whether notifications should also be published to Pub/Sub.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.NotificationTopic) != ""
}

// TokenomicsConfig carries the economic constants of the token pool.
type TokenomicsConfig struct {
	BasePrice             decimal.Decimal `envconfig:"TOKENOMICS_BASE_PRICE" default:"0.001"`
	TotalSupply           decimal.Decimal `envconfig:"TOKENOMICS_TOTAL_SUPPLY" default:"10000000"`
	TotalUserAllocation   decimal.Decimal `envconfig:"TOKENOMICS_TOTAL_USER_ALLOCATION" default:"2000000"`
	ReferralBonusRate     decimal.Decimal `envconfig:"TOKENOMICS_REFERRAL_BONUS_RATE" default:"0.10"`
	MaxInflationFactor    decimal.Decimal `envconfig:"TOKENOMICS_MAX_INFLATION_FACTOR" default:"1000"`
	LowSupplyAlertPercent decimal.Decimal `envconfig:"TOKENOMICS_LOW_SUPPLY_ALERT_PERCENT" default:"90"`
	FeeCacheTTL           time.Duration   `envconfig:"TOKENOMICS_FEE_CACHE_TTL" default:"5s"`
}

func (t TokenomicsConfig) validate() error {
	if !t.BasePrice.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvBasePrice)
	}
	if !t.TotalUserAllocation.IsPositive() {
		return fmt.Errorf("%s must be positive", EnvTotalUserAllocation)
	}
	if t.TotalUserAllocation.GreaterThan(t.TotalSupply) {
		return fmt.Errorf("%s cannot exceed %s", EnvTotalUserAllocation, EnvTotalSupply)
	}
	if t.ReferralBonusRate.IsNegative() || t.ReferralBonusRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be within [0,1]", EnvReferralBonusRate)
	}
	if t.MaxInflationFactor.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be at least 1", EnvMaxInflationFactor)
	}
	return nil
}

type CronConfig struct {
	SweepInterval  time.Duration `envconfig:"TOKENOMICS_CRON_SWEEP_INTERVAL" default:"1h"`
	LockTTL        time.Duration `envconfig:"TOKENOMICS_CRON_LOCK_TTL" default:"55m"`
	SweepBatchSize int           `envconfig:"TOKENOMICS_CRON_SWEEP_BATCH_SIZE" default:"500"`

	// NotificationRetention is how long read notifications are kept.
	NotificationRetention time.Duration `envconfig:"TOKENOMICS_CRON_NOTIFICATION_RETENTION" default:"720h"`
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
