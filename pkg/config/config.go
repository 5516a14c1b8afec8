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
	Paystack     PaystackConfig
	Escrow       EscrowConfig
	Cron         CronConfig
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
	Env          string `envconfig:"HANDOVA_APP_ENV" required:"true"`
	Port         string `envconfig:"HANDOVA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HANDOVA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HANDOVA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"HANDOVA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"HANDOVA_DB_DSN"`
	Driver string `envconfig:"HANDOVA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HANDOVA_DB_HOST"`
	LegacyPort     int    `envconfig:"HANDOVA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HANDOVA_DB_USER"`
	LegacyPassword string `envconfig:"HANDOVA_DB_PASSWORD"`
	LegacyName     string `envconfig:"HANDOVA_DB_NAME"`
	LegacySSLMode  string `envconfig:"HANDOVA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HANDOVA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HANDOVA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HANDOVA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HANDOVA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HANDOVA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"HANDOVA_REDIS_ADDR"`
	Password     string        `envconfig:"HANDOVA_REDIS_PASSWORD"`
	DB           int           `envconfig:"HANDOVA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HANDOVA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HANDOVA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HANDOVA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HANDOVA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HANDOVA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HANDOVA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HANDOVA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HANDOVA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PaystackConfig struct {
	SecretKey   string        `envconfig:"HANDOVA_PAYSTACK_SECRET_KEY"`
	BaseURL     string        `envconfig:"HANDOVA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	Currency    string        `envconfig:"HANDOVA_PAYSTACK_CURRENCY" default:"ZAR"`
	CallbackURL string        `envconfig:"HANDOVA_PAYSTACK_CALLBACK_URL"`
	Timeout     time.Duration `envconfig:"HANDOVA_PAYSTACK_TIMEOUT" default:"15s"`
}

// EscrowConfig tunes the order state machine.
type EscrowConfig struct {
	ReleaseWindowHours int `envconfig:"HANDOVA_ESCROW_RELEASE_WINDOW_HOURS" default:"72"`
	MaxReleaseAttempts int `envconfig:"HANDOVA_ESCROW_MAX_RELEASE_ATTEMPTS" default:"5"`
}

// ReleaseWindow returns the window a pending order stays claimable.
func (e EscrowConfig) ReleaseWindow() time.Duration {
	if e.ReleaseWindowHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(e.ReleaseWindowHours) * time.Hour
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HANDOVA_CRON_INTERVAL" default:"6h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"HANDOVA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"HANDOVA_AUTO_MIGRATE" default:"false"`
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
