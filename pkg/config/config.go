package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COURSEMARKET_DB_DSN"
	EnvDBHost = "COURSEMARKET_DB_HOST"
	EnvDBUser = "COURSEMARKET_DB_USER"
	EnvDBName = "COURSEMARKET_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Cart         CartConfig
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
	Env          string `envconfig:"COURSEMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSEMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURSEMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSEMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURSEMARKET_DB_DSN"`
	Driver string `envconfig:"COURSEMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURSEMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"COURSEMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURSEMARKET_DB_USER"`
	LegacyPassword string `envconfig:"COURSEMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURSEMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURSEMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURSEMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSEMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSEMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSEMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSEMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COURSEMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"COURSEMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSEMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSEMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSEMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSEMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSEMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSEMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURSEMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURSEMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURSEMARKET_JWT_EXPIRATION_MINUTES" default:"120"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COURSEMARKET_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COURSEMARKET_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COURSEMARKET_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COURSEMARKET_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COURSEMARKET_ARGON_KEY_LEN" default:"32"`
}

type CartConfig struct {
	ExpiryTTL        time.Duration `envconfig:"COURSEMARKET_CART_EXPIRY_TTL" default:"168h"`
	SweepGracePeriod time.Duration `envconfig:"COURSEMARKET_CART_SWEEP_GRACE" default:"72h"`
}

type CronConfig struct {
	Interval      time.Duration `envconfig:"COURSEMARKET_CRON_INTERVAL" default:"1h"`
	StaleOrderTTL time.Duration `envconfig:"COURSEMARKET_CRON_STALE_ORDER_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COURSEMARKET_AUTO_MIGRATE" default:"false"`
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
