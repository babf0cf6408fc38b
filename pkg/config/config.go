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
	FeatureFlags FeatureFlagsConfig
	Calendar     CalendarConfig
	Cron         CronConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Calendar.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validateProd(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateProd rejects settings that are only safe for local use. SQLite ignores row
// locks, so production stock accounting requires postgres.
func (c *Config) validateProd() error {
	if !c.App.IsProd() {
		return nil
	}
	if c.DB.IsSQLite() {
		return fmt.Errorf("%s is not allowed when %s=%s", EnvUseSQLite, EnvAppEnv, c.App.Env)
	}
	for _, origin := range c.App.CORSOrigins {
		if strings.TrimSpace(origin) == "*" {
			return fmt.Errorf("wildcard CORS origin is not allowed when %s=%s", EnvAppEnv, c.App.Env)
		}
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"GEARSTAGE_APP_ENV" required:"true"`
	Port         string `envconfig:"GEARSTAGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEARSTAGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEARSTAGE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"GEARSTAGE_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"GEARSTAGE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"GEARSTAGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GEARSTAGE_DB_DSN"`
	Driver string `envconfig:"GEARSTAGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GEARSTAGE_DB_HOST"`
	LegacyPort     int    `envconfig:"GEARSTAGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GEARSTAGE_DB_USER"`
	LegacyPassword string `envconfig:"GEARSTAGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GEARSTAGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GEARSTAGE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"GEARSTAGE_SQLITE_PATH" default:"gearstage.db"`

	MaxOpenConns    int           `envconfig:"GEARSTAGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEARSTAGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEARSTAGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEARSTAGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEARSTAGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GEARSTAGE_REDIS_ADDR"`
	Password     string        `envconfig:"GEARSTAGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEARSTAGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEARSTAGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEARSTAGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEARSTAGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEARSTAGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEARSTAGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GEARSTAGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GEARSTAGE_AUTO_MIGRATE" default:"false"`
}

// CalendarConfig configures the Google Calendar mirror.
type CalendarConfig struct {
	Enabled         bool          `envconfig:"GEARSTAGE_CALENDAR_ENABLED" default:"false"`
	CalendarID      string        `envconfig:"GEARSTAGE_CALENDAR_ID"`
	CredentialsJSON string        `envconfig:"GEARSTAGE_CALENDAR_CREDENTIALS_JSON"`
	SiteURLBase     string        `envconfig:"GEARSTAGE_SITE_URL_BASE" default:"http://localhost:3000/events"`
	RetryAttempts   int           `envconfig:"GEARSTAGE_CALENDAR_RETRY_ATTEMPTS" default:"3"`
	RetryStep       time.Duration `envconfig:"GEARSTAGE_CALENDAR_RETRY_STEP" default:"1s"`
	RequestTimeout  time.Duration `envconfig:"GEARSTAGE_CALENDAR_REQUEST_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"GEARSTAGE_CRON_INTERVAL" default:"15m"`
	ResyncBatchSize int           `envconfig:"GEARSTAGE_CRON_RESYNC_BATCH_SIZE" default:"50"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"GEARSTAGE_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig throttles mutating API calls. A zero window disables limiting.
type RateLimitConfig struct {
	Window     time.Duration `envconfig:"GEARSTAGE_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit    int           `envconfig:"GEARSTAGE_RATE_LIMIT_IP" default:"120"`
	ActorLimit int           `envconfig:"GEARSTAGE_RATE_LIMIT_ACTOR" default:"60"`
}

func (c CalendarConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	missing := []string{}
	if strings.TrimSpace(c.CalendarID) == "" {
		missing = append(missing, EnvCalendarID)
	}
	if strings.TrimSpace(c.CredentialsJSON) == "" {
		missing = append(missing, EnvCalendarCredentials)
	}
	if len(missing) > 0 {
		return fmt.Errorf("calendar mirror enabled but %s missing", strings.Join(missing, ", "))
	}
	return nil
}

// IsSQLite reports whether the local single-file database is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
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
