package config

const (
	EnvPrefix = "GEARSTAGE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv    = "GEARSTAGE_APP_ENV"
	EnvPort      = "GEARSTAGE_APP_PORT"
	EnvDBDSN     = "GEARSTAGE_DB_DSN"
	EnvDBHost    = "GEARSTAGE_DB_HOST"
	EnvDBUser    = "GEARSTAGE_DB_USER"
	EnvDBName    = "GEARSTAGE_DB_NAME"
	EnvRedisURL  = "GEARSTAGE_REDIS_URL"
	EnvUseSQLite = "GEARSTAGE_USE_SQLITE"

	EnvCalendarEnabled     = "GEARSTAGE_CALENDAR_ENABLED"
	EnvCalendarID          = "GEARSTAGE_CALENDAR_ID"
	EnvCalendarCredentials = "GEARSTAGE_CALENDAR_CREDENTIALS_JSON"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
