package config

// EnvPrefix is passed to envconfig; individual fields carry fully prefixed
// names so the prefix stays empty here.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv   = "MOSTRADOR_APP_ENV"
	EnvPort     = "MOSTRADOR_APP_PORT"
	EnvDBDSN    = "MOSTRADOR_DB_DSN"
	EnvDBHost   = "MOSTRADOR_DB_HOST"
	EnvDBUser   = "MOSTRADOR_DB_USER"
	EnvDBName   = "MOSTRADOR_DB_NAME"
	EnvRedisURL = "MOSTRADOR_REDIS_URL"

	EnvJWTSecret  = "MOSTRADOR_JWT_SECRET"
	EnvJWTIssuer  = "MOSTRADOR_JWT_ISSUER"
	EnvJWTExpMins = "MOSTRADOR_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "MOSTRADOR_GCP_PROJECT_ID"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
