package config

const (
	EnvPrefix = "BLISSMART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "BLISSMART_APP_ENV"
	EnvPort                   = "BLISSMART_APP_PORT"
	EnvLogLevel               = "BLISSMART_LOG_LEVEL"
	EnvDBDSN                  = "BLISSMART_DB_DSN"
	EnvDBHost                 = "BLISSMART_DB_HOST"
	EnvDBPort                 = "BLISSMART_DB_PORT"
	EnvDBUser                 = "BLISSMART_DB_USER"
	EnvDBPassword             = "BLISSMART_DB_PASSWORD"
	EnvDBName                 = "BLISSMART_DB_NAME"
	EnvUseSQLite              = "BLISSMART_USE_SQLITE"
	EnvRedisURL               = "BLISSMART_REDIS_URL"
	EnvJWTSecret              = "BLISSMART_JWT_SECRET"
	EnvJWTIssuer              = "BLISSMART_JWT_ISSUER"
	EnvJWTExpMins             = "BLISSMART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "BLISSMART_REFRESH_TOKEN_TTL_MINUTES"
	EnvOTPTTL                 = "BLISSMART_OTP_TTL"
	EnvOTPExpose              = "BLISSMART_OTP_EXPOSE_IN_RESPONSE"
	EnvFCMProjectID           = "BLISSMART_FCM_PROJECT_ID"
	EnvCORSAllowedOrigins     = "BLISSMART_CORS_ALLOWED_ORIGINS"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
