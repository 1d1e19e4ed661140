package config

const (
	EnvPrefix = "TOKENOMICS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "TOKENOMICS_APP_ENV"
	EnvPort   = "TOKENOMICS_APP_PORT"

	EnvDBDSN  = "TOKENOMICS_DB_DSN"
	EnvDBHost = "TOKENOMICS_DB_HOST"
	EnvDBUser = "TOKENOMICS_DB_USER"
	EnvDBName = "TOKENOMICS_DB_NAME"

	EnvRedisURL = "TOKENOMICS_REDIS_URL"

	EnvJWTSecret = "TOKENOMICS_JWT_SECRET"
	EnvJWTIssuer = "TOKENOMICS_JWT_ISSUER"

	EnvBasePrice           = "TOKENOMICS_BASE_PRICE"
	EnvTotalSupply         = "TOKENOMICS_TOTAL_SUPPLY"
	EnvTotalUserAllocation = "TOKENOMICS_TOTAL_USER_ALLOCATION"
	EnvReferralBonusRate   = "TOKENOMICS_REFERRAL_BONUS_RATE"
	EnvMaxInflationFactor  = "TOKENOMICS_MAX_INFLATION_FACTOR"

	EnvCronSweepInterval = "TOKENOMICS_CRON_SWEEP_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
