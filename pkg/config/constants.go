package config

const (
	EnvPrefix = "DENTALDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "DENTALDESK_APP_ENV"
	EnvPort        = "DENTALDESK_APP_PORT"
	EnvLogLevel    = "DENTALDESK_LOG_LEVEL"
	EnvServiceKind = "DENTALDESK_SERVICE_KIND"

	EnvDBDSN  = "DENTALDESK_DB_DSN"
	EnvDBHost = "DENTALDESK_DB_HOST"
	EnvDBUser = "DENTALDESK_DB_USER"
	EnvDBName = "DENTALDESK_DB_NAME"

	EnvRedisURL = "DENTALDESK_REDIS_URL"

	EnvJWTSecret = "DENTALDESK_JWT_SECRET"
	EnvJWTIssuer = "DENTALDESK_JWT_ISSUER"

	EnvGCPProjectID       = "DENTALDESK_GCP_PROJECT_ID"
	EnvProofBucket        = "DENTALDESK_PROOF_BUCKET"
	EnvProofReadURLExpiry = "DENTALDESK_PROOF_READ_URL_EXPIRY"
	EnvProofMaxUploadMB   = "DENTALDESK_PROOF_MAX_UPLOAD_MB"

	EnvPubSubDomainTopic = "DENTALDESK_PUBSUB_DOMAIN_TOPIC"

	EnvBillingIQDPerUSD = "DENTALDESK_BILLING_IQD_PER_USD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
