package config

// EnvPrefix namespaces every environment variable the services read.
const EnvPrefix = "GANADERIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "GANADERIA_APP_ENV"
	EnvPort                   = "GANADERIA_APP_PORT"
	EnvDBDSN                  = "GANADERIA_DB_DSN"
	EnvDBHost                 = "GANADERIA_DB_HOST"
	EnvDBUser                 = "GANADERIA_DB_USER"
	EnvDBName                 = "GANADERIA_DB_NAME"
	EnvRedisURL               = "GANADERIA_REDIS_URL"
	EnvJWTSecret              = "GANADERIA_JWT_SECRET"
	EnvJWTIssuer              = "GANADERIA_JWT_ISSUER"
	EnvJWTExpMins             = "GANADERIA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "GANADERIA_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "GANADERIA_GCP_PROJECT_ID"
	EnvPubSubPaymentsTopic    = "GANADERIA_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubPaymentsSub      = "GANADERIA_PUBSUB_PAYMENTS_SUBSCRIPTION"
	EnvPubSubNotificationSub  = "GANADERIA_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvEpaycoPublicKey        = "GANADERIA_EPAYCO_PUBLIC_KEY"
	EnvEpaycoPrivateKey       = "GANADERIA_EPAYCO_PRIVATE_KEY"
	EnvEpaycoCustomerID       = "GANADERIA_EPAYCO_CUSTOMER_ID"
	EnvEpaycoPKey             = "GANADERIA_EPAYCO_P_KEY"
	EnvEpaycoResponseURL      = "GANADERIA_EPAYCO_RESPONSE_URL"
	EnvEpaycoConfirmationURL  = "GANADERIA_EPAYCO_CONFIRMATION_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
