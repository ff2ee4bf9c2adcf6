package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	CommerceBackendNone    = "none"
	CommerceBackendShopify = "shopify"
	CommerceBackendSquare  = "square"

	AnalyticsSinkLog    = "log"
	AnalyticsSinkPubSub = "pubsub"

	defaultSQLiteDSN = "file:storefront.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvPort              = "STOREFRONT_APP_PORT"
	EnvDBDSN             = "STOREFRONT_DB_DSN"
	EnvDBHost            = "STOREFRONT_DB_HOST"
	EnvDBUser            = "STOREFRONT_DB_USER"
	EnvDBName            = "STOREFRONT_DB_NAME"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvUseSQLite         = "STOREFRONT_USE_SQLITE"
	EnvRazorpayKeyID     = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "STOREFRONT_RAZORPAY_KEY_SECRET"
	EnvCommerceBackend   = "STOREFRONT_COMMERCE_BACKEND"
	EnvShopifyDomain     = "STOREFRONT_SHOPIFY_DOMAIN"
	EnvShopifyAdminToken = "STOREFRONT_SHOPIFY_ADMIN_TOKEN"
	EnvSquareAccessToken = "STOREFRONT_SQUARE_ACCESS_TOKEN"
	EnvSquareLocationID  = "STOREFRONT_SQUARE_LOCATION_ID"
	EnvCheckoutOrderTTL  = "STOREFRONT_CHECKOUT_ORDER_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
