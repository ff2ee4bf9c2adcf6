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
	Cart         CartConfig
	Checkout     CheckoutConfig
	Razorpay     RazorpayConfig
	Commerce     CommerceConfig
	Shopify      ShopifyConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Analytics    AnalyticsConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Commerce.validate(cfg.Shopify, cfg.Square); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	SessionTTL      time.Duration `envconfig:"STOREFRONT_CART_SESSION_TTL" default:"168h"`
	DefaultCurrency string        `envconfig:"STOREFRONT_CART_DEFAULT_CURRENCY" default:"INR"`
}

// CheckoutConfig controls the payment handshake.
type CheckoutConfig struct {
	OrderTTL        time.Duration `envconfig:"STOREFRONT_CHECKOUT_ORDER_TTL" default:"15m"`
	VerifiedTTL     time.Duration `envconfig:"STOREFRONT_CHECKOUT_VERIFIED_TTL" default:"720h"`
	DefaultCurrency string        `envconfig:"STOREFRONT_CHECKOUT_DEFAULT_CURRENCY" default:"INR"`
	ThemeColor      string        `envconfig:"STOREFRONT_CHECKOUT_THEME_COLOR" default:"#111827"`
	MerchantName    string        `envconfig:"STOREFRONT_CHECKOUT_MERCHANT_NAME" default:"Storefront"`
}

// RazorpayConfig holds the gateway credentials. KeySecret never leaves the server.
type RazorpayConfig struct {
	KeyID     string `envconfig:"STOREFRONT_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string `envconfig:"STOREFRONT_RAZORPAY_KEY_SECRET" required:"true"`
}

type CommerceConfig struct {
	Backend string `envconfig:"STOREFRONT_COMMERCE_BACKEND" default:"none"`
}

// Normalized returns the lower-cased backend name, defaulting to none.
func (c CommerceConfig) Normalized() string {
	backend := strings.ToLower(strings.TrimSpace(c.Backend))
	if backend == "" {
		return CommerceBackendNone
	}
	return backend
}

func (c CommerceConfig) validate(shop ShopifyConfig, sq SquareConfig) error {
	switch c.Normalized() {
	case CommerceBackendNone:
		return nil
	case CommerceBackendShopify:
		if shop.ShopDomain == "" || shop.AdminToken == "" {
			return fmt.Errorf("%s and %s are required for the shopify backend", EnvShopifyDomain, EnvShopifyAdminToken)
		}
		return nil
	case CommerceBackendSquare:
		if sq.AccessToken == "" || sq.LocationID == "" {
			return fmt.Errorf("%s and %s are required for the square backend", EnvSquareAccessToken, EnvSquareLocationID)
		}
		return nil
	default:
		return fmt.Errorf("unsupported commerce backend %q", c.Backend)
	}
}

type ShopifyConfig struct {
	ShopDomain      string        `envconfig:"STOREFRONT_SHOPIFY_DOMAIN"`
	AdminToken      string        `envconfig:"STOREFRONT_SHOPIFY_ADMIN_TOKEN"`
	StorefrontToken string        `envconfig:"STOREFRONT_SHOPIFY_STOREFRONT_TOKEN"`
	APIVersion      string        `envconfig:"STOREFRONT_SHOPIFY_API_VERSION" default:"2024-10"`
	Timeout         time.Duration `envconfig:"STOREFRONT_SHOPIFY_TIMEOUT" default:"10s"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	AnalyticsTopic string `envconfig:"STOREFRONT_PUBSUB_ANALYTICS_TOPIC" default:"storefront-analytics"`
	OrdersTopic    string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-orders"`
}

type AnalyticsConfig struct {
	Sink        string        `envconfig:"STOREFRONT_ANALYTICS_SINK" default:"log"`
	BufferSize  int           `envconfig:"STOREFRONT_ANALYTICS_BUFFER_SIZE" default:"256"`
	SendTimeout time.Duration `envconfig:"STOREFRONT_ANALYTICS_SEND_TIMEOUT" default:"5s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives the retention worker.
type CronConfig struct {
	Interval          time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"24h"`
	OutboxRetention   time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	WishlistRetention time.Duration `envconfig:"STOREFRONT_CRON_WISHLIST_RETENTION" default:"2160h"`
	JobTimeout        time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"30m"`
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if sqlite {
		db.Driver = "sqlite"
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	}
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
