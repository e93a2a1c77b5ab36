package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix is the envconfig prefix shared by every setting.
	EnvPrefix = "milktea"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "MILKTEA_DB_DSN"
	EnvDBHost = "MILKTEA_DB_HOST"
	EnvDBUser = "MILKTEA_DB_USER"
	EnvDBName = "MILKTEA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	VNPay        VNPayConfig
	Shipping     ShippingConfig
	Loyalty      LoyaltyConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"MILKTEA_APP_ENV" required:"true"`
	Port         string `envconfig:"MILKTEA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MILKTEA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MILKTEA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MILKTEA_DB_DSN"`
	Driver string `envconfig:"MILKTEA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MILKTEA_DB_HOST"`
	LegacyPort     int    `envconfig:"MILKTEA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MILKTEA_DB_USER"`
	LegacyPassword string `envconfig:"MILKTEA_DB_PASSWORD"`
	LegacyName     string `envconfig:"MILKTEA_DB_NAME"`
	LegacySSLMode  string `envconfig:"MILKTEA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MILKTEA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MILKTEA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MILKTEA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MILKTEA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MILKTEA_REDIS_URL"`
	Address      string        `envconfig:"MILKTEA_REDIS_ADDR"`
	Password     string        `envconfig:"MILKTEA_REDIS_PASSWORD"`
	DB           int           `envconfig:"MILKTEA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MILKTEA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MILKTEA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MILKTEA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MILKTEA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MILKTEA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MILKTEA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MILKTEA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MILKTEA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// VNPayConfig carries the redirect-gateway credentials and endpoints.
type VNPayConfig struct {
	TmnCode    string `envconfig:"MILKTEA_VNPAY_TMN_CODE" required:"true"`
	HashSecret string `envconfig:"MILKTEA_VNPAY_HASH_SECRET" required:"true"`
	BaseURL    string `envconfig:"MILKTEA_VNPAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"MILKTEA_VNPAY_RETURN_URL" default:"http://localhost:5173/payment/return"`
	IPNURL     string `envconfig:"MILKTEA_VNPAY_IPN_URL"`
	Locale     string `envconfig:"MILKTEA_VNPAY_LOCALE" default:"vn"`

	// SettleOnReturn lets the front-channel redirect write settlement state.
	// Ignored in production; the IPN is the source of truth there.
	SettleOnReturn bool `envconfig:"MILKTEA_VNPAY_SETTLE_ON_RETURN" default:"true"`
}

// ShippingConfig is the delivery fee schedule. Amounts are minor currency units.
type ShippingConfig struct {
	BaseFee        int64   `envconfig:"MILKTEA_SHIPPING_BASE_FEE" default:"15000"`
	PerKmFee       int64   `envconfig:"MILKTEA_SHIPPING_PER_KM_FEE" default:"3000"`
	MaxFee         int64   `envconfig:"MILKTEA_SHIPPING_MAX_FEE" default:"40000"`
	BaseDistanceKm float64 `envconfig:"MILKTEA_SHIPPING_BASE_DISTANCE_KM" default:"3"`
}

// LoyaltyConfig controls the points credited when an order completes.
type LoyaltyConfig struct {
	AmountPerPoint int64 `envconfig:"MILKTEA_LOYALTY_AMOUNT_PER_POINT" default:"1000"`
}

// RateLimitConfig throttles the unauthenticated gateway callback surface.
// A zero limit or window disables the check.
type RateLimitConfig struct {
	CallbackWindow time.Duration `envconfig:"MILKTEA_RATE_LIMIT_CALLBACK_WINDOW" default:"1m"`
	CallbackPerIP  int           `envconfig:"MILKTEA_RATE_LIMIT_CALLBACK_PER_IP" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"MILKTEA_AUTO_MIGRATE" default:"false"`
	AllowDevConfirm bool `envconfig:"MILKTEA_ALLOW_DEV_CONFIRM" default:"false"`
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
