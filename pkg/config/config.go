package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Push          PushConfig
	Payments      PaymentsConfig
	Outbox        OutboxConfig
	Background    BackgroundConfig
	Notifications NotificationsConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLISSMART_APP_ENV" required:"true"`
	Port         string `envconfig:"BLISSMART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLISSMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLISSMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"BLISSMART_DB_DSN"`
	Driver string `envconfig:"BLISSMART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BLISSMART_DB_HOST"`
	Port     int    `envconfig:"BLISSMART_DB_PORT" default:"5432"`
	User     string `envconfig:"BLISSMART_DB_USER"`
	Password string `envconfig:"BLISSMART_DB_PASSWORD"`
	Name     string `envconfig:"BLISSMART_DB_NAME"`
	SSLMode  string `envconfig:"BLISSMART_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"BLISSMART_SQLITE_PATH" default:"file:blissmart.db?cache=shared&_foreign_keys=on"`

	MaxOpenConns    int           `envconfig:"BLISSMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLISSMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLISSMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLISSMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLISSMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLISSMART_REDIS_ADDR"`
	Password     string        `envconfig:"BLISSMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLISSMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLISSMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLISSMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLISSMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLISSMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLISSMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BLISSMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BLISSMART_JWT_ISSUER" default:"blissmart"`
	ExpirationMinutes      int    `envconfig:"BLISSMART_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"BLISSMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BLISSMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BLISSMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BLISSMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BLISSMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BLISSMART_ARGON_KEY_LEN" default:"32"`
}

type OTPConfig struct {
	TTL              time.Duration `envconfig:"BLISSMART_OTP_TTL" default:"10m"`
	ExposeInResponse bool          `envconfig:"BLISSMART_OTP_EXPOSE_IN_RESPONSE" default:"false"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BLISSMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit    int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BLISSMART_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterPhoneLimit int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_REGISTER_PHONE_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	OTPWindow          time.Duration `envconfig:"BLISSMART_AUTH_RATE_LIMIT_OTP_WINDOW" default:"10m"`
	OTPUserLimit       int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_OTP_USER_LIMIT" default:"5"`
	OTPIPLimit         int           `envconfig:"BLISSMART_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLISSMART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLISSMART_AUTO_MIGRATE" default:"false"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"BLISSMART_GOOGLE_MAPS_API_KEY"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"BLISSMART_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"BLISSMART_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"BLISSMART_PUBSUB_ORDERS_TOPIC" default:"marketplace-order-events"`
}

// PushConfig configures Firebase Cloud Messaging. Push is disabled when ProjectID is empty.
type PushConfig struct {
	ProjectID       string        `envconfig:"BLISSMART_FCM_PROJECT_ID"`
	CredentialsJSON string        `envconfig:"BLISSMART_FCM_CREDENTIALS_JSON"`
	Timeout         time.Duration `envconfig:"BLISSMART_FCM_TIMEOUT" default:"5s"`
}

func (p PushConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != ""
}

type PaymentsConfig struct {
	RazorpayKeyID     string `envconfig:"BLISSMART_RAZORPAY_KEY_ID"`
	RazorpayKeySecret string `envconfig:"BLISSMART_RAZORPAY_KEY_SECRET"`
	Currency          string `envconfig:"BLISSMART_PAYMENTS_CURRENCY" default:"INR"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BLISSMART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BLISSMART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BLISSMART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type BackgroundConfig struct {
	MaxConcurrent int           `envconfig:"BLISSMART_BACKGROUND_MAX_CONCURRENT" default:"32"`
	TaskTimeout   time.Duration `envconfig:"BLISSMART_BACKGROUND_TASK_TIMEOUT" default:"15s"`
}

type NotificationsConfig struct {
	Retention time.Duration `envconfig:"BLISSMART_NOTIFICATION_RETENTION" default:"720h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BLISSMART_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
