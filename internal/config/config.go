package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store and notifier backends.
const (
	StoreDynamo = "dynamo"
	StoreMemory = "memory"

	NotifierSMTP     = "smtp"
	NotifierPostmark = "postmark"
	NotifierSNS      = "sns"
	NotifierLog      = "log"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	AppBaseURL     string   `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	StoreBackend   string `env:"STORE_BACKEND" envDefault:"dynamo"`
	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	S3BucketName   string `env:"S3_BUCKET_NAME" envDefault:"shop-auth-avatars"`
	AvatarMaxBytes int64  `env:"AVATAR_MAX_BYTES" envDefault:"1024000"`

	JWTPrivateKeyPath string        `env:"JWT_PRIVATE_KEY_PATH" envDefault:"./private_key.pem"`
	JWTPublicKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH" envDefault:"./public_key.pem"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"shop-auth-api"`
	JWTExpiry         time.Duration `env:"JWT_TOKEN_TTL" envDefault:"72h"`

	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"jwt"`
	SessionCookieTTL    time.Duration `env:"SESSION_COOKIE_TTL" envDefault:"72h"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`

	// One-time artifact windows. Both are explicit settings; the defaults
	// below are the only place they are chosen.
	VerificationCodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
	ResetTokenTTL       time.Duration `env:"RESET_TOKEN_TTL" envDefault:"10m"`
	OTPDigits           int           `env:"OTP_DIGITS" envDefault:"6"`
	OTPMaxAttempts      int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`

	NotifierBackend      string `env:"NOTIFIER_BACKEND" envDefault:"smtp"`
	SMTPHost             string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort             string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom             string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername         string `env:"SMTP_USERNAME"`
	SMTPPassword         string `env:"SMTP_PASSWORD"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SNSRegion            string `env:"SNS_REGION" envDefault:"us-east-1"`
	SNSTopicARN          string `env:"SNS_TOPIC_ARN"`

	// RedisURL enables per-token revocation on logout when set.
	RedisURL string `env:"REDIS_URL"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	// TrustedProxyHops is the number of reverse proxies in front of the
	// service that append to X-Forwarded-For. Zero keys the limiter on the
	// connection address and ignores forwarding headers.
	TrustedProxyHops int `env:"TRUSTED_PROXY_HOPS" envDefault:"0"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	UserVerifications string `env:"DYNAMO_TABLE_USER_VERIFICATIONS" envDefault:"user_verifications"`
	Carts             string `env:"DYNAMO_TABLE_CARTS" envDefault:"carts"`
}

// Load reads all configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case StoreDynamo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.NotifierBackend {
	case NotifierSMTP, NotifierLog:
	case NotifierPostmark:
		if c.PostmarkServerToken == "" || c.PostmarkAccountToken == "" {
			errs = append(errs, errors.New("postmark notifier requires POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN"))
		}
	case NotifierSNS:
		if c.SNSTopicARN == "" {
			errs = append(errs, errors.New("sns notifier requires SNS_TOPIC_ARN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_BACKEND %q", c.NotifierBackend))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_TOKEN_TTL must be positive"))
	}
	if c.SessionCookieTTL <= 0 {
		errs = append(errs, errors.New("SESSION_COOKIE_TTL must be positive"))
	}
	if c.VerificationCodeTTL <= 0 || c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL and RESET_TOKEN_TTL must be positive"))
	}
	if c.OTPDigits < 4 || c.OTPDigits > 10 {
		errs = append(errs, fmt.Errorf("OTP_DIGITS must be between 4 and 10, got %d", c.OTPDigits))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1, got %d", c.OTPMaxAttempts))
	}
	if c.TrustedProxyHops < 0 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must not be negative, got %d", c.TrustedProxyHops))
	}
	if c.AvatarMaxBytes <= 0 {
		errs = append(errs, errors.New("AVATAR_MAX_BYTES must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
