package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/tripeco/identity-service/internal/core/service"
)

const minSecretLength = 32

type Config struct {
	Port       string `env:"PORT,       default=8080"`
	Env        string `env:"ENV,        default=development"`
	LogLevel   string `env:"LOG_LEVEL,  default=info"`
	Production bool   `env:"PRODUCTION, default=false"`

	// UserHeader is the trusted header an upstream gateway uses to pass the
	// caller's user id.
	UserHeader   string `env:"USER_HEADER,         default=X-User-Id"`
	EnforceRoles bool   `env:"AUTHZ_ENFORCE_ROLES, default=false"`

	JWT      JWTConfig
	Password PasswordConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Mail     MailConfig
	Notifier NotifierConfig
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET"`
	Header string        `env:"JWT_HEADER, default=Authorization"`
	Prefix string        `env:"JWT_PREFIX, default=Bearer"`
	TTL    time.Duration `env:"JWT_TTL,    default=24h"`
}

type PasswordConfig struct {
	Regex    string `env:"PASSWORD_REGEX"`
	Length   int    `env:"PASSWORD_LENGTH,    default=12"`
	HashCost int    `env:"PASSWORD_HASH_COST, default=10"`
}

type MongoConfig struct {
	URI        string `env:"MONGO_URI,        default=mongodb://localhost:27017"`
	Database   string `env:"MONGO_DB,         default=identity"`
	Collection string `env:"MONGO_COLLECTION, default=users"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,        default=0"`
	DedupTTL time.Duration `env:"REDIS_DEDUP_TTL, default=24h"`
}

type MailConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT,     default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	// Security is one of starttls, ssl or none.
	Security      string `env:"SMTP_SECURITY, default=starttls"`
	From          string `env:"MAIL_FROM,     default=no-reply@localhost"`
	Subject       string `env:"MAIL_SUBJECT,  default=Your account is ready"`
	TestRecipient string `env:"NOTIFY_TEST_RECIPIENT"`
}

type NotifierConfig struct {
	Workers     int           `env:"NOTIFIER_WORKERS,      default=4"`
	QueueSize   int           `env:"NOTIFIER_QUEUE_SIZE,   default=64"`
	SendTimeout time.Duration `env:"NOTIFIER_SEND_TIMEOUT, default=15s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l, applies code defaults and validates.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	// The default pattern contains commas, which envconfig would split.
	if cfg.Password.Regex == "" {
		cfg.Password.Regex = service.DefaultPasswordRegex
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.JWT.Header == "" {
		errs = append(errs, errors.New("JWT_HEADER must not be empty"))
	}
	if _, err := service.NewPasswordPolicy(service.PasswordPolicyConfig{Regex: c.Password.Regex}); err != nil {
		errs = append(errs, fmt.Errorf("PASSWORD_REGEX does not compile: %w", err))
	}
	if c.Password.Length < 8 {
		errs = append(errs, errors.New("PASSWORD_LENGTH must be at least 8"))
	}
	if c.UserHeader == "" {
		errs = append(errs, errors.New("USER_HEADER must not be empty"))
	}
	if c.Notifier.Workers < 1 {
		errs = append(errs, errors.New("NOTIFIER_WORKERS must be at least 1"))
	}
	if c.Notifier.QueueSize < 1 {
		errs = append(errs, errors.New("NOTIFIER_QUEUE_SIZE must be at least 1"))
	}
	if c.Notifier.SendTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFIER_SEND_TIMEOUT must be positive"))
	}
	switch c.Mail.Security {
	case "starttls", "ssl", "none":
	default:
		errs = append(errs, fmt.Errorf("SMTP_SECURITY %q is not one of starttls, ssl, none", c.Mail.Security))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether production behaviour (real passwords, real
// mail delivery) is enabled.
func (c *Config) IsProduction() bool {
	return c.Production || c.Env == "production"
}
