// Package config loads the service settings from the environment.
package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/password"
	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/hkdf"
)

// MemoryRedis as REDIS_HOST runs an embedded Redis. Development only.
const MemoryRedis = "memory"

type Config struct {
	NodeEnv   string `env:"NODE_ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"7000"`
	DebugMode bool   `env:"DEBUG_MODE" envDefault:"false"`
	AppDomain string `env:"APP_DOMAIN" envDefault:"http://localhost:7000"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername string `env:"REDIS_USERNAME" envDefault:"default"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// DatabaseURL empty keeps users in memory.
	DatabaseURL string `env:"DATABASE_URL"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM"`

	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaMailTopic string   `env:"KAFKA_MAIL_TOPIC" envDefault:"auth.mail.requested"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	CORSOrigins []string `env:"CORS_ORIGIN" envSeparator:","`

	PasswordAlgorithm string `env:"PASSWORD_ALGORITHM" envDefault:"bcrypt"`
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"12"`

	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	AuditEnabled    bool          `env:"AUDIT_ENABLED" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses the process environment and validates the result.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.NodeEnv {
	case "development", "production", "test":
	default:
		errs = append(errs, fmt.Errorf("NODE_ENV must be development, production or test, got %q", c.NodeEnv))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("PORT must be a valid TCP port"))
	}
	if len(c.SessionSecret) < 5 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 5 characters long"))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE must be positive"))
	}
	if u, err := url.Parse(c.AppDomain); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("APP_DOMAIN must be an absolute URL"))
	}
	if c.RedisHost == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}
	if c.PasswordAlgorithm != "bcrypt" && c.PasswordAlgorithm != "argon2id" {
		errs = append(errs, errors.New("PASSWORD_ALGORITHM must be bcrypt or argon2id"))
	}
	if c.BcryptCost < password.MinBcryptCost || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and 31", password.MinBcryptCost))
	}

	return errors.Join(errs...)
}

func (c Config) Production() bool {
	return c.NodeEnv == "production"
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// RedisAddr is host:port, or "" for the embedded store.
func (c Config) RedisAddr() string {
	if strings.EqualFold(c.RedisHost, MemoryRedis) {
		return ""
	}
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// DeriveKey expands SESSION_SECRET into a 32-byte key for purpose, so the
// cookie, CSRF and OAuth state keys differ while one secret is configured.
func (c Config) DeriveKey(purpose string) []byte {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(c.SessionSecret), nil, []byte("sessionauth/"+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255 blocks of output.
		panic(err)
	}
	return key
}
