package sessionauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/password"
	"github.com/MrEthical07/sessionauth/session"
)

// Config holds every engine-level setting. Start from [DefaultConfig].
type Config struct {
	Session      SessionConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls server-side session records and renewal.
type SessionConfig struct {
	KeyPrefix        string
	MaxAge           time.Duration
	CookieName       string
	RenewalThreshold time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls verification tokens and the resend limit.
type VerificationConfig struct {
	// LoginTTL applies to tokens issued at login and on resend. Those tokens
	// are bound to the user id.
	LoginTTL time.Duration
	// RegistrationTTL applies to the token mailed on registration, which is
	// bound to the email address.
	RegistrationTTL time.Duration

	ResendMaxAttempts int
	ResendWindow      time.Duration

	// AppDomain is the public base URL the verification link points at.
	AppDomain  string
	VerifyPath string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordAlgorithm selects the hash used for new passwords. Verification
// always accepts both formats.
type PasswordAlgorithm string

const (
	PasswordBcrypt   PasswordAlgorithm = "bcrypt"
	PasswordArgon2id PasswordAlgorithm = "argon2id"
)

type PasswordConfig struct {
	Algorithm  PasswordAlgorithm
	BcryptCost int
	Argon2     password.Argon2Config
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			KeyPrefix:        session.DefaultKeyPrefix,
			MaxAge:           session.DefaultMaxAge,
			CookieName:       session.DefaultCookieName,
			RenewalThreshold: session.DefaultRenewalThreshold,
		},
		Verification: VerificationConfig{
			LoginTTL:          time.Hour,
			RegistrationTTL:   2 * time.Hour,
			ResendMaxAttempts: 3,
			ResendWindow:      time.Hour,
			AppDomain:         "http://localhost:7000",
			VerifyPath:        "/users/verify-user",
		},
		Password: PasswordConfig{
			Algorithm:  PasswordBcrypt,
			BcryptCost: password.DefaultBcryptCost,
			Argon2:     password.DefaultArgon2Config(),
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first invalid setting found.
func (c *Config) Validate() error {
	// Session
	if strings.TrimSpace(c.Session.KeyPrefix) == "" {
		return errors.New("Session KeyPrefix must not be empty")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("Session MaxAge must be > 0")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("Session CookieName must not be empty")
	}
	if c.Session.RenewalThreshold <= 0 {
		return errors.New("Session RenewalThreshold must be > 0")
	}
	if c.Session.RenewalThreshold >= c.Session.MaxAge {
		return errors.New("Session RenewalThreshold must be shorter than MaxAge")
	}

	// Verification
	if c.Verification.LoginTTL <= 0 || c.Verification.RegistrationTTL <= 0 {
		return errors.New("Verification token TTLs must be > 0")
	}
	if c.Verification.ResendMaxAttempts <= 0 {
		return errors.New("Verification ResendMaxAttempts must be > 0")
	}
	if c.Verification.ResendWindow <= 0 {
		return errors.New("Verification ResendWindow must be > 0")
	}
	u, err := url.Parse(c.Verification.AppDomain)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Verification AppDomain must be an absolute http(s) URL")
	}
	if !strings.HasPrefix(c.Verification.VerifyPath, "/") {
		return errors.New("Verification VerifyPath must start with /")
	}

	// Password
	switch c.Password.Algorithm {
	case PasswordBcrypt:
		if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < password.MinBcryptCost || c.Password.BcryptCost > 31) {
			return fmt.Errorf("Password BcryptCost must be between %d and 31", password.MinBcryptCost)
		}
	case PasswordArgon2id:
	default:
		return errors.New("unsupported password algorithm")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
