package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	// DefaultStateTTL covers a user reading a consent screen.
	DefaultStateTTL = 10 * time.Minute
	minHMACKeyBytes = 32
)

var (
	ErrStateInvalid       = errors.New("invalid oauth state")
	ErrStateNonceMismatch = errors.New("oauth state nonce mismatch")
)

// Config configures a [Manager].
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the HMAC secret for hs256 and the signing key for ed25519.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// Manager issues and checks OAuth state tokens.
type Manager struct {
	config Config
}

// StateClaims is the payload of a state token.
type StateClaims struct {
	Nonce    string `json:"nonce"`
	Provider string `json:"prv"`
	ReturnTo string `json:"ret,omitempty"`
	jwt.RegisteredClaims
}

// NewManager rejects short HMAC secrets and unparsable Ed25519 keys.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultStateTTL
	}
	if cfg.TTL < 0 || cfg.TTL > time.Hour {
		return nil, errors.New("invalid state TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACKeyBytes {
			return nil, fmt.Errorf("hs256 requires a key of at least %d bytes", minHMACKeyBytes)
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) == 0 {
			priv, _ := parseEdPrivateKey(cfg.PrivateKey)
			cfg.PublicKey = priv.Public().(ed25519.PublicKey)
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// CreateState signs a state token for provider binding nonce and returnTo.
func (m *Manager) CreateState(provider, nonce, returnTo string) (string, error) {
	if strings.TrimSpace(nonce) == "" {
		return "", errors.New("state nonce required")
	}

	now := time.Now()
	claims := StateClaims{
		Nonce:    nonce,
		Provider: provider,
		ReturnTo: returnTo,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}
	return jwt.NewWithClaims(m.method(), claims).SignedString(signKey)
}

// ParseState verifies tokenStr and checks that it was issued for nonce.
// Every failure other than a nonce mismatch is reported as ErrStateInvalid.
func (m *Manager) ParseState(tokenStr, nonce string) (*StateClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &StateClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateInvalid, err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return nil, ErrStateInvalid
	}
	if nonce == "" || claims.Nonce != nonce {
		return nil, ErrStateNonceMismatch
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return jwt.SigningMethodEdDSA
	default:
		return jwt.SigningMethodHS256
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPrivateKey(m.config.PrivateKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodEd25519:
		return parseEdPublicKey(m.config.PublicKey)
	default:
		return m.config.PrivateKey, nil
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
