package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.PrivateKey == nil {
		cfg.PrivateKey = testSecret
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected short hs256 key to be rejected")
	}
	if _, err := NewManager(Config{PrivateKey: testSecret, TTL: 2 * time.Hour}); err == nil {
		t.Fatal("expected long ttl to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: []byte("nope")}); err == nil {
		t.Fatal("expected bad ed25519 key to be rejected")
	}
	if _, err := NewManager(Config{SigningMethod: "rs256", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to be rejected")
	}
}

func TestStateRoundTrip(t *testing.T) {
	m := newHSManager(t, Config{Issuer: "sessionauth", Audience: "oauth-state"})

	token, err := m.CreateState("google", "nonce-1", "/profile")
	if err != nil {
		t.Fatalf("create state: %v", err)
	}

	claims, err := m.ParseState(token, "nonce-1")
	if err != nil {
		t.Fatalf("parse state: %v", err)
	}
	if claims.Provider != "google" || claims.ReturnTo != "/profile" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := m.ParseState(token, "nonce-2"); !errors.Is(err, ErrStateNonceMismatch) {
		t.Fatalf("expected nonce mismatch, got %v", err)
	}
	if _, err := m.ParseState(token, ""); !errors.Is(err, ErrStateNonceMismatch) {
		t.Fatalf("expected empty nonce to fail, got %v", err)
	}
	if _, err := m.CreateState("google", " ", ""); err == nil {
		t.Fatal("expected blank nonce to be rejected")
	}
}

func TestStateRejectsForeignTokens(t *testing.T) {
	m := newHSManager(t, Config{Issuer: "sessionauth"})

	other := newHSManager(t, Config{Issuer: "sessionauth", PrivateKey: []byte(strings.Repeat("x", 32))})
	forged, _ := other.CreateState("google", "n", "")
	if _, err := m.ParseState(forged, "n"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected foreign key to fail, got %v", err)
	}

	wrongIssuer := StateClaims{Nonce: "n", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tok, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, wrongIssuer).SignedString(testSecret)
	if _, err := m.ParseState(tok, "n"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected wrong issuer to fail, got %v", err)
	}

	expired := StateClaims{Nonce: "n", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "sessionauth",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-11 * time.Minute)),
	}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, expired).SignedString(testSecret)
	if _, err := m.ParseState(tok, "n"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected expired state to fail, got %v", err)
	}

	noExpiry := StateClaims{Nonce: "n", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:   "sessionauth",
		IssuedAt: gjwt.NewNumericDate(time.Now()),
	}}
	tok, _ = gjwt.NewWithClaims(gjwt.SigningMethodHS256, noExpiry).SignedString(testSecret)
	if _, err := m.ParseState(tok, "n"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected state without expiry to fail, got %v", err)
	}
}

func TestStateRejectsWrongAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateState("google", "n", "")
	if err != nil {
		t.Fatalf("create state: %v", err)
	}
	if _, err := m.ParseState(token, "n"); err != nil {
		t.Fatalf("ed25519 round trip failed: %v", err)
	}

	hs := newHSManager(t, Config{})
	hsToken, _ := hs.CreateState("google", "n", "")
	if _, err := m.ParseState(hsToken, "n"); !errors.Is(err, ErrStateInvalid) {
		t.Fatalf("expected hs256 token to be rejected by ed25519 manager, got %v", err)
	}
}

// FuzzParseState feeds arbitrary strings to the parser. It must never panic
// and never accept input it did not sign.
func FuzzParseState(f *testing.F) {
	m, err := NewManager(Config{PrivateKey: testSecret, Issuer: "fuzz"})
	if err != nil {
		f.Fatal(err)
	}
	valid, err := m.CreateState("google", "n", "/")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJub25jZSI6Im4ifQ.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.ParseState(input, "n")
		if err != nil {
			return
		}
		if input != valid || claims == nil {
			t.Fatalf("accepted unexpected token %q", input)
		}
	})
}
