package internal

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"
)

const (
	verificationTokenSize = 32
	sessionIDSize         = 24
)

// NewVerificationToken returns 32 bytes from the CSPRNG, hex encoded.
func NewVerificationToken() (string, error) {
	var raw [verificationTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

func NewSessionID() (string, error) {
	var raw [sessionIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, cookie safe
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// ValidSessionID reports whether id has the shape produced by NewSessionID.
func ValidSessionID(id string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(raw) == sessionIDSize
}

// legacyTokenLen is the canonical UUID form mailed by earlier deployments
// sharing the same Redis.
const legacyTokenLen = 36

// ValidVerificationToken rejects tokens that could never have been issued,
// which keeps garbage out of the Redis key space. Both the 64-char hex tokens
// minted here and canonical UUIDs are accepted.
func ValidVerificationToken(token string) error {
	switch len(token) {
	case hex.EncodedLen(verificationTokenSize):
		_, err := hex.DecodeString(token)
		return err
	case legacyTokenLen:
		_, err := uuid.Parse(token)
		return err
	default:
		return errors.New("invalid verification token size")
	}
}
