package password

import "errors"

const (
	// MinPasswordBytes matches the request-level validation rule.
	MinPasswordBytes = 6
	// DefaultMaxPasswordBytes bounds the work an attacker can force per attempt.
	DefaultMaxPasswordBytes = 1024
)

var (
	ErrPasswordTooShort = errors.New("password too short")
	ErrPasswordTooLong  = errors.New("password too long")
	ErrUnsupportedHash  = errors.New("unsupported password hash")
)

// Hasher produces and checks encoded password hashes. Verify reports a
// mismatch as (false, nil); errors are reserved for unreadable hashes and
// rejected inputs.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	Recognizes(encodedHash string) bool
}

// Upgrader is implemented by hashers that can tell when a stored hash was
// written with weaker parameters than they would use now.
type Upgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Chain hashes with its first Hasher and verifies with the first one that
// recognizes the stored encoding.
type Chain []Hasher

var (
	_ Hasher   = Chain(nil)
	_ Upgrader = Chain(nil)
	_ Upgrader = (*Bcrypt)(nil)
	_ Upgrader = (*Argon2)(nil)
)

func (c Chain) Hash(password string) (string, error) {
	if len(c) == 0 {
		return "", ErrUnsupportedHash
	}
	return c[0].Hash(password)
}

func (c Chain) Verify(password, encodedHash string) (bool, error) {
	for _, h := range c {
		if h.Recognizes(encodedHash) {
			return h.Verify(password, encodedHash)
		}
	}
	return false, ErrUnsupportedHash
}

func (c Chain) Recognizes(encodedHash string) bool {
	for _, h := range c {
		if h.Recognizes(encodedHash) {
			return true
		}
	}
	return false
}

// NeedsUpgrade reports whether encodedHash should be rewritten by Hash: it
// was produced by a later hasher in the chain, or by the first one with
// weaker parameters.
func (c Chain) NeedsUpgrade(encodedHash string) (bool, error) {
	if len(c) == 0 {
		return false, ErrUnsupportedHash
	}
	if !c[0].Recognizes(encodedHash) {
		if !c.Recognizes(encodedHash) {
			return false, ErrUnsupportedHash
		}
		return true, nil
	}
	if u, ok := c[0].(Upgrader); ok {
		return u.NeedsUpgrade(encodedHash)
	}
	return false, nil
}

func checkLength(password string, max int) error {
	if len(password) < MinPasswordBytes {
		return ErrPasswordTooShort
	}
	if len(password) > max {
		return ErrPasswordTooLong
	}
	return nil
}
