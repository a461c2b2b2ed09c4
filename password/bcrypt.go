package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for newly written hashes.
const DefaultBcryptCost = 12

// MinBcryptCost is the lowest cost a configured engine will hash with.
// NewBcrypt itself accepts bcrypt.MinCost so tests can stay fast.
const MinBcryptCost = 12

// bcrypt ignores input past 72 bytes, so longer passwords are refused
// instead of silently truncated.
const bcryptMaxPasswordBytes = 72

// Bcrypt hashes with golang.org/x/crypto/bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt hasher. A zero cost selects DefaultBcryptCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

func (b *Bcrypt) Cost() int {
	return b.cost
}

func (b *Bcrypt) Hash(password string) (string, error) {
	if err := checkLength(password, bcryptMaxPasswordBytes); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(password, encodedHash string) (bool, error) {
	if len(password) > bcryptMaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
}

func (b *Bcrypt) Recognizes(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$2a$") ||
		strings.HasPrefix(encodedHash, "$2b$") ||
		strings.HasPrefix(encodedHash, "$2y$")
}

// NeedsUpgrade reports whether encodedHash was written with a lower cost.
func (b *Bcrypt) NeedsUpgrade(encodedHash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
	return cost < b.cost, nil
}
