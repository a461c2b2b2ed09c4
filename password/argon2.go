package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2Prefix          = "$argon2id$"
)

// Argon2Config holds argon2id parameters. Memory is in KiB.
type Argon2Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Config returns the parameters used when none are configured.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes with argon2id and encodes results as PHC strings.
type Argon2 struct {
	config Argon2Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

// NewArgon2 describes the newargon2 operation and its observable behavior.
//
// NewArgon2 returns an error when a parameter is below its floor.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("argon2 memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return nil, errors.New("argon2 time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return nil, errors.New("argon2 parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("argon2 salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("argon2 key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

func (a *Argon2) Hash(password string) (string, error) {
	// Raw bytes as provided, no Unicode normalization.
	if err := checkLength(password, a.config.MaxPasswordBytes); err != nil {
		return "", err
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	parsed, err := decodePHC(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

func (a *Argon2) Recognizes(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}

// NeedsUpgrade reports whether encodedHash used weaker parameters than a.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := decodePHC(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnsupportedHash, err)
	}
	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != uint32(len(parsed.key)), nil
}

// decodePHC accepts padded and unpadded base64 so hashes written by other
// argon2 libraries verify too.
func decodePHC(encodedHash string) (*phc, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, errors.New("invalid PHC format")
	}

	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	out := &phc{}
	if err := out.parseParams(parts[3]); err != nil {
		return nil, err
	}

	if out.salt, err = decodeB64(parts[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	if out.key, err = decodeB64(parts[5]); err != nil || len(out.key) == 0 {
		return nil, errors.New("invalid hash")
	}
	return out, nil
}

func (p *phc) parseParams(part string) error {
	seen := 0
	for _, pair := range strings.Split(part, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.New("invalid parameter entry")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return errors.New("invalid memory parameter")
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || uint32(n) < minTimeCost {
				return errors.New("invalid time parameter")
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || uint8(n) < minParallelism {
				return errors.New("invalid parallelism parameter")
			}
			p.parallelism = uint8(n)
		default:
			return errors.New("unsupported parameter")
		}
		seen++
	}
	if seen != 3 {
		return errors.New("missing parameters")
	}
	return nil
}

func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}
