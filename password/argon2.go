package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16

	// DefaultMaxPasswordBytes bounds the input fed to the KDF.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrEmptyPassword is returned by Hash for empty input.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned by Hash for input over MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password too long")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters used for newly created hashes.
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

func (c Config) params() params {
	return params{memory: c.Memory, time: c.Time, parallelism: c.Parallelism}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB || c.Memory > maxMemoryKB:
		return fmt.Errorf("password memory must be between %d and %d KiB", minMemoryKB, maxMemoryKB)
	case c.Time < minTimeCost || c.Time > maxTimeCost:
		return fmt.Errorf("password time must be between %d and %d", minTimeCost, maxTimeCost)
	case c.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return errors.New("password salt length must be >= 16")
	case c.KeyLength < minKeyLength || c.KeyLength > maxKeyLength:
		return fmt.Errorf("password key length must be between %d and %d", minKeyLength, maxKeyLength)
	case c.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 hashes and verifies passwords. New hashes are always argon2id; legacy
// bcrypt hashes are accepted by Verify. An Argon2 is immutable and safe for
// concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher. A zero MaxPasswordBytes
// selects DefaultMaxPasswordBytes.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash returns a PHC-encoded argon2id hash with a fresh random salt, so two
// calls with the same password produce different strings. Input bytes are used
// as given, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrPasswordTooLong, a.config.MaxPasswordBytes)
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	h := phcHash{params: a.config.params(), salt: salt}
	h.key = derive(password, h.salt, h.params, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether password matches encodedHash. Malformed, truncated
// or unsupported hashes yield false. The digest comparison runs in constant
// time.
func (a *Argon2) Verify(password, encodedHash string) bool {
	if len(password) > a.config.MaxPasswordBytes {
		return false
	}
	if isBcrypt(encodedHash) {
		return verifyBcrypt(password, encodedHash)
	}

	h, err := decodePHC(encodedHash)
	if err != nil {
		return false
	}
	computed := derive(password, h.salt, h.params, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1
}

// NeedsUpgrade reports whether encodedHash is bcrypt or was produced with
// weaker parameters than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	if isBcrypt(encodedHash) {
		return true, nil
	}
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}

	want := a.config.params()
	return h.memory < want.memory ||
		h.time < want.time ||
		h.parallelism < want.parallelism ||
		uint32(len(h.key)) != a.config.KeyLength, nil
}

func derive(password string, salt []byte, p params, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.parallelism, keyLen)
}
