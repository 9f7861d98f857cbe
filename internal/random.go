package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const refreshSecretSize = 32

// RefreshSecret is the raw high-entropy value carried in a refresh token's jti.
type RefreshSecret [refreshSecretSize]byte

func NewRefreshSecret() (RefreshSecret, error) {
	var secret RefreshSecret
	_, err := rand.Read(secret[:])
	return secret, err
}

func (s RefreshSecret) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// TokenID is the only form of a refresh secret that is ever persisted.
func (s RefreshSecret) TokenID() string {
	sum := sha256.Sum256(s[:])
	return hex.EncodeToString(sum[:])
}

func ParseRefreshSecret(encoded string) (RefreshSecret, error) {
	var secret RefreshSecret

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return secret, err
	}
	if len(raw) != refreshSecretSize {
		return secret, errors.New("invalid refresh secret size")
	}

	copy(secret[:], raw)
	return secret, nil
}

// IsTokenID reports whether s has the shape of a derived token identifier.
func IsTokenID(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
