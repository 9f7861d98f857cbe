package password

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Hashes imported from older deployments are bcrypt. They stay verifiable until
// the account logs in and the caller rehashes with argon2id.
var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

func isBcrypt(encodedHash string) bool {
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(encodedHash, p) {
			return true
		}
	}
	return false
}

func verifyBcrypt(password, encodedHash string) bool {
	// bcrypt ignores input past 72 bytes; refuse instead of truncating silently.
	if len(password) > 72 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password)) == nil
}
