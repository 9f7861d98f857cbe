package flows

import (
	"context"
	"errors"
	"strconv"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Validate ValidateDeps
}

// Identity is the flow-level view of a directory entry.
type Identity struct {
	ID           int64
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
}

// IdentityLookup resolves identities for flows. Lookups of absent identities
// must return an error for which IsNotFound reports true.
type IdentityLookup struct {
	FindByEmail func(context.Context, string) (*Identity, error)
	FindByID    func(context.Context, int64) (*Identity, error)
	IsNotFound  func(error) bool
}

var errMalformedSubject = errors.New("malformed subject")

// Subject renders an identity id as a token subject.
func Subject(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSubject is the strict inverse of Subject.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 || strconv.FormatInt(id, 10) != sub {
		return 0, errMalformedSubject
	}
	return id, nil
}
