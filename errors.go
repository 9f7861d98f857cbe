package secureauthx

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRegistered is returned by Register when the email is taken.
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned by Login when the password is correct but
	// the identity is disabled.
	ErrAccountInactive = errors.New("account inactive")
	// ErrUnauthorized is the single client-visible failure of token validation,
	// refresh rotation and admin checks on bad tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited is matched by *RateLimitError.
	ErrRateLimited = errors.New("too many requests")
	// ErrAdminRequired is returned by RequireAdmin for valid non-admin tokens.
	ErrAdminRequired = errors.New("admin only")
	// ErrInvalidRequest wraps input validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidEmail is returned for malformed email addresses.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email address", ErrInvalidRequest)
	// ErrPasswordPolicy is returned when a new password violates length limits.
	ErrPasswordPolicy = fmt.Errorf("%w: password policy violation", ErrInvalidRequest)
	// ErrUserNotFound is returned by UserDirectory lookups for absent identities.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps user directory and ledger failures.
	ErrStoreUnavailable = errors.New("backing store unavailable")
	// ErrRevokeAllUnsupported is returned when the ledger cannot enumerate an identity's sessions.
	ErrRevokeAllUnsupported = errors.New("ledger does not support revoking all sessions")
	// ErrEngineNotReady is returned by methods called on an Engine not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// RateLimitError reports a rejected request together with how long the client
// should wait before retrying. errors.Is(err, ErrRateLimited) matches it.
type RateLimitError struct {
	Operation  Operation
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s rate limited, retry after %s", ErrRateLimited, e.Operation, e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
