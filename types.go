package secureauthx

import (
	"context"
	"io"
	"time"

	"github.com/hashicorp/go-hclog"

	internalaudit "github.com/secureauthx/secureauthx/internal/audit"
	"github.com/secureauthx/secureauthx/session"
)

// Identity is a directory entry. The Engine writes identities only through
// UserDirectory.Create.
type Identity struct {
	ID           int64
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	CreatedAt    time.Time
}

// View returns the projection handed to API callers.
func (i *Identity) View() IdentityView {
	return IdentityView{ID: i.ID, Email: i.Email, IsAdmin: i.IsAdmin, IsActive: i.IsActive}
}

// IdentityView is the read-only identity projection returned by ValidateAccess.
type IdentityView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

// UserDirectory stores identities.
//
// FindByEmail and FindByID return ErrUserNotFound for absent identities. Create
// returns ErrAlreadyRegistered when the email is already taken, including when a
// concurrent Create won the race. Emails arrive normalized (trimmed, lowercase).
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByID(ctx context.Context, id int64) (*Identity, error)
	Create(ctx context.Context, email, passwordHash string) (*Identity, error)
}

// PasswordRehasher is an optional UserDirectory extension. When present and
// Config.Password.UpgradeOnLogin is set, Login replaces outdated hashes.
type PasswordRehasher interface {
	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
}

// Ledger is the session ledger the Engine persists refresh records to.
type Ledger = session.Ledger

// TokenPair is returned by Register, Login and Refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Operation names a rate-limited operation class.
type Operation string

const (
	OpRegister Operation = "register"
	OpLogin    Operation = "login"
	OpRefresh  Operation = "refresh"
	OpLogout   Operation = "logout"
)

// RateLimiter decides whether a request of class from client fits in the budget.
// Implementations must record accepted requests atomically with the check.
type RateLimiter interface {
	CheckAndRecord(class, client string, maxRequests int, window time.Duration) (allowed bool, retryAfter time.Duration)
}

// AuditEvent is an alias of the internal audit event model.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink writes audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// HCLogSink writes audit events through an hclog.Logger.
type HCLogSink = internalaudit.HCLogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewHCLogSink returns an HCLogSink logging under logger.Named("audit").
func NewHCLogSink(logger hclog.Logger) *HCLogSink {
	return internalaudit.NewHCLogSink(logger)
}
