package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/session"
)

// Ledger is a session.Ledger backed by the refresh_sessions table. The
// conditional UPDATE ... WHERE NOT revoked is the compare-and-set; row locks
// serialize concurrent revokes of the same token.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Insert(ctx context.Context, rec session.Record) error {
	return insertRecord(ctx, l.db, rec)
}

func insertRecord(ctx context.Context, db DBTX, rec session.Record) error {
	query :=
		`INSERT INTO refresh_sessions (token_id, identity_id, revoked, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)`

	_, err := db.ExecContext(ctx, query,
		rec.TokenID, rec.IdentityID, rec.Revoked, rec.ExpiresAt.UTC(), rec.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return session.ErrDuplicateTokenID
		}
		return unavailable(err)
	}
	return nil
}

func (l *Ledger) FindByTokenID(ctx context.Context, tokenID string) (*session.Record, error) {
	query :=
		`SELECT token_id, identity_id, revoked, expires_at, created_at FROM refresh_sessions
		 WHERE token_id = $1`

	rec := &session.Record{}
	err := l.db.QueryRowContext(ctx, query, tokenID).
		Scan(&rec.TokenID, &rec.IdentityID, &rec.Revoked, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrRecordNotFound
		}
		return nil, unavailable(err)
	}
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func (l *Ledger) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	return revokeRecord(ctx, l.db, tokenID)
}

func revokeRecord(ctx context.Context, db DBTX, tokenID string) (bool, error) {
	query :=
		`UPDATE refresh_sessions SET revoked = TRUE
		 WHERE token_id = $1 AND NOT revoked`

	res, err := db.ExecContext(ctx, query, tokenID)
	if err != nil {
		return false, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(err)
	}
	return n == 1, nil
}

// Rotate revokes oldTokenID and inserts next in one transaction. Nothing is
// written when the revoke loses.
func (l *Ledger) Rotate(ctx context.Context, oldTokenID string, next session.Record) (bool, error) {
	won := false
	err := withTx(ctx, l.db, func(tx DBTX) error {
		ok, err := revokeRecord(ctx, tx, oldTokenID)
		if err != nil || !ok {
			return err
		}
		if err := insertRecord(ctx, tx, next); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrDuplicateTokenID) || errors.Is(err, secureauthx.ErrStoreUnavailable) {
			return false, err
		}
		return false, unavailable(err)
	}
	return won, nil
}

func (l *Ledger) RevokeAllForIdentity(ctx context.Context, identityID int64) (int, error) {
	query :=
		`UPDATE refresh_sessions SET revoked = TRUE
		 WHERE identity_id = $1 AND NOT revoked`

	res, err := l.db.ExecContext(ctx, query, identityID)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return int(n), nil
}
