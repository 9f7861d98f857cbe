package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/secureauthx/secureauthx"
)

const identityColumns = `id, email, password_hash, is_admin, is_active, created_at`

// Directory is a secureauthx.UserDirectory backed by the identities table.
type Directory struct {
	db DBTX
}

func NewDirectory(db DBTX) *Directory {
	return &Directory{db: db}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*secureauthx.Identity, error) {
	query :=
		`SELECT ` + identityColumns + ` FROM identities
		 WHERE email = $1`

	return d.scanOne(d.db.QueryRowContext(ctx, query, email))
}

func (d *Directory) FindByID(ctx context.Context, id int64) (*secureauthx.Identity, error) {
	query :=
		`SELECT ` + identityColumns + ` FROM identities
		 WHERE id = $1`

	return d.scanOne(d.db.QueryRowContext(ctx, query, id))
}

// Create inserts an active, non-admin identity. The unique email constraint
// decides concurrent registrations.
func (d *Directory) Create(ctx context.Context, email, passwordHash string) (*secureauthx.Identity, error) {
	query :=
		`INSERT INTO identities (email, password_hash)
		 VALUES ($1, $2)
		 RETURNING ` + identityColumns

	user, err := d.scanOne(d.db.QueryRowContext(ctx, query, email, passwordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, secureauthx.ErrAlreadyRegistered
		}
		return nil, err
	}
	return user, nil
}

// UpdatePasswordHash implements secureauthx.PasswordRehasher.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE identities SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return secureauthx.ErrUserNotFound
	}
	return nil
}

// SetActive enables or disables an identity.
func (d *Directory) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE identities SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return unavailable(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return secureauthx.ErrUserNotFound
	}
	return nil
}

func (d *Directory) scanOne(row *sql.Row) (*secureauthx.Identity, error) {
	u := &secureauthx.Identity{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, secureauthx.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
