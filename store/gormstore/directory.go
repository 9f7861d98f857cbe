package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/secureauthx/secureauthx"
)

// Directory is a secureauthx.UserDirectory on top of gorm.
type Directory struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db, now: time.Now}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*secureauthx.Identity, error) {
	var m identityModel
	if err := d.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, lookupError(err)
	}
	return m.identity(), nil
}

func (d *Directory) FindByID(ctx context.Context, id int64) (*secureauthx.Identity, error) {
	var m identityModel
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, lookupError(err)
	}
	return m.identity(), nil
}

// Create inserts an active, non-admin identity. Drivers that do not
// translate constraint errors are covered by re-reading the email.
func (d *Directory) Create(ctx context.Context, email, passwordHash string) (*secureauthx.Identity, error) {
	m := identityModel{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    d.now().UTC(),
	}
	err := d.db.WithContext(ctx).Create(&m).Error
	if err == nil {
		return m.identity(), nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, secureauthx.ErrAlreadyRegistered
	}
	var count int64
	if cerr := d.db.WithContext(ctx).Model(&identityModel{}).Where("email = ?", email).Count(&count).Error; cerr == nil && count > 0 {
		return nil, secureauthx.ErrAlreadyRegistered
	}
	return nil, unavailable(err)
}

// UpdatePasswordHash implements secureauthx.PasswordRehasher.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return d.update(ctx, id, "password_hash", passwordHash)
}

func (d *Directory) SetActive(ctx context.Context, id int64, active bool) error {
	return d.update(ctx, id, "is_active", active)
}

func (d *Directory) SetAdmin(ctx context.Context, id int64, admin bool) error {
	return d.update(ctx, id, "is_admin", admin)
}

func (d *Directory) update(ctx context.Context, id int64, column string, value any) error {
	res := d.db.WithContext(ctx).Model(&identityModel{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return secureauthx.ErrUserNotFound
	}
	return nil
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return secureauthx.ErrUserNotFound
	}
	return unavailable(err)
}

func (m *identityModel) identity() *secureauthx.Identity {
	return &secureauthx.Identity{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		IsAdmin:      m.IsAdmin,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}
