package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/secureauthx/secureauthx/session"
)

// Ledger is a session.Ledger on top of gorm. It also implements
// session.Rotator and session.IdentityRevoker.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Insert(ctx context.Context, rec session.Record) error {
	return insertRecord(l.db.WithContext(ctx), rec)
}

func insertRecord(tx *gorm.DB, rec session.Record) error {
	m := sessionModel{
		TokenID:    rec.TokenID,
		IdentityID: rec.IdentityID,
		Revoked:    rec.Revoked,
		ExpiresAt:  rec.ExpiresAt.UTC(),
		CreatedAt:  rec.CreatedAt.UTC(),
	}
	err := tx.Omit(clause.Associations).Create(&m).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return session.ErrDuplicateTokenID
	}
	var count int64
	if cerr := tx.Model(&sessionModel{}).Where("token_id = ?", rec.TokenID).Count(&count).Error; cerr == nil && count > 0 {
		return session.ErrDuplicateTokenID
	}
	return unavailable(err)
}

func (l *Ledger) FindByTokenID(ctx context.Context, tokenID string) (*session.Record, error) {
	var m sessionModel
	err := l.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrRecordNotFound
		}
		return nil, unavailable(err)
	}
	return &session.Record{
		TokenID:    m.TokenID,
		IdentityID: m.IdentityID,
		Revoked:    m.Revoked,
		ExpiresAt:  m.ExpiresAt.UTC(),
		CreatedAt:  m.CreatedAt.UTC(),
	}, nil
}

func (l *Ledger) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	return revokeRecord(l.db.WithContext(ctx), tokenID)
}

func revokeRecord(tx *gorm.DB, tokenID string) (bool, error) {
	res := tx.Model(&sessionModel{}).
		Where("token_id = ? AND revoked = ?", tokenID, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, unavailable(res.Error)
	}
	return res.RowsAffected == 1, nil
}

var errRotateLost = errors.New("rotate lost")

// Rotate revokes oldTokenID and inserts next in one transaction.
func (l *Ledger) Rotate(ctx context.Context, oldTokenID string, next session.Record) (bool, error) {
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := revokeRecord(tx, oldTokenID)
		if err != nil {
			return err
		}
		if !won {
			return errRotateLost
		}
		return insertRecord(tx, next)
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errRotateLost):
		return false, nil
	default:
		return false, err
	}
}

func (l *Ledger) RevokeAllForIdentity(ctx context.Context, identityID int64) (int, error) {
	res := l.db.WithContext(ctx).Model(&sessionModel{}).
		Where("identity_id = ? AND revoked = ?", identityID, false).
		Update("revoked", true)
	if res.Error != nil {
		return 0, unavailable(res.Error)
	}
	return int(res.RowsAffected), nil
}
