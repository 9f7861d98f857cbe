// Package gormstore stores identities and refresh session records through
// gorm. Any gorm dialector works; the server uses the postgres driver and
// the tests run on an in-memory sqlite database.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/secureauthx/secureauthx"
)

type identityModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex:idx_identities_email;type:varchar(254);not null"`
	PasswordHash string    `gorm:"not null"`
	IsAdmin      bool      `gorm:"not null"`
	IsActive     bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (identityModel) TableName() string {
	return "identities"
}

// sessionModel rows are never deleted. The RESTRICT constraint keeps an
// identity from being removed while its records exist.
type sessionModel struct {
	TokenID    string        `gorm:"primaryKey;type:varchar(64)"`
	IdentityID int64         `gorm:"index:idx_refresh_sessions_identity;not null"`
	Identity   identityModel `gorm:"foreignKey:IdentityID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Revoked    bool          `gorm:"not null"`
	ExpiresAt  time.Time     `gorm:"not null"`
	CreatedAt  time.Time     `gorm:"not null"`
}

func (sessionModel) TableName() string {
	return "refresh_sessions"
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
}

// OpenPostgres connects to PostgreSQL with the gorm postgres driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secureauthx.ErrStoreUnavailable, err)
	}
	return db, nil
}

// OpenSQLite opens a sqlite database; ":memory:" gives a throwaway one. The
// pool is pinned to a single connection so an in-memory database is shared
// by every caller and writers never hit SQLITE_BUSY. Foreign keys are off by
// default in sqlite and are switched on for that connection.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secureauthx.ErrStoreUnavailable, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", secureauthx.ErrStoreUnavailable, err)
	}
	return db, nil
}

// Migrate creates or updates both tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&identityModel{}, &sessionModel{}); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", secureauthx.ErrStoreUnavailable, err)
}
