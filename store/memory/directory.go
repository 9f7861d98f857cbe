// Package memory provides an in-process UserDirectory for tests, demos and
// single-node deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/secureauthx/secureauthx"
)

// Directory is a mutex-guarded UserDirectory. Returned identities are copies.
type Directory struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*secureauthx.Identity
	byEmail map[string]int64
	now     func() time.Time
}

func NewDirectory() *Directory {
	return &Directory{
		byID:    make(map[int64]*secureauthx.Identity),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*secureauthx.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, secureauthx.ErrUserNotFound
	}
	return d.copyLocked(id), nil
}

func (d *Directory) FindByID(ctx context.Context, id int64) (*secureauthx.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.byID[id]; !ok {
		return nil, secureauthx.ErrUserNotFound
	}
	return d.copyLocked(id), nil
}

// Create stores a new active, non-admin identity.
func (d *Directory) Create(ctx context.Context, email, passwordHash string) (*secureauthx.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[email]; ok {
		return nil, secureauthx.ErrAlreadyRegistered
	}
	d.nextID++
	user := &secureauthx.Identity{
		ID:           d.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    d.now().UTC(),
	}
	d.byID[user.ID] = user
	d.byEmail[email] = user.ID

	return d.copyLocked(user.ID), nil
}

// UpdatePasswordHash implements secureauthx.PasswordRehasher.
func (d *Directory) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return secureauthx.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// SetActive enables or disables an identity.
func (d *Directory) SetActive(id int64, active bool) error {
	return d.update(id, func(u *secureauthx.Identity) { u.IsActive = active })
}

// SetAdmin grants or removes the admin flag.
func (d *Directory) SetAdmin(id int64, admin bool) error {
	return d.update(id, func(u *secureauthx.Identity) { u.IsAdmin = admin })
}

func (d *Directory) update(id int64, fn func(*secureauthx.Identity)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.byID[id]
	if !ok {
		return secureauthx.ErrUserNotFound
	}
	fn(user)
	return nil
}

func (d *Directory) copyLocked(id int64) *secureauthx.Identity {
	u := *d.byID[id]
	return &u
}
