package session

import (
	"context"
	"sync"
)

// MemoryLedger is an in-process Ledger. It implements Rotator and
// IdentityRevoker; all operations are serialized by one mutex.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]Record)}
}

func (m *MemoryLedger) Insert(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(rec)
}

func (m *MemoryLedger) FindByTokenID(ctx context.Context, tokenID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[tokenID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (m *MemoryLedger) RevokeIfActive(ctx context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revokeLocked(tokenID), nil
}

func (m *MemoryLedger) Rotate(ctx context.Context, oldTokenID string, next Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[next.TokenID]; exists {
		return false, ErrDuplicateTokenID
	}
	if !m.revokeLocked(oldTokenID) {
		return false, nil
	}
	return true, m.insertLocked(next)
}

func (m *MemoryLedger) RevokeAllForIdentity(ctx context.Context, identityID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.records {
		if rec.IdentityID == identityID && !rec.Revoked {
			rec.Revoked = true
			m.records[id] = rec
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, revoked ones included.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryLedger) insertLocked(rec Record) error {
	if _, exists := m.records[rec.TokenID]; exists {
		return ErrDuplicateTokenID
	}
	m.records[rec.TokenID] = rec
	return nil
}

func (m *MemoryLedger) revokeLocked(tokenID string) bool {
	rec, ok := m.records[tokenID]
	if !ok || rec.Revoked {
		return false
	}
	rec.Revoked = true
	m.records[tokenID] = rec
	return true
}
