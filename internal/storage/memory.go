package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot of each app in process memory. It is
// used when no Redis URL is configured.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
}

type memoryEntry struct {
	snapshot Snapshot
	storedAt time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl keeps entries forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]memoryEntry),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Save stores the snapshot as the app's latest.
func (m *MemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	if err := validate(snapshot); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.AppID] = memoryEntry{snapshot: *snapshot, storedAt: m.now()}
	return nil
}

// Latest returns the stored snapshot of an app. Expired entries are dropped.
func (m *MemoryStore) Latest(_ context.Context, appID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.snapshots[appID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, appID)
	}
	if m.ttl > 0 && m.now().Sub(entry.storedAt) > m.ttl {
		delete(m.snapshots, appID)
		return nil, fmt.Errorf("%w: %s expired", ErrNotFound, appID)
	}
	s := entry.snapshot
	return &s, nil
}

// Delete removes an app's snapshot.
func (m *MemoryStore) Delete(_ context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, appID)
	return nil
}
