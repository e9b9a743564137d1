// Package lock implements the in-process reservation lock: a keyed,
// time-bounded mutex over (room, time window) tuples.  The lock only
// shrinks the race window between the availability check and the
// durable commit inside a single process; across processes the
// versioned conditional write plus the overlap query remain the source
// of truth.
package lock

import (
    "context"
    "fmt"
    "sync"
    "time"
)

// TTL is how long a granted lock survives before any other holder may
// take it over.  It is a safety net against a request that dies between
// acquire and release, not the primary correctness mechanism: the
// conflict detector runs again inside the same request after
// acquisition.
const TTL = 30 * time.Second

type entry struct {
    holder    string
    expiresAt time.Time
}

// Manager is a keyed TTL mutex.  All map access goes through one mutex;
// the lock table is the only shared mutable in-process state this
// service carries.
type Manager struct {
    mu    sync.Mutex
    locks map[string]entry
    ttl   time.Duration

    now func() time.Time // swapped out in tests
}

// NewManager returns a Manager with the default 30 second TTL.
func NewManager() *Manager {
    return &Manager{
        locks: make(map[string]entry),
        ttl:   TTL,
        now:   time.Now,
    }
}

// Key builds the canonical lock key for a room and half-open window.
func Key(roomID uint64, start, end time.Time) string {
    return fmt.Sprintf("%d:%s:%s",
        roomID,
        start.UTC().Format(time.RFC3339),
        end.UTC().Format(time.RFC3339),
    )
}

// Acquire grants the lock when no entry exists for the key, the
// existing entry has expired, or the existing holder is the requester
// (idempotent re-entry).  The TTL is measured from grant time; a
// re-entry refreshes it.
func (m *Manager) Acquire(key, holder string) bool {
    m.mu.Lock()
    defer m.mu.Unlock()
    now := m.now()
    if e, ok := m.locks[key]; ok {
        if e.holder != holder && now.Before(e.expiresAt) {
            return false
        }
    }
    m.locks[key] = entry{holder: holder, expiresAt: now.Add(m.ttl)}
    return true
}

// Release removes the lock entry.  Releasing an absent key is a no-op
// so callers can release unconditionally in deferred blocks.
func (m *Manager) Release(key string) {
    m.mu.Lock()
    delete(m.locks, key)
    m.mu.Unlock()
}

// CurrentHolder reports who holds an unexpired lock on the key.
// Expired entries are removed lazily here.
func (m *Manager) CurrentHolder(key string) (string, bool) {
    m.mu.Lock()
    defer m.mu.Unlock()
    e, ok := m.locks[key]
    if !ok {
        return "", false
    }
    if !m.now().Before(e.expiresAt) {
        delete(m.locks, key)
        return "", false
    }
    return e.holder, true
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *Manager) Sweep() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    now := m.now()
    removed := 0
    for k, e := range m.locks {
        if !now.Before(e.expiresAt) {
            delete(m.locks, k)
            removed++
        }
    }
    return removed
}

// StartSweeper runs Sweep on the given interval until the context is
// cancelled.  Lazy expiry on access already keeps the table correct;
// the sweep only bounds its memory.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            m.Sweep()
        }
    }
}
