package cache

import (
	"context"
	"sync"
	"time"
)

// Presence is the last activity seen from a device.
type Presence struct {
	LastSeen     time.Time
	LastStopTime time.Time
}

// PresenceTracker remembers when each device last reported in. Entries lapse
// after the tracker's TTL, at which point the device counts as offline.
type PresenceTracker interface {
	Touch(ctx context.Context, tenantID, deviceID string, p Presence) error
	Get(ctx context.Context, tenantID, deviceID string) (*Presence, error)
}

type presenceEntry struct {
	presence  Presence
	expiresAt time.Time
}

// MemoryPresence keeps presence in process memory; used when no Redis is configured.
type MemoryPresence struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry // map[tenant:device]entry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryPresence(ttl time.Duration) *MemoryPresence {
	return &MemoryPresence{
		entries: make(map[string]presenceEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryPresence) Touch(_ context.Context, tenantID, deviceID string, p Presence) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tenantID + ":" + deviceID
	// Heartbeats carry no stop time; keep the one from the last session
	if p.LastStopTime.IsZero() {
		if old, ok := m.entries[key]; ok {
			p.LastStopTime = old.presence.LastStopTime
		}
	}
	m.entries[key] = presenceEntry{presence: p, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryPresence) Get(_ context.Context, tenantID, deviceID string) (*Presence, error) {
	m.mu.RLock()
	entry, ok := m.entries[tenantID+":"+deviceID]
	m.mu.RUnlock()
	if !ok || !m.now().Before(entry.expiresAt) {
		return nil, nil
	}
	p := entry.presence
	return &p, nil
}

// Prune drops lapsed entries and reports how many were removed.
func (m *MemoryPresence) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
