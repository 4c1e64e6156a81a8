package availability

import (
	"sync"
	"time"

	"slotkeeper/pkg/model"
)

// Cache holds slot snapshots for a short TTL. Each entry is one atomic
// snapshot; entries are replaced, never patched.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Key]model.AvailabilityCacheEntry
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[Key]model.AvailabilityCacheEntry),
	}
}

func (c *Cache) Get(key Key) (model.AvailabilityCacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return model.AvailabilityCacheEntry{}, false
	}
	if c.now().Sub(entry.FetchedAt) >= c.ttl {
		delete(c.entries, key)
		return model.AvailabilityCacheEntry{}, false
	}
	return entry, true
}

func (c *Cache) Put(key Key, slots []model.AvailabilitySlot) model.AvailabilityCacheEntry {
	entry := model.AvailabilityCacheEntry{
		Key:       key.String(),
		Slots:     slots,
		FetchedAt: c.now(),
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateStaffDay drops every snapshot for day that could contain a slot
// of staffID: the ones selected for that staff member and the "any" ones.
func (c *Cache) InvalidateStaffDay(day, staffID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if key.Day != day {
			continue
		}
		if key.StaffID == staffID || key.StaffID == model.AnyStaff {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
