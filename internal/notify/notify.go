// Package notify implements the per-session notification center with a
// short dedup window and a capped ring of recent entries.
package notify

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

const (
	// DedupWindow suppresses repeats of the same (kind, message) pair.
	DedupWindow = 5 * time.Second
	// MaxEntries caps the ring; oldest entries are dropped on overflow.
	MaxEntries = 10
)

type dedupKey struct {
	kind    model.NotificationKind
	message string
}

// Center collects notifications for a single session. Safe for concurrent use.
type Center struct {
	mu      sync.Mutex
	entries []model.Notification // oldest first
	seen    map[dedupKey]time.Time
	now     func() time.Time
	newID   func() (uuid.UUID, error)
}

// New returns an empty Center using wall-clock time.
func New() *Center {
	return NewWithClock(time.Now)
}

// NewWithClock injects the clock; tests pass a fake to drive the window.
func NewWithClock(now func() time.Time) *Center {
	return &Center{seen: map[dedupKey]time.Time{}, now: now, newID: uuid.NewV4}
}

// Notify appends a notification unless the same (kind, message) was seen
// within the dedup window, in which case the call is a silent no-op.
func (c *Center) Notify(kind model.NotificationKind, title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)

	key := dedupKey{kind: kind, message: message}
	if last, ok := c.seen[key]; ok && now.Sub(last) < DedupWindow {
		return
	}

	// The stamp is written only once the entry actually lands; a dropped
	// notification must not suppress its own retry.
	id, err := c.newID()
	if err != nil {
		return
	}
	c.entries = append(c.entries, model.Notification{
		ID:        id,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: now,
	})
	if len(c.entries) > MaxEntries {
		c.entries = append([]model.Notification(nil), c.entries[len(c.entries)-MaxEntries:]...)
	}
	c.seen[key] = now
}

// prune drops dedup stamps that fell out of the window. Called with mu held.
func (c *Center) prune(now time.Time) {
	for k, at := range c.seen {
		if now.Sub(at) >= DedupWindow {
			delete(c.seen, k)
		}
	}
}

// MarkRead flags the entry read. Idempotent; unknown ids are ignored.
func (c *Center) MarkRead(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].ID == id {
			c.entries[i].Read = true
			return
		}
	}
}

// UnreadCount counts entries not yet marked read.
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.entries {
		if !c.entries[i].Read {
			n++
		}
	}
	return n
}

// List returns the buffered notifications, newest first.
func (c *Center) List() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, 0, len(c.entries))
	for i := len(c.entries) - 1; i >= 0; i-- {
		out = append(out, c.entries[i])
	}
	return out
}

// Clear empties the buffer and the dedup stamps.
func (c *Center) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
	c.seen = map[dedupKey]time.Time{}
}

// Hub hands out one Center per identity so sessions do not see each
// other's noise.
type Hub struct {
	mu      sync.Mutex
	centers map[uuid.UUID]*Center
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{centers: map[uuid.UUID]*Center{}}
}

// For returns the center for the given identity, creating it on first use.
func (h *Hub) For(id uuid.UUID) *Center {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.centers[id]
	if !ok {
		c = New()
		h.centers[id] = c
	}
	return c
}
