// Package notify holds transient user-facing notifications with automatic
// expiry. Repository failures and playback faults surface here instead of
// crashing the session.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a notification stays visible before auto-dismissal.
const DefaultTTL = 3 * time.Second

// Level classifies a notification for presentation.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is one transient message.
type Notification struct {
	ID      string `json:"id"`
	Level   Level  `json:"type"`
	Message string `json:"message"`
}

// Center holds the active notifications and expires them after their TTL.
type Center struct {
	ttl time.Duration

	mu          sync.Mutex
	active      []Notification
	timers      map[string]*time.Timer
	subscribers []func([]Notification)
	closed      bool
}

// NewCenter creates a center with the default TTL.
func NewCenter() *Center {
	return NewCenterWithTTL(DefaultTTL)
}

// NewCenterWithTTL creates a center with a custom TTL. Tests use short ones.
func NewCenterWithTTL(ttl time.Duration) *Center {
	return &Center{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
	}
}

// Subscribe registers a callback invoked with the active list after every
// change, including expiry.
func (c *Center) Subscribe(fn func([]Notification)) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// Active returns a copy of the currently visible notifications.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := make([]Notification, len(c.active))
	copy(active, c.active)
	return active
}

// Notify posts a notification and schedules its expiry. Returns the
// generated id.
func (c *Center) Notify(level Level, message string) string {
	id := uuid.NewString()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return id
	}
	c.active = append(c.active, Notification{ID: id, Level: level, Message: message})
	c.timers[id] = time.AfterFunc(c.ttl, func() { c.Dismiss(id) })
	c.mu.Unlock()

	log.Debug().Str("level", string(level)).Str("message", message).Msg("Notification posted")
	c.publish()
	return id
}

// Success posts a success notification.
func (c *Center) Success(message string) string { return c.Notify(LevelSuccess, message) }

// Error posts an error notification.
func (c *Center) Error(message string) string { return c.Notify(LevelError, message) }

// Info posts an info notification.
func (c *Center) Info(message string) string { return c.Notify(LevelInfo, message) }

// Dismiss removes a notification before its TTL elapses. Unknown ids are
// ignored; dismissal races with expiry and either side may win.
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	removed := false
	for i, n := range c.active {
		if n.ID == id {
			c.active = append(c.active[:i], c.active[i+1:]...)
			removed = true
			break
		}
	}
	c.mu.Unlock()

	if removed {
		c.publish()
	}
}

// Close stops all expiry timers. Used on shutdown.
func (c *Center) Close() {
	c.mu.Lock()
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.active = nil
	c.mu.Unlock()
}

func (c *Center) publish() {
	c.mu.Lock()
	active := make([]Notification, len(c.active))
	copy(active, c.active)
	subs := make([]func([]Notification), len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(active)
	}
}
