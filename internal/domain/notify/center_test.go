package notify

import (
	"sync"
	"testing"
	"time"
)

func TestNotifyAddsActiveNotification(t *testing.T) {
	c := NewCenterWithTTL(time.Minute)
	defer c.Close()

	id := c.Error("failed to load tracks")

	active := c.Active()
	if len(active) != 1 {
		t.Fatalf("active = %v", active)
	}
	if active[0].ID != id || active[0].Level != LevelError {
		t.Errorf("notification = %+v", active[0])
	}
}

func TestNotificationsExpire(t *testing.T) {
	c := NewCenterWithTTL(20 * time.Millisecond)
	defer c.Close()

	c.Success("saved")
	time.Sleep(80 * time.Millisecond)

	if got := c.Active(); len(got) != 0 {
		t.Errorf("active after expiry = %v", got)
	}
}

func TestDismissRemovesEarly(t *testing.T) {
	c := NewCenterWithTTL(time.Minute)
	defer c.Close()

	id := c.Info("working")
	c.Dismiss(id)
	c.Dismiss(id) // unknown by now, ignored

	if got := c.Active(); len(got) != 0 {
		t.Errorf("active after dismiss = %v", got)
	}
}

func TestIDsAreUnique(t *testing.T) {
	c := NewCenterWithTTL(time.Minute)
	defer c.Close()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := c.Info("n")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSubscriberSeesExpiry(t *testing.T) {
	c := NewCenterWithTTL(20 * time.Millisecond)
	defer c.Close()

	var mu sync.Mutex
	var lastLen, calls int
	c.Subscribe(func(active []Notification) {
		mu.Lock()
		lastLen = len(active)
		calls++
		mu.Unlock()
	})

	c.Success("done")
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("subscriber calls = %d, want post + expiry", calls)
	}
	if lastLen != 0 {
		t.Errorf("final active length = %d, want 0", lastLen)
	}
}

func TestCloseStopsTimersAndRejectsNewPosts(t *testing.T) {
	c := NewCenterWithTTL(time.Minute)
	c.Info("pending")
	c.Close()

	c.Info("after close")
	if got := c.Active(); len(got) != 0 {
		t.Errorf("active after close = %v", got)
	}
}
