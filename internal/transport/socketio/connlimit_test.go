package socketio

import (
	"fmt"
	"testing"
)

func TestLimiterLocalhostAlwaysAllowed(t *testing.T) {
	cl := NewConnectionLimiter(1)

	for i := 0; i < 10; i++ {
		allowed, evicted := cl.TryAdd(fmt.Sprintf("local-%d", i), "127.0.0.1")
		if !allowed {
			t.Errorf("localhost connection %d should be allowed", i)
		}
		if evicted != "" {
			t.Errorf("localhost connection %d should not evict anyone, got %s", i, evicted)
		}
	}
}

func TestLimiterIPv6LocalhostAllowed(t *testing.T) {
	cl := NewConnectionLimiter(1)

	allowed, evicted := cl.TryAdd("ipv6-local", "::1")
	if !allowed || evicted != "" {
		t.Errorf("IPv6 localhost: allowed=%v evicted=%q", allowed, evicted)
	}
}

func TestLimiterStripsHandshakePort(t *testing.T) {
	cl := NewConnectionLimiter(1)

	// Handshake addresses carry the ephemeral port.
	allowed, evicted := cl.TryAdd("local-port", "127.0.0.1:54021")
	if !allowed || evicted != "" {
		t.Errorf("localhost with port: allowed=%v evicted=%q", allowed, evicted)
	}

	cl.TryAdd("ext-1", "192.168.1.100:50001")
	_, evicted = cl.TryAdd("ext-2", "192.168.1.101:50002")
	if evicted != "ext-1" {
		t.Errorf("expected eviction of ext-1, got %q", evicted)
	}
}

func TestLimiterSecondExternalEvictsOldest(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")

	allowed, evicted := cl.TryAdd("ext-2", "192.168.1.101")
	if !allowed {
		t.Error("second external connection should be allowed")
	}
	if evicted != "ext-1" {
		t.Errorf("expected eviction of ext-1, got %q", evicted)
	}

	_, evicted = cl.TryAdd("ext-3", "192.168.1.102")
	if evicted != "ext-2" {
		t.Errorf("expected eviction of ext-2, got %q", evicted)
	}
}

func TestLimiterLocalUnaffectedByExternalCap(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")

	allowed, evicted := cl.TryAdd("local-1", "127.0.0.1")
	if !allowed || evicted != "" {
		t.Errorf("local with cap reached: allowed=%v evicted=%q", allowed, evicted)
	}
}

func TestLimiterRemoveFreesSlot(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")
	cl.Remove("ext-1")

	allowed, evicted := cl.TryAdd("ext-2", "192.168.1.101")
	if !allowed || evicted != "" {
		t.Errorf("after removal: allowed=%v evicted=%q", allowed, evicted)
	}
	if cl.Count() != 1 {
		t.Errorf("count = %d, want 1", cl.Count())
	}
}

func TestLimiterDuplicateAddIsIdempotent(t *testing.T) {
	cl := NewConnectionLimiter(1)

	cl.TryAdd("ext-1", "192.168.1.100")
	allowed, evicted := cl.TryAdd("ext-1", "192.168.1.100")
	if !allowed || evicted != "" {
		t.Errorf("duplicate add: allowed=%v evicted=%q", allowed, evicted)
	}
}

func TestLimiterRemoveUnknownIsIgnored(t *testing.T) {
	cl := NewConnectionLimiter(1)
	cl.Remove("nonexistent")
}

func TestHostOnly(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:54021", "127.0.0.1"},
		{"127.0.0.1", "127.0.0.1"},
		{"[::1]:54021", "::1"},
		{"::1", "::1"},
		{"192.168.1.100", "192.168.1.100"},
	}
	for _, tc := range tests {
		if got := hostOnly(tc.addr); got != tc.want {
			t.Errorf("hostOnly(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestIsLocalIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"192.168.1.100", false},
		{"10.0.0.1", false},
		{"0.0.0.0", false},
	}

	for _, tc := range tests {
		if got := isLocalIP(tc.ip); got != tc.expected {
			t.Errorf("isLocalIP(%q) = %v, want %v", tc.ip, got, tc.expected)
		}
	}
}
