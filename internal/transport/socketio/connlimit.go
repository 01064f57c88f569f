package socketio

import (
	"net"
	"strings"
	"sync"
)

// ConnectionLimiter caps concurrent non-localhost clients. Connections from
// the machine running the server are always allowed. When an external
// connection exceeds the cap, the oldest external client is evicted instead
// of refusing the new one: the latest browser tab wins.
type ConnectionLimiter struct {
	mu          sync.Mutex
	maxExternal int
	// external client ids, oldest first
	external []string
	// clientID -> remote IP for every tracked connection
	connections map[string]string
}

// NewConnectionLimiter allows up to maxExternal concurrent non-localhost
// connections.
func NewConnectionLimiter(maxExternal int) *ConnectionLimiter {
	return &ConnectionLimiter{
		maxExternal: maxExternal,
		connections: make(map[string]string),
	}
}

// TryAdd registers a connection. It reports whether the connection is
// accepted and the id of any evicted client.
func (cl *ConnectionLimiter) TryAdd(clientID, remoteAddr string) (allowed bool, evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.connections[clientID]; exists {
		return true, ""
	}

	ip := hostOnly(remoteAddr)
	cl.connections[clientID] = ip

	if isLocalIP(ip) {
		return true, ""
	}

	cl.external = append(cl.external, clientID)
	if len(cl.external) > cl.maxExternal {
		evictedID = cl.external[0]
		cl.external = cl.external[1:]
		delete(cl.connections, evictedID)
		return true, evictedID
	}

	return true, ""
}

// Remove unregisters a disconnected client. Unknown ids are ignored.
func (cl *ConnectionLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	ip, exists := cl.connections[clientID]
	if !exists {
		return
	}
	delete(cl.connections, clientID)

	if isLocalIP(ip) {
		return
	}
	for i, id := range cl.external {
		if id == clientID {
			cl.external = append(cl.external[:i], cl.external[i+1:]...)
			break
		}
	}
}

// Count returns the number of tracked connections.
func (cl *ConnectionLimiter) Count() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.connections)
}

// hostOnly strips the port from a handshake address, if any.
func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}

func isLocalIP(ip string) bool {
	return ip == "127.0.0.1" || ip == "::1" || ip == "localhost"
}
