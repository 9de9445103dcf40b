package realtime

import "sync"

// Conn is one live duplex channel to a connected client. The websocket
// Connection implements it; tests substitute stubs.
type Conn interface {
	Send(payload []byte) error
	Close()
}

// Registry maps user identities to their currently open connections. It is
// the only mutable state shared across channel goroutines and must stay safe
// for concurrent bind/unbind/snapshot. State is process-local; clients
// re-authenticate after a restart to rebind.
type Registry struct {
	mu    sync.RWMutex
	conns map[string][]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string][]Conn)}
}

// Bind adds conn under userID's bucket, creating the bucket lazily.
func (r *Registry) Bind(userID string, conn Conn) {
	if userID == "" || conn == nil {
		return
	}
	r.mu.Lock()
	r.conns[userID] = append(r.conns[userID], conn)
	r.mu.Unlock()
}

// Unbind removes one specific connection from userID's bucket. No-op when
// absent. Empty buckets are dropped.
func (r *Registry) Unbind(userID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.conns[userID]
	if !ok {
		return
	}
	for i, c := range bucket {
		if c == conn {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(r.conns, userID)
		return
	}
	r.conns[userID] = bucket
}

// ConnectionsFor returns a snapshot copy of userID's bucket so callers can
// iterate without holding the lock.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.conns[userID]
	if len(bucket) == 0 {
		return nil
	}
	return append([]Conn(nil), bucket...)
}
