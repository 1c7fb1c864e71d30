package registry

import "sync"

// Conn is the handle the registry stores for a connected client.
//
// It is implemented by the API server's WebSocket session; the dispatcher
// only needs to hand a payload to the transport and, on teardown, close it.
type Conn interface {
	// Send hands a text payload to the transport. An error means the
	// transport is dead; delivery to the remote peer is not confirmed.
	Send(payload []byte) error

	// Close tears down the underlying transport. Idempotent.
	Close() error
}

// Registry is a concurrent map from bearer token to the live connection
// registered under that token.
//
// At most one connection is stored per token; registering a token that
// already has a connection overwrites the mapping. The registry never
// closes the prior connection — its own session handler tears it down when
// the read loop fails, and the conditional Unregister keeps that stale
// teardown from evicting the newer connection.
//
// Thread Safety: all methods are safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register stores conn as the live connection for token, replacing any
// prior mapping.
func (r *Registry) Register(token string, conn Conn) {
	r.mu.Lock()
	r.conns[token] = conn
	r.mu.Unlock()
}

// Unregister removes the mapping for token only if the stored connection is
// identical to conn. A stale cleanup from an old session therefore never
// evicts a newer connection registered under the same token.
func (r *Registry) Unregister(token string, conn Conn) {
	r.mu.Lock()
	if r.conns[token] == conn {
		delete(r.conns, token)
	}
	r.mu.Unlock()
}

// Lookup returns the live connection for token, or false if none is
// registered.
func (r *Registry) Lookup(token string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[token]
	return conn, ok
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
