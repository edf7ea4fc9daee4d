// Package socket tracks live real-time connections per authenticated user
// and pushes role-filtered events to them.  Delivery is best effort: an
// event reaches the connections that are registered when a notification
// scan starts and whose outbound queue has room; nothing is acknowledged,
// retried or persisted.
package socket

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/rbac"
)

// Conn is one live connection as seen by the registry.
type Conn interface {
	// ID uniquely identifies the connection for its lifetime.
	ID() string
	// Principal is the user authenticated at handshake time, with roles
	// and permissions resolved.
	Principal() *model.Principal
	// Emit queues an event for delivery without blocking.
	Emit(event string, payload any) error
	// Close tears the connection down.
	Close() error
}

// Registry maps user IDs to their live connections in registration order.
// A user ID is present iff it has at least one connection.  All methods
// are safe for concurrent use; register, unregister and the notification
// snapshot are the critical sections.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uint64][]Conn
	logger *zap.Logger
}

// NewRegistry returns an empty registry.  One registry is created per
// process and shared by the socket server and the notifiers.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{conns: make(map[uint64][]Conn), logger: logger}
}

// Register adds conn to userID's set.  Registering a connection that is
// already present is a no-op, so a connection never receives the same
// notification twice.
func (r *Registry) Register(userID uint64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conns[userID] {
		if c.ID() == conn.ID() {
			return
		}
	}
	r.conns[userID] = append(r.conns[userID], conn)
}

// Unregister removes conn from userID's set and drops the user when the
// set becomes empty.  Unknown connections are ignored.
func (r *Registry) Unregister(userID uint64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[userID]
	for i, c := range set {
		if c.ID() != conn.ID() {
			continue
		}
		set = append(set[:i:i], set[i+1:]...)
		break
	}
	if len(set) == 0 {
		delete(r.conns, userID)
		return
	}
	r.conns[userID] = set
}

// Connections returns the number of live connections for userID.
func (r *Registry) Connections(userID uint64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID])
}

// Users returns the number of users with at least one live connection.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// NotifyRoles emits event to every connection of every user holding at
// least one of roleNames.  Role membership is read from the user's first
// registered connection only; all of a user's connections are assumed to
// carry the same roles, which holds unless the user's roles changed
// between two handshakes.  Send failures are logged and skipped.
func (r *Registry) NotifyRoles(roleNames []string, event string, payload any) {
	for userID, set := range r.snapshot() {
		if !holdsAny(set[0].Principal(), roleNames) {
			continue
		}
		for _, c := range set {
			if err := c.Emit(event, payload); err != nil {
				r.logger.Warn("socket emit failed",
					zap.Uint64("user_id", userID),
					zap.String("conn_id", c.ID()),
					zap.String("event", event),
					zap.Error(err))
			}
		}
	}
}

// snapshot copies the map so that emits happen outside the lock.
func (r *Registry) snapshot() map[uint64][]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint64][]Conn, len(r.conns))
	for id, set := range r.conns {
		if len(set) == 0 {
			continue
		}
		cp := make([]Conn, len(set))
		copy(cp, set)
		out[id] = cp
	}
	return out
}

func holdsAny(p *model.Principal, roleNames []string) bool {
	for _, name := range roleNames {
		if rbac.HasRole(p, name) {
			return true
		}
	}
	return false
}
