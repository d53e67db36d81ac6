package core

// Registry maps logical user identities to the connection currently
// representing them. Single-session model: a reconnect overwrites the prior
// entry (last writer wins), and the prior connection's eventual disconnect
// must not evict the fresher mapping.
type Registry struct {
	byUser map[string]string // user id -> connection id
	byConn map[string]string // connection id -> user id
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// Register binds a user identity to a connection. If the identity already
// points at a different live connection, the entry is overwritten; the
// superseded connection keeps its reverse mapping so its later disconnect
// resolves against the tie-break rule in Unregister. A connection rebinding
// to a new identity releases the old one first, so no identity entry can
// outlive the connections that ever represented it.
func (r *Registry) Register(connID, userID string) {
	if prev, ok := r.byConn[connID]; ok && prev != userID && r.byUser[prev] == connID {
		delete(r.byUser, prev)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
}

// Unregister removes any identity entry pointing at this connection and
// reports whether a removal occurred. The identity entry is removed only if
// it still points at the disconnecting connection; a stale disconnect of a
// superseded connection is a no-op against the fresher session.
func (r *Registry) Unregister(connID string) (userID string, removed bool) {
	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	if r.byUser[userID] != connID {
		return userID, false
	}
	delete(r.byUser, userID)
	return userID, true
}

// ConnFor returns the connection id currently representing the user.
func (r *Registry) ConnFor(userID string) (string, bool) {
	connID, ok := r.byUser[userID]
	return connID, ok
}

// OnlineUsers returns the current set of registered user identities.
// Order is not significant.
func (r *Registry) OnlineUsers() []string {
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}
