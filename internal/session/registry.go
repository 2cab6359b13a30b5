package session

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

var ErrSessionNotFound = errors.New("session not found")

const releaseTimeout = 30 * time.Second

// Registry owns every session record. All access goes through its mutex;
// nothing else in the process holds session state.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	storageDir string
	now        func() time.Time
}

func NewRegistry(storageDir string) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		storageDir: storageDir,
		now:        time.Now,
	}
}

// Create inserts a session record for a freshly built connection. If the
// id is already present the prior connection is released first so a
// re-link never leaks a socket.
func (r *Registry) Create(id string, conn Conn) {
	r.mu.Lock()
	prior, exists := r.sessions[id]
	if exists {
		delete(r.sessions, id)
	}
	now := r.now()
	r.sessions[id] = &Session{
		ID:           id,
		Conn:         conn,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	r.mu.Unlock()

	if exists {
		log.SessionOp(id, "Create").Warn("Session id already registered, releasing prior connection")
		releaseConn(id, prior.Conn)
	}
}

// Get returns a snapshot of the session and refreshes its activity
// timestamp. Absence is a normal outcome, not a fault.
func (r *Registry) Get(id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	sess.LastActiveAt = r.now()
	return *sess, nil
}

// All returns session snapshots ordered by creation time.
func (r *Registry) All() []Session {
	r.mu.RLock()
	snapshot := make([]Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		snapshot = append(snapshot, *sess)
	}
	r.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	return snapshot
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SetConnected records the socket state on the session. Connecting also
// counts as activity for idle eviction.
func (r *Registry) SetConnected(id string, connected bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return
	}
	sess.Connected = connected
	if connected {
		sess.LastActiveAt = r.now()
	}
}

// Remove releases the connection, deletes the record, and purges the
// session's credential directory. Used for user-initiated logout and
// delete; the record always goes away even when teardown partly fails.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	releaseConn(id, sess.Conn)
	r.purgeCredentials(id)
	return nil
}

// Drop removes a session whose connection already died terminally. The
// connection is not touched; only the record and credentials go away.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		r.purgeCredentials(id)
	}
}

// Sweep removes sessions idle longer than maxAge and returns how many
// were evicted.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	var expired []*Session
	for id, sess := range r.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			expired = append(expired, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		log.SessionOp(sess.ID, "Sweep").WithField("last_active", sess.LastActiveAt.Format(time.RFC3339)).Info("Evicting idle session")
		releaseConn(sess.ID, sess.Conn)
		r.purgeCredentials(sess.ID)
	}
	return len(expired)
}

func (r *Registry) purgeCredentials(id string) {
	dir := whatsapp.SessionDir(r.storageDir, id)
	if err := os.RemoveAll(dir); err != nil {
		log.SessionOp(id, "Remove").WithError(err).Warn("Failed to delete session credential directory")
	}
}

// releaseConn logs out with a close fallback. Release is best effort;
// failures are logged, never surfaced.
func releaseConn(id string, conn Conn) {
	if conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := conn.Logout(ctx); err != nil {
		log.SessionOp(id, "Release").WithError(err).Warn("Logout failed, closing connection")
		conn.Close()
	}
}
