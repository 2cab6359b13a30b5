package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
)

type fakeConn struct {
	id        string
	logoutErr error
	loggedOut bool
	closed    bool
	events    chan whatsapp.Event
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, events: make(chan whatsapp.Event, 1)}
}

func (f *fakeConn) ID() string                       { return f.id }
func (f *fakeConn) Registered() bool                 { return true }
func (f *fakeConn) IsConnected() bool                { return !f.closed }
func (f *fakeConn) Events() <-chan whatsapp.Event    { return f.events }
func (f *fakeConn) Close()                           { f.closed = true }
func (f *fakeConn) Logout(ctx context.Context) error { f.loggedOut = true; return f.logoutErr }

func (f *fakeConn) JoinedGroups(ctx context.Context) ([]whatsapp.Group, error) { return nil, nil }
func (f *fakeConn) GroupInfo(ctx context.Context, groupJID string) (*whatsapp.Group, error) {
	return nil, nil
}
func (f *fakeConn) GroupInviteLink(ctx context.Context, groupJID string, reset bool) (string, error) {
	return "", nil
}
func (f *fakeConn) SetGroupName(ctx context.Context, groupJID string, name string) error { return nil }
func (f *fakeConn) SetGroupAnnounce(ctx context.Context, groupJID string, announce bool) error {
	return nil
}
func (f *fakeConn) SetGroupLocked(ctx context.Context, groupJID string, locked bool) error {
	return nil
}
func (f *fakeConn) PromoteParticipants(ctx context.Context, groupJID string, members []string) error {
	return nil
}
func (f *fakeConn) RemoveParticipants(ctx context.Context, groupJID string, members []string) error {
	return nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(t.TempDir())
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn("a")

	r.Create("a", conn)

	sess, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", sess.ID)
	assert.False(t, sess.Connected)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestGetMissingSession(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestGetRefreshesActivity(t *testing.T) {
	r := newTestRegistry(t)
	base := time.Now()
	r.now = func() time.Time { return base }
	r.Create("a", newFakeConn("a"))

	r.now = func() time.Time { return base.Add(time.Hour) }
	sess, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), sess.LastActiveAt)
	assert.Equal(t, base, sess.CreatedAt)
}

func TestCreateDuplicateReleasesPriorConn(t *testing.T) {
	r := newTestRegistry(t)
	first := newFakeConn("a")
	second := newFakeConn("a")

	r.Create("a", first)
	r.Create("a", second)

	assert.True(t, first.loggedOut, "prior connection must be logged out on id reuse")
	assert.Equal(t, 1, r.Len())

	sess, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, second, sess.Conn)
}

func TestRemoveReleasesAndDeletesRecord(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn("a")
	r.Create("a", conn)

	require.NoError(t, r.Remove("a"))
	assert.True(t, conn.loggedOut)

	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Remove("a"), ErrSessionNotFound)
}

func TestRemoveFallsBackToCloseOnLogoutFailure(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn("a")
	conn.logoutErr = errors.New("socket dead")
	r.Create("a", conn)

	require.NoError(t, r.Remove("a"))
	assert.True(t, conn.closed, "failed logout must fall back to close")
	assert.Equal(t, 0, r.Len())
}

func TestDropSkipsConnectionTeardown(t *testing.T) {
	r := newTestRegistry(t)
	conn := newFakeConn("a")
	r.Create("a", conn)

	r.Drop("a")

	assert.False(t, conn.loggedOut, "drop must not touch an already-dead connection")
	assert.Equal(t, 0, r.Len())
}

func TestSetConnected(t *testing.T) {
	r := newTestRegistry(t)
	r.Create("a", newFakeConn("a"))

	r.SetConnected("a", true)
	sess, err := r.Get("a")
	require.NoError(t, err)
	assert.True(t, sess.Connected)

	// Unknown ids are ignored.
	r.SetConnected("nope", true)
}

func TestSweepEvictsOnlyIdleSessions(t *testing.T) {
	r := newTestRegistry(t)
	base := time.Now()

	r.now = func() time.Time { return base }
	stale := newFakeConn("stale")
	r.Create("stale", stale)

	r.now = func() time.Time { return base.Add(25 * time.Hour) }
	fresh := newFakeConn("fresh")
	r.Create("fresh", fresh)

	evicted := r.Sweep(24 * time.Hour)

	assert.Equal(t, 1, evicted)
	assert.True(t, stale.loggedOut)
	assert.False(t, fresh.loggedOut)

	_, err := r.Get("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get("fresh")
	assert.NoError(t, err)
}

func TestAllOrdersByCreation(t *testing.T) {
	r := newTestRegistry(t)
	base := time.Now()

	for i, id := range []string{"first", "second", "third"} {
		offset := time.Duration(i) * time.Minute
		r.now = func() time.Time { return base.Add(offset) }
		r.Create(id, newFakeConn(id))
	}

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "first", all[0].ID)
	assert.Equal(t, "second", all[1].ID)
	assert.Equal(t, "third", all[2].ID)
}
