package bot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdates(tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	return nil, nil
}

func (f *fakeAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var texts []string
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func (f *fakeAPI) deletedMessages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int
	for _, c := range f.requests {
		if del, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			ids = append(ids, del.MessageID)
		}
	}
	return ids
}

type fakePumpConn struct {
	id     string
	events chan whatsapp.Event
}

func newFakePumpConn(id string) *fakePumpConn {
	return &fakePumpConn{id: id, events: make(chan whatsapp.Event, 4)}
}

func (c *fakePumpConn) ID() string { return c.id }

func (c *fakePumpConn) Registered() bool { return true }

func (c *fakePumpConn) IsConnected() bool { return false }

func (c *fakePumpConn) Events() <-chan whatsapp.Event { return c.events }

func (c *fakePumpConn) Logout(ctx context.Context) error { return nil }

func (c *fakePumpConn) Close() {}

func (c *fakePumpConn) JoinedGroups(ctx context.Context) ([]whatsapp.Group, error) {
	return nil, nil
}
func (c *fakePumpConn) GroupInfo(ctx context.Context, groupJID string) (*whatsapp.Group, error) {
	return nil, nil
}
func (c *fakePumpConn) GroupInviteLink(ctx context.Context, groupJID string, reset bool) (string, error) {
	return "", nil
}
func (c *fakePumpConn) SetGroupName(ctx context.Context, groupJID string, name string) error {
	return nil
}
func (c *fakePumpConn) SetGroupAnnounce(ctx context.Context, groupJID string, announce bool) error {
	return nil
}
func (c *fakePumpConn) SetGroupLocked(ctx context.Context, groupJID string, locked bool) error {
	return nil
}
func (c *fakePumpConn) PromoteParticipants(ctx context.Context, groupJID string, members []string) error {
	return nil
}
func (c *fakePumpConn) RemoveParticipants(ctx context.Context, groupJID string, members []string) error {
	return nil
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	return &Bot{
		api:      api,
		registry: session.NewRegistry(t.TempDir()),
		convs:    newConversationStore(),
	}, api
}

func TestTerminalDisconnectDuringLinkResetsConversation(t *testing.T) {
	b, api := newTestBot(t)
	const chatID = int64(100)

	conv := b.convs.get(chatID)
	conv.set(StateWaitingQRScan, "sess-1", "")
	require.Equal(t, 0, conv.setQRMessage("sess-1", 42))

	conn := newFakePumpConn("sess-1")
	done := make(chan struct{})
	go func() {
		b.pumpConnEvents(chatID, "sess-1", conn)
		close(done)
	}()

	conn.events <- whatsapp.Event{Type: whatsapp.EventDisconnected, Reason: "logged out from phone"}
	close(conn.events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event pump did not drain")
	}

	state, sessionID, _ := conv.snapshot()
	assert.Equal(t, StateIdle, state, "a dead link attempt must not leave the chat waiting")
	assert.Empty(t, sessionID)
	assert.Equal(t, 0, conv.takeQRMessage())

	assert.Contains(t, api.deletedMessages(), 42, "the stale QR photo must be deleted")
	texts := api.sentTexts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "disconnected")
}

func TestLinkErrorResetsConversation(t *testing.T) {
	b, api := newTestBot(t)
	const chatID = int64(100)

	conv := b.convs.get(chatID)
	conv.set(StateWaitingQRScan, "sess-1", "")
	require.Equal(t, 0, conv.setQRMessage("sess-1", 7))

	conn := newFakePumpConn("sess-1")
	done := make(chan struct{})
	go func() {
		b.pumpConnEvents(chatID, "sess-1", conn)
		close(done)
	}()

	conn.events <- whatsapp.Event{Type: whatsapp.EventError, Reason: "QR code expired"}
	close(conn.events)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event pump did not drain")
	}

	state, _, _ := conv.snapshot()
	assert.Equal(t, StateIdle, state)
	assert.Contains(t, api.deletedMessages(), 7)
}

func TestSerializedPreventsInterleavingForOneChat(t *testing.T) {
	b, _ := newTestBot(t)

	var active int32
	var overlapped int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.serialized(7, func() {
				if !atomic.CompareAndSwapInt32(&active, 0, 1) {
					atomic.StoreInt32(&overlapped, 1)
					return
				}
				time.Sleep(time.Millisecond)
				atomic.StoreInt32(&active, 0)
			})
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlapped), "two handlers for one chat ran at the same time")
}

func TestSerializedKeepsChatsIndependent(t *testing.T) {
	b, _ := newTestBot(t)

	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		b.serialized(1, func() {
			<-release
		})
		close(done)
	}()

	// A second chat must get through while the first one is blocked.
	unblocked := make(chan struct{})
	go func() {
		b.serialized(2, func() {})
		close(unblocked)
	}()

	select {
	case <-unblocked:
	case <-time.After(2 * time.Second):
		t.Fatal("an unrelated chat was blocked behind another chat's handler")
	}

	close(release)
	<-done
}
