package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationTakeConsumesMatchingState(t *testing.T) {
	conv := &Conversation{State: StateIdle}
	conv.set(StateRenamingGroup, "sess-1", "g@g.us")

	assert.True(t, conv.take(StateRenamingGroup, "sess-1", "g@g.us"))

	state, sessionID, groupID := conv.snapshot()
	assert.Equal(t, StateIdle, state)
	assert.Empty(t, sessionID)
	assert.Empty(t, groupID)
}

func TestConversationTakeRejectsStaleContinuation(t *testing.T) {
	conv := &Conversation{State: StateIdle}
	conv.set(StateRenamingGroup, "sess-1", "g@g.us")

	// A continuation keyed to another group must not consume the input.
	assert.False(t, conv.take(StateRenamingGroup, "sess-1", "other@g.us"))
	assert.False(t, conv.take(StateRenamingGroup, "sess-2", "g@g.us"))
	assert.False(t, conv.take(StateKickingMember, "sess-1", "g@g.us"))

	state, sessionID, _ := conv.snapshot()
	assert.Equal(t, StateRenamingGroup, state)
	assert.Equal(t, "sess-1", sessionID)
}

func TestConversationSetReplacesPendingInteraction(t *testing.T) {
	conv := &Conversation{State: StateIdle}
	conv.set(StateWaitingPhoneNumber, "", "")
	conv.set(StateKickingMember, "sess-1", "g@g.us")

	assert.False(t, conv.take(StateWaitingPhoneNumber, "", ""))
	assert.True(t, conv.take(StateKickingMember, "sess-1", "g@g.us"))
}

func TestConversationResetClearsQRMessage(t *testing.T) {
	conv := &Conversation{State: StateIdle}
	conv.set(StateWaitingQRScan, "sess-1", "")
	assert.Equal(t, 0, conv.setQRMessage("sess-1", 42))

	conv.reset()
	assert.Equal(t, 0, conv.takeQRMessage())
}

func TestSetQRMessageRejectsStaleAttempt(t *testing.T) {
	conv := &Conversation{State: StateIdle}
	conv.set(StateWaitingQRScan, "sess-1", "")

	// A QR photo for a different link attempt must not be recorded.
	assert.Equal(t, -1, conv.setQRMessage("sess-2", 42))

	// Rotating codes replace the tracked message.
	assert.Equal(t, 0, conv.setQRMessage("sess-1", 41))
	assert.Equal(t, 41, conv.setQRMessage("sess-1", 42))
	assert.Equal(t, 42, conv.takeQRMessage())
}

func TestConversationStorePerChat(t *testing.T) {
	store := newConversationStore()

	a := store.get(1)
	b := store.get(2)
	assert.NotSame(t, a, b)
	assert.Same(t, a, store.get(1))

	a.set(StateWaitingQRScan, "sess-1", "")
	state, _, _ := b.snapshot()
	assert.Equal(t, StateIdle, state, "chats must not share state")
}
