package bot

import "sync"

// State is the per-chat conversation state. Waiting states expect the
// next text message or lifecycle event; everything else is menu-driven.
type State string

const (
	StateIdle               State = "idle"
	StateWaitingQRScan      State = "waiting_qr_scan"
	StateWaitingPhoneNumber State = "waiting_phone_number"
	StateWaitingPairingCode State = "waiting_pairing_code"
	StateRenamingGroup      State = "renaming_group"
	StatePromotingMember    State = "promoting_member"
	StateKickingMember      State = "kicking_member"
)

// Conversation is one chat's pending interaction. SessionID and GroupID
// are the correlation keys a continuation must still match before it
// consumes input; QRMessageID tracks the transient QR photo so it can be
// deleted once pairing resolves.
type Conversation struct {
	// handler serializes whole update handlers for this chat. The field
	// mutex below only guards individual transitions; without handler,
	// two quick updates from one chat could interleave mid-flow.
	handler sync.Mutex

	mu          sync.Mutex
	State       State
	SessionID   string
	GroupID     string
	QRMessageID int
}

// set replaces the conversation's pending interaction.
func (c *Conversation) set(state State, sessionID string, groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.State = state
	c.SessionID = sessionID
	c.GroupID = groupID
	if state == StateIdle {
		c.QRMessageID = 0
	}
}

func (c *Conversation) reset() {
	c.set(StateIdle, "", "")
}

// snapshot returns the current state and keys without consuming them.
func (c *Conversation) snapshot() (State, string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State, c.SessionID, c.GroupID
}

// take consumes the pending interaction if the state and correlation
// keys still match. A stale continuation leaves the record untouched and
// returns false.
func (c *Conversation) take(state State, sessionID string, groupID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != state || c.SessionID != sessionID || c.GroupID != groupID {
		return false
	}
	c.State = StateIdle
	c.SessionID = ""
	c.GroupID = ""
	return true
}

// setQRMessage records the QR photo message for the given link attempt.
// Returns the previous message id so the caller can delete it, or -1
// when the attempt is no longer active.
func (c *Conversation) setQRMessage(sessionID string, messageID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != StateWaitingQRScan || c.SessionID != sessionID {
		return -1
	}
	prev := c.QRMessageID
	c.QRMessageID = messageID
	return prev
}

// takeQRMessage clears and returns the pending QR message id.
func (c *Conversation) takeQRMessage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.QRMessageID
	c.QRMessageID = 0
	return prev
}

// conversationStore holds one conversation record per chat.
type conversationStore struct {
	mu    sync.Mutex
	chats map[int64]*Conversation
}

func newConversationStore() *conversationStore {
	return &conversationStore{chats: make(map[int64]*Conversation)}
}

func (s *conversationStore) get(chatID int64) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.chats[chatID]
	if !ok {
		conv = &Conversation{State: StateIdle}
		s.chats[chatID] = conv
	}
	return conv
}
