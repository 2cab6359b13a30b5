package session

import (
	"context"
	"time"

	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
)

// Conn is what the registry needs from a live WhatsApp connection. The
// concrete implementation is *whatsapp.Conn; tests substitute fakes.
type Conn interface {
	ID() string
	Registered() bool
	IsConnected() bool
	Events() <-chan whatsapp.Event
	Logout(ctx context.Context) error
	Close()

	JoinedGroups(ctx context.Context) ([]whatsapp.Group, error)
	GroupInfo(ctx context.Context, groupJID string) (*whatsapp.Group, error)
	GroupInviteLink(ctx context.Context, groupJID string, reset bool) (string, error)
	SetGroupName(ctx context.Context, groupJID string, name string) error
	SetGroupAnnounce(ctx context.Context, groupJID string, announce bool) error
	SetGroupLocked(ctx context.Context, groupJID string, locked bool) error
	PromoteParticipants(ctx context.Context, groupJID string, members []string) error
	RemoveParticipants(ctx context.Context, groupJID string, members []string) error
}

// Session is one managed WhatsApp account.
type Session struct {
	ID           string
	Conn         Conn
	Connected    bool
	CreatedAt    time.Time
	LastActiveAt time.Time
}
