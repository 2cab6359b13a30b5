package groups

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/validation"
)

var ErrSessionNotConnected = errors.New("WhatsApp session is not connected")

const (
	groupRequestTimeout = 30 * time.Second
	batchRequestTimeout = 120 * time.Second
	inviteLinkMinGap    = 300 * time.Millisecond
	kickChunkSize       = 5
	kickChunkPause      = 2 * time.Second
)

// Conn is the group RPC surface the service needs from a session
// connection. *whatsapp.Conn implements it; tests use fakes.
type Conn interface {
	IsConnected() bool
	JoinedGroups(ctx context.Context) ([]whatsapp.Group, error)
	GroupInfo(ctx context.Context, groupJID string) (*whatsapp.Group, error)
	GroupInviteLink(ctx context.Context, groupJID string, reset bool) (string, error)
	SetGroupName(ctx context.Context, groupJID string, name string) error
	SetGroupAnnounce(ctx context.Context, groupJID string, announce bool) error
	SetGroupLocked(ctx context.Context, groupJID string, locked bool) error
	PromoteParticipants(ctx context.Context, groupJID string, members []string) error
	RemoveParticipants(ctx context.Context, groupJID string, members []string) error
}

// LinkResult is one group's entry in an all-invite-links batch. Err is
// set when that group's fetch failed; the batch itself never aborts.
type LinkResult struct {
	GroupJID string
	Name     string
	Link     string
	Err      error
}

// Settings carries the toggles to apply; nil fields are left untouched.
type Settings struct {
	Announce *bool
	Restrict *bool
}

// Service implements group administration on top of a session
// connection. WhatsApp rate limits are respected with a shared pacer for
// link batches and a fixed pause between kick chunks.
type Service struct {
	linkLimiter *rate.Limiter
	chunkPause  time.Duration
}

func NewService() *Service {
	return &Service{
		linkLimiter: rate.NewLimiter(rate.Every(inviteLinkMinGap), 1),
		chunkPause:  kickChunkPause,
	}
}

func ensureConnected(conn Conn) error {
	if conn == nil || !conn.IsConnected() {
		return ErrSessionNotConnected
	}
	return nil
}

// List returns every group the session participates in.
func (s *Service) List(ctx context.Context, sessionID string, conn Conn) ([]whatsapp.Group, error) {
	if err := ensureConnected(conn); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	groups, err := conn.JoinedGroups(ctx)
	if err != nil {
		log.GroupOp(sessionID, "", "ListGroups").WithError(err).Error("Failed to list groups")
		return nil, err
	}

	log.GroupOp(sessionID, "", "ListGroups").WithField("group_count", len(groups)).Info("Groups listed")
	return groups, nil
}

// Info fetches a single group with its participant list.
func (s *Service) Info(ctx context.Context, sessionID string, conn Conn, groupJID string) (*whatsapp.Group, error) {
	if err := ensureConnected(conn); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	info, err := conn.GroupInfo(ctx, groupJID)
	if err != nil {
		log.GroupOp(sessionID, groupJID, "GetGroupInfo").WithError(err).Error("Failed to get group info")
		return nil, err
	}
	return info, nil
}

// InviteLink returns the invite link for one group.
func (s *Service) InviteLink(ctx context.Context, sessionID string, conn Conn, groupJID string) (string, error) {
	if err := ensureConnected(conn); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	link, err := conn.GroupInviteLink(ctx, groupJID, false)
	if err != nil {
		log.GroupOp(sessionID, groupJID, "GetInviteLink").WithError(err).Error("Failed to get invite link")
		return "", err
	}
	return link, nil
}

// AllInviteLinks fetches invite links for every group sequentially,
// paced to stay under WhatsApp rate limits. A failing group yields an
// error entry and the batch continues.
func (s *Service) AllInviteLinks(ctx context.Context, sessionID string, conn Conn) ([]LinkResult, error) {
	if err := ensureConnected(conn); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, batchRequestTimeout)
	defer cancel()

	groups, err := conn.JoinedGroups(ctx)
	if err != nil {
		log.GroupOp(sessionID, "", "GetAllInviteLinks").WithError(err).Error("Failed to list groups for link batch")
		return nil, err
	}

	results := make([]LinkResult, 0, len(groups))
	for _, group := range groups {
		if err := s.linkLimiter.Wait(ctx); err != nil {
			return results, err
		}
		link, err := conn.GroupInviteLink(ctx, group.JID, false)
		if err != nil {
			log.GroupOp(sessionID, group.JID, "GetAllInviteLinks").WithError(err).Warn("Failed to get invite link, continuing batch")
			results = append(results, LinkResult{GroupJID: group.JID, Name: group.Name, Err: err})
			continue
		}
		results = append(results, LinkResult{GroupJID: group.JID, Name: group.Name, Link: link})
	}

	log.GroupOp(sessionID, "", "GetAllInviteLinks").WithField("group_count", len(results)).Info("Invite link batch complete")
	return results, nil
}

// Rename sets the group subject after validating length bounds.
func (s *Service) Rename(ctx context.Context, sessionID string, conn Conn, groupJID string, name string) error {
	if err := validation.ValidateGroupName(name); err != nil {
		return err
	}
	if err := ensureConnected(conn); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	if err := conn.SetGroupName(ctx, groupJID, name); err != nil {
		log.GroupOp(sessionID, groupJID, "RenameGroup").WithError(err).Error("Failed to rename group")
		return err
	}

	log.GroupOp(sessionID, groupJID, "RenameGroup").WithField("new_name", name).Info("Group renamed")
	return nil
}

// UpdateSettings applies the present toggles, one RPC each.
func (s *Service) UpdateSettings(ctx context.Context, sessionID string, conn Conn, groupJID string, settings Settings) error {
	if err := ensureConnected(conn); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	if settings.Announce != nil {
		if err := conn.SetGroupAnnounce(ctx, groupJID, *settings.Announce); err != nil {
			log.GroupOp(sessionID, groupJID, "UpdateGroupSettings").WithError(err).Error("Failed to set announce mode")
			return err
		}
	}
	if settings.Restrict != nil {
		if err := conn.SetGroupLocked(ctx, groupJID, *settings.Restrict); err != nil {
			log.GroupOp(sessionID, groupJID, "UpdateGroupSettings").WithError(err).Error("Failed to set restrict mode")
			return err
		}
	}

	log.GroupOp(sessionID, groupJID, "UpdateGroupSettings").Info("Group settings updated")
	return nil
}

// Promote grants admin to a single member.
func (s *Service) Promote(ctx context.Context, sessionID string, conn Conn, groupJID string, member string) error {
	if err := ensureConnected(conn); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	if err := conn.PromoteParticipants(ctx, groupJID, []string{member}); err != nil {
		log.GroupOp(sessionID, groupJID, "PromoteMember").WithError(err).Error("Failed to promote member")
		return err
	}

	log.GroupOp(sessionID, groupJID, "PromoteMember").Info("Member promoted")
	return nil
}

// Remove kicks a single member.
func (s *Service) Remove(ctx context.Context, sessionID string, conn Conn, groupJID string, member string) error {
	if err := ensureConnected(conn); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, groupRequestTimeout)
	defer cancel()

	if err := conn.RemoveParticipants(ctx, groupJID, []string{member}); err != nil {
		log.GroupOp(sessionID, groupJID, "KickMember").WithError(err).Error("Failed to kick member")
		return err
	}

	log.GroupOp(sessionID, groupJID, "KickMember").Info("Member kicked")
	return nil
}

// RemoveAll kicks every non-admin participant in chunks, pausing between
// chunks to stay under rate limits. A failing chunk is logged and the
// batch continues; the returned count is members actually removed.
func (s *Service) RemoveAll(ctx context.Context, sessionID string, conn Conn, groupJID string) (int, error) {
	if err := ensureConnected(conn); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, batchRequestTimeout)
	defer cancel()

	info, err := conn.GroupInfo(ctx, groupJID)
	if err != nil {
		log.GroupOp(sessionID, groupJID, "KickAllMembers").WithError(err).Error("Failed to get group info for kick batch")
		return 0, err
	}

	var targets []string
	for _, p := range info.Participants {
		if p.IsAdmin || p.IsSuperAdmin {
			continue
		}
		targets = append(targets, p.JID)
	}
	if len(targets) == 0 {
		return 0, nil
	}

	removed := 0
	for start := 0; start < len(targets); start += kickChunkSize {
		if start > 0 && s.chunkPause > 0 {
			select {
			case <-ctx.Done():
				return removed, ctx.Err()
			case <-time.After(s.chunkPause):
			}
		}

		end := start + kickChunkSize
		if end > len(targets) {
			end = len(targets)
		}
		chunk := targets[start:end]

		if err := conn.RemoveParticipants(ctx, groupJID, chunk); err != nil {
			log.GroupOp(sessionID, groupJID, "KickAllMembers").WithField("chunk_size", len(chunk)).WithError(err).Warn("Kick chunk failed, continuing batch")
			continue
		}
		removed += len(chunk)
	}

	log.GroupOp(sessionID, groupJID, "KickAllMembers").WithField("removed", removed).WithField("targets", len(targets)).Info("Kick batch complete")
	return removed, nil
}
