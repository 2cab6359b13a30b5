package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/gdbrns/whatsapp-manager-bot/internal/config"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

var (
	ErrInvalidGroupID = errors.New("WhatsApp Group ID is Not Group Server")
	ErrNotRegistered  = errors.New("WhatsApp Client Store ID is Empty, Please Re-Login and Scan QR Code Again")
)

const (
	logoutRequestTimeout = 30 * time.Second
	storeDeleteTimeout   = 5 * time.Second
	eventBufferSize      = 16
)

// StateStore is the slice of the session registry the connection needs to
// keep session records in sync with the socket state.
type StateStore interface {
	SetConnected(sessionID string, connected bool)
	// Drop removes a session whose connection died terminally. The
	// connection is already torn down when Drop is called.
	Drop(sessionID string)
}

// SessionDir returns the credential directory for a session under the
// storage root. The directory is the unit of teardown: deleting it
// forgets the account.
func SessionDir(storageDir string, sessionID string) string {
	return filepath.Join(storageDir, sessionID)
}

// Conn owns one WhatsApp account connection: its sqlite credential store,
// the whatsmeow client, and the lifecycle event channel consumers read.
type Conn struct {
	sessionID string
	cfg       *config.Config
	store     *sqlstore.Container
	client    *whatsmeow.Client
	state     StateStore

	mu           sync.Mutex
	closed       bool
	reconnecting bool
	attempts     int

	events chan Event
}

// NewConn opens the per-session credential store and builds the client
// without touching the network. Callers register the connection with the
// session registry before starting a login or restore.
func NewConn(cfg *config.Config, sessionID string, state StateStore) (*Conn, error) {
	dir := SessionDir(cfg.StorageDir, sessionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&mode=rwc&_journal_mode=WAL&_busy_timeout=10000", filepath.Join(dir, "whatsapp.db"))
	container, err := sqlstore.New(context.Background(), "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open session datastore: %w", err)
	}

	device, err := container.GetFirstDevice(context.Background())
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("load session device: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = cfg.AutoTrustIdentity

	c := &Conn{
		sessionID: sessionID,
		cfg:       cfg,
		store:     container,
		client:    client,
		state:     state,
		events:    make(chan Event, eventBufferSize),
	}
	client.AddEventHandler(c.handleEvent)

	return c, nil
}

// ID returns the session identifier this connection belongs to.
func (c *Conn) ID() string {
	return c.sessionID
}

// Events returns the lifecycle channel. It is closed when the connection
// is closed.
func (c *Conn) Events() <-chan Event {
	return c.events
}

// Registered reports whether the credential store already holds a paired
// device.
func (c *Conn) Registered() bool {
	return c.client.Store.ID != nil
}

func (c *Conn) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Conn) IsLoggedIn() bool {
	return c.client.IsLoggedIn()
}

// StartQRLogin begins a fresh QR pairing flow. Each code WhatsApp issues
// is delivered as an EventQR; success surfaces as EventConnected through
// the regular event handler.
func (c *Conn) StartQRLogin(ctx context.Context) error {
	if c.Registered() {
		return c.Restore()
	}

	qrCtx, cancel := context.WithTimeout(ctx, c.cfg.QRTimeout)

	qrChan, err := c.client.GetQRChannel(qrCtx)
	if err != nil {
		cancel()
		return err
	}

	if err := c.client.Connect(); err != nil {
		cancel()
		return err
	}

	go func() {
		defer cancel()
		c.watchQRChannel(qrCtx, qrChan)
	}()

	return nil
}

func (c *Conn) watchQRChannel(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem) {
	for {
		select {
		case <-ctx.Done():
			c.emit(Event{Type: EventError, Reason: "login timed out before the QR code was scanned"})
			return
		case evt, ok := <-qrChan:
			if !ok {
				return
			}
			switch evt.Event {
			case "code":
				c.emit(Event{Type: EventQR, Code: evt.Code})
			case whatsmeow.QRChannelSuccess.Event:
				// Connected event follows from the socket handler.
				return
			case whatsmeow.QRChannelTimeout.Event:
				c.emit(Event{Type: EventError, Reason: "QR code expired before it was scanned"})
				return
			case "error":
				reason := "QR pairing failed"
				if evt.Error != nil {
					reason = evt.Error.Error()
				}
				c.emit(Event{Type: EventError, Reason: reason})
				return
			default:
				c.emit(Event{Type: EventError, Reason: "QR pairing entered an unexpected state: " + evt.Event})
				return
			}
		}
	}
}

// StartPairLogin begins a pairing-code flow for the given normalized
// phone number. The code is delivered as an EventPairingCode.
func (c *Conn) StartPairLogin(ctx context.Context, phone string) error {
	if c.Registered() {
		return c.Restore()
	}

	if err := c.client.Connect(); err != nil {
		return err
	}

	pairCtx, cancel := context.WithTimeout(ctx, c.cfg.PairTimeout)
	defer cancel()

	code, err := c.client.PairPhone(pairCtx, phone, true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
	if err != nil {
		return err
	}

	c.emit(Event{Type: EventPairingCode, Code: code})
	return nil
}

// Restore reconnects a session whose credential store is already paired.
func (c *Conn) Restore() error {
	if !c.Registered() {
		return ErrNotRegistered
	}
	c.client.Disconnect()
	return c.client.Connect()
}

func (c *Conn) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		log.SessionOp(c.sessionID, "Connected").Info("Client connected: " + maskJIDForLog(c.deviceJID()))
		c.mu.Lock()
		c.attempts = 0
		c.mu.Unlock()
		c.state.SetConnected(c.sessionID, true)
		c.emit(Event{Type: EventConnected})
	case *events.LoggedOut:
		log.SessionOp(c.sessionID, "LoggedOut").Warn("Client logged out remotely, dropping session")
		c.teardown("logged out from the phone")
	case *events.StreamReplaced:
		log.SessionOp(c.sessionID, "StreamReplaced").Warn("Client stream replaced by another connection, dropping session")
		c.teardown("connection replaced by another client")
	case *events.Disconnected:
		log.SessionOp(c.sessionID, "Disconnected").Warn("Client disconnected")
		c.state.SetConnected(c.sessionID, false)
		c.scheduleReconnect()
	case *events.ConnectFailure:
		log.SessionOp(c.sessionID, "ConnectFailure").Error(fmt.Sprintf("Client connection failure: reason=%s, message=%s", e.Reason, e.Message))
	}
}

// scheduleReconnect retries the socket after a fixed interval, up to the
// configured attempt cap. Exhaustion tears the session down.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			c.reconnecting = false
			c.mu.Unlock()
		}()

		for {
			time.Sleep(c.cfg.ReconnectInterval)

			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			c.attempts++
			attempt := c.attempts
			c.mu.Unlock()

			log.SessionOp(c.sessionID, "Reconnect").WithField("attempt", attempt).Info("Attempting to reconnect")
			err := c.client.Connect()
			if err == nil || errors.Is(err, whatsmeow.ErrAlreadyConnected) {
				return
			}

			log.SessionOp(c.sessionID, "Reconnect").WithField("attempt", attempt).WithError(err).Warn("Reconnect attempt failed")
			if attempt >= c.cfg.ReconnectMaxRetries {
				c.teardown("reconnect attempts exhausted")
				return
			}
		}
	}()
}

// teardown handles terminal connection loss: the registry record goes
// away and consumers get a final EventDisconnected.
func (c *Conn) teardown(reason string) {
	c.client.Disconnect()
	c.emit(Event{Type: EventDisconnected, Reason: reason})
	c.Close()
	c.state.Drop(c.sessionID)
}

// Logout unregisters the device from WhatsApp. When the server-side
// logout fails the credential store is deleted locally so the session
// does not resurrect on restart.
func (c *Conn) Logout(ctx context.Context) error {
	if !c.Registered() {
		c.Close()
		return nil
	}

	logoutCtx, cancel := context.WithTimeout(ctx, logoutRequestTimeout)
	defer cancel()

	err := c.client.Logout(logoutCtx)
	if err != nil {
		c.client.Disconnect()
		storeCtx, storeCancel := context.WithTimeout(context.Background(), storeDeleteTimeout)
		defer storeCancel()
		if delErr := c.client.Store.Delete(storeCtx); delErr != nil {
			c.Close()
			return delErr
		}
	}

	c.Close()
	return nil
}

// Close disconnects the socket and releases the credential store. It is
// idempotent.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.events)
	c.mu.Unlock()

	c.client.Disconnect()
	c.store.Close()
}

func (c *Conn) emit(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	// Sessions restored without a watching chat have no consumer; never
	// block the socket goroutine on them.
	select {
	case c.events <- evt:
	default:
		log.SessionOp(c.sessionID, "Emit").WithField("event", evt.Type.String()).Debug("Dropped lifecycle event, no consumer")
	}
}

func (c *Conn) deviceJID() string {
	if c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.User
}

func maskJIDForLog(jid string) string {
	if len(jid) < 4 {
		return jid
	}
	return jid[0:len(jid)-4] + "xxxx"
}

// =============================================================================
// Group RPC surface
// =============================================================================

func (c *Conn) ensureClientOK() error {
	if !c.client.IsConnected() {
		return errors.New("WhatsApp Client is not Connected")
	}
	if !c.client.IsLoggedIn() {
		return errors.New("WhatsApp Client is not Logged In")
	}
	return nil
}

func parseGroupJID(gjid string) (types.JID, error) {
	parsed, err := types.ParseJID(gjid)
	if err != nil {
		return types.EmptyJID, err
	}
	if parsed.Server != types.GroupServer {
		return types.EmptyJID, ErrInvalidGroupID
	}
	return parsed, nil
}

func userJID(phone string) types.JID {
	return types.NewJID(strings.TrimPrefix(phone, "+"), types.DefaultUserServer)
}

func groupFromInfo(info *types.GroupInfo) Group {
	g := Group{
		JID:        info.JID.String(),
		Name:       info.Name,
		IsAnnounce: info.IsAnnounce,
		IsLocked:   info.IsLocked,
	}
	for _, p := range info.Participants {
		g.Participants = append(g.Participants, Participant{
			JID:          p.JID.String(),
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}
	return g
}

// JoinedGroups lists every group the account participates in.
func (c *Conn) JoinedGroups(ctx context.Context) ([]Group, error) {
	if err := c.ensureClientOK(); err != nil {
		return nil, err
	}
	infos, err := c.client.GetJoinedGroups(ctx)
	if err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		groups = append(groups, groupFromInfo(info))
	}
	return groups, nil
}

// GroupInfo fetches a single group with its participant list.
func (c *Conn) GroupInfo(ctx context.Context, gjid string) (*Group, error) {
	if err := c.ensureClientOK(); err != nil {
		return nil, err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return nil, err
	}
	info, err := c.client.GetGroupInfo(ctx, groupJID)
	if err != nil {
		return nil, err
	}
	g := groupFromInfo(info)
	return &g, nil
}

// GroupInviteLink returns the group's invite link, optionally revoking
// the previous one.
func (c *Conn) GroupInviteLink(ctx context.Context, gjid string, reset bool) (string, error) {
	if err := c.ensureClientOK(); err != nil {
		return "", err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return "", err
	}
	return c.client.GetGroupInviteLink(ctx, groupJID, reset)
}

// SetGroupName renames the group. Length bounds are enforced by callers.
func (c *Conn) SetGroupName(ctx context.Context, gjid string, name string) error {
	if err := c.ensureClientOK(); err != nil {
		return err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return err
	}
	return c.client.SetGroupName(ctx, groupJID, name)
}

// SetGroupAnnounce toggles admin-only messaging.
func (c *Conn) SetGroupAnnounce(ctx context.Context, gjid string, announce bool) error {
	if err := c.ensureClientOK(); err != nil {
		return err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return err
	}
	return c.client.SetGroupAnnounce(ctx, groupJID, announce)
}

// SetGroupLocked toggles admin-only group info edits.
func (c *Conn) SetGroupLocked(ctx context.Context, gjid string, locked bool) error {
	if err := c.ensureClientOK(); err != nil {
		return err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return err
	}
	return c.client.SetGroupLocked(ctx, groupJID, locked)
}

func (c *Conn) updateParticipants(ctx context.Context, gjid string, members []string, change whatsmeow.ParticipantChange) error {
	if err := c.ensureClientOK(); err != nil {
		return err
	}
	groupJID, err := parseGroupJID(gjid)
	if err != nil {
		return err
	}
	jids := make([]types.JID, 0, len(members))
	for _, member := range members {
		if strings.ContainsRune(member, '@') {
			parsed, err := types.ParseJID(member)
			if err != nil {
				return err
			}
			jids = append(jids, parsed)
			continue
		}
		jids = append(jids, userJID(member))
	}
	_, err = c.client.UpdateGroupParticipants(ctx, groupJID, jids, change)
	return err
}

// PromoteParticipants grants admin to the given members. Members may be
// phone numbers or full JIDs.
func (c *Conn) PromoteParticipants(ctx context.Context, gjid string, members []string) error {
	return c.updateParticipants(ctx, gjid, members, whatsmeow.ParticipantChangePromote)
}

// RemoveParticipants kicks the given members from the group.
func (c *Conn) RemoveParticipants(ctx context.Context, gjid string, members []string) error {
	return c.updateParticipants(ctx, gjid, members, whatsmeow.ParticipantChangeRemove)
}
