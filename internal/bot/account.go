package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	qrCode "github.com/skip2/go-qrcode"

	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/validation"
)

// handleAddAccount starts the QR linking flow: a new session is
// registered immediately so duplicate links release cleanly, then the
// event pump relays QR codes into the chat.
func (b *Bot) handleAddAccount(chatID int64) {
	sessionID := uuid.NewString()

	conn, err := whatsapp.NewConn(b.cfg, sessionID, b.registry)
	if err != nil {
		log.SessionOp(sessionID, "AddAccount").WithError(err).Error("Failed to build connection")
		b.sendError(chatID, "Could not prepare the WhatsApp session: "+err.Error())
		return
	}
	b.registry.Create(sessionID, conn)
	b.convs.get(chatID).set(StateWaitingQRScan, sessionID, "")

	b.send(chatID, "Generating a QR code, hold on...")

	if err := conn.StartQRLogin(context.Background()); err != nil {
		log.SessionOp(sessionID, "AddAccount").WithError(err).Error("Failed to start QR login")
		_ = b.registry.Remove(sessionID)
		b.sendError(chatID, "Could not start the QR login: "+err.Error())
		return
	}

	go b.pumpConnEvents(chatID, sessionID, conn)
}

// handleAddAccountPairing asks for the phone number; the session is
// created once a valid number arrives.
func (b *Bot) handleAddAccountPairing(chatID int64) {
	b.convs.get(chatID).set(StateWaitingPhoneNumber, "", "")
	b.send(chatID, "Send the phone number of the WhatsApp account (for example 628123456789 or 08123456789).")
}

func (b *Bot) handlePhoneNumberInput(chatID int64, conv *Conversation, sessionID string, text string) {
	phone, err := validation.NormalizePhone(text)
	if err != nil {
		// Keep waiting; a typo should not restart the flow.
		b.send(chatID, "That does not look like a valid phone number: "+err.Error()+"\nTry again or use /start to cancel.")
		return
	}

	if !conv.take(StateWaitingPhoneNumber, sessionID, "") {
		return
	}

	newSessionID := uuid.NewString()
	conn, err := whatsapp.NewConn(b.cfg, newSessionID, b.registry)
	if err != nil {
		log.SessionOp(newSessionID, "AddAccountPairing").WithError(err).Error("Failed to build connection")
		b.sendError(chatID, "Could not prepare the WhatsApp session: "+err.Error())
		return
	}
	b.registry.Create(newSessionID, conn)
	conv.set(StateWaitingPairingCode, newSessionID, "")

	b.send(chatID, "Requesting a pairing code...")

	go func() {
		if err := conn.StartPairLogin(context.Background(), phone); err != nil {
			log.SessionOp(newSessionID, "AddAccountPairing").WithError(err).Error("Failed to start pairing login")
			_ = b.registry.Remove(newSessionID)
			b.sendError(chatID, "Could not request a pairing code: "+err.Error())
			return
		}
	}()
	go b.pumpConnEvents(chatID, newSessionID, conn)
}

// handleCancelAddAccount aborts a pending link attempt: the transient QR
// message goes away, the half-built session is removed, and the chat
// returns to idle.
func (b *Bot) handleCancelAddAccount(chatID int64, sessionID string) {
	conv := b.convs.get(chatID)
	b.deleteMessage(chatID, conv.takeQRMessage())
	conv.reset()

	if sessionID != "" {
		_ = b.registry.Remove(sessionID)
	}

	b.sendWithKeyboard(chatID, "Linking canceled.", mainMenuOnlyKeyboard())
}

// pumpConnEvents relays one connection's lifecycle events into the chat
// that initiated the link. It exits when the connection closes.
func (b *Bot) pumpConnEvents(chatID int64, sessionID string, conn session.Conn) {
	for evt := range conn.Events() {
		switch evt.Type {
		case whatsapp.EventQR:
			b.showQR(chatID, sessionID, evt.Code)
		case whatsapp.EventPairingCode:
			b.send(chatID, "Enter this pairing code on the phone:\n\n"+evt.Code+"\n\nWhatsApp > Linked devices > Link with phone number.")
		case whatsapp.EventConnected:
			b.finishLink(chatID, sessionID)
		case whatsapp.EventDisconnected:
			// A terminal disconnect can land mid-link; clear the pending
			// QR photo and drop the chat back to idle like any failure.
			b.deleteMessage(chatID, b.convs.get(chatID).takeQRMessage())
			b.sendError(chatID, "Session "+sessionID+" disconnected: "+evt.Reason)
		case whatsapp.EventError:
			log.SessionOp(sessionID, "Link").WithField("reason", evt.Reason).Warn("Link attempt failed")
			conv := b.convs.get(chatID)
			b.deleteMessage(chatID, conv.takeQRMessage())
			_ = b.registry.Remove(sessionID)
			b.sendError(chatID, evt.Reason)
		}
	}
}

// showQR renders the code into a PNG and replaces any previous QR photo.
// WhatsApp rotates codes while the user hesitates; only the newest one
// scans.
func (b *Bot) showQR(chatID int64, sessionID string, code string) {
	png, err := qrCode.Encode(code, qrCode.Medium, 256)
	if err != nil {
		log.SessionOp(sessionID, "ShowQR").WithError(err).Error("Failed to render QR code")
		b.sendError(chatID, "Could not render the QR code.")
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "qr.png", Bytes: png})
	photo.Caption = "Scan this QR code with WhatsApp:\nWhatsApp > Linked devices > Link a device."
	photo.ReplyMarkup = cancelLinkKeyboard(sessionID)

	sent, err := b.api.Send(photo)
	if err != nil {
		log.SessionOp(sessionID, "ShowQR").WithError(err).Error("Failed to send QR photo")
		return
	}

	prev := b.convs.get(chatID).setQRMessage(sessionID, sent.MessageID)
	if prev == -1 {
		// The attempt was canceled while the photo was in flight.
		b.deleteMessage(chatID, sent.MessageID)
		return
	}
	b.deleteMessage(chatID, prev)
}

// finishLink closes out a successful pairing: the QR photo goes away and
// the chat gets the account entry menu.
func (b *Bot) finishLink(chatID int64, sessionID string) {
	conv := b.convs.get(chatID)
	state, convSession, _ := conv.snapshot()
	linking := convSession == sessionID &&
		(state == StateWaitingQRScan || state == StateWaitingPairingCode)
	if !linking {
		return
	}

	b.deleteMessage(chatID, conv.takeQRMessage())
	conv.reset()
	b.sendWithKeyboard(chatID, "✅ WhatsApp account connected.", accountReadyKeyboard(sessionID))
}

// =============================================================================
// Account menus
// =============================================================================

func (b *Bot) handleManageAccounts(chatID int64, messageID int) {
	text, keyboard := accountsMenu(b.registry.All())
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleAccountMenu(chatID int64, messageID int, sessionID string) {
	sess, err := b.registry.Get(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}
	text, keyboard := accountMenu(sess)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleAccountSettings(chatID int64, messageID int, sessionID string) {
	if _, err := b.registry.Get(sessionID); err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}
	text, keyboard := accountSettingsMenu(sessionID)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleLogoutPrompt(chatID int64, messageID int, sessionID string) {
	text, keyboard := confirmMenu(
		"Log this WhatsApp account out? It will need to be linked again to use it.",
		callbackPayload("confirm_logout", sessionID),
		callbackPayload("account_settings", sessionID),
	)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleConfirmLogout(chatID int64, messageID int, sessionID string) {
	if err := b.registry.Remove(sessionID); err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}
	b.edit(chatID, messageID, "🚪 Account logged out.", mainMenuOnlyKeyboard())
}

func (b *Bot) handleDeletePrompt(chatID int64, messageID int, sessionID string) {
	text, keyboard := confirmMenu(
		"Delete this account and its saved credentials? This cannot be undone.",
		callbackPayload("confirm_delete", sessionID),
		callbackPayload("account_settings", sessionID),
	)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleConfirmDelete(chatID int64, messageID int, sessionID string) {
	if err := b.registry.Remove(sessionID); err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}
	b.edit(chatID, messageID, "🗑 Account deleted.", mainMenuOnlyKeyboard())
}
