package bot

import (
	"context"
	"fmt"

	"github.com/gdbrns/whatsapp-manager-bot/internal/groups"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/validation"
)

func (b *Bot) sessionConn(sessionID string) (session.Conn, error) {
	sess, err := b.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Conn, nil
}

func (b *Bot) handleViewGroups(chatID int64, messageID int, sessionID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}

	list, err := b.groups.List(context.Background(), sessionID, conn)
	if err != nil {
		b.edit(chatID, messageID, "⚠️ Could not load groups: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	text, keyboard := groupsMenu(sessionID, list)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleGroupMenu(chatID int64, messageID int, sessionID string, groupJID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}

	info, err := b.groups.Info(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.edit(chatID, messageID, "⚠️ Could not load the group: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	text, keyboard := groupMenu(sessionID, *info)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleGroupLink(chatID int64, sessionID string, groupJID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	link, err := b.groups.InviteLink(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.sendError(chatID, "Could not fetch the invite link: "+err.Error())
		return
	}

	b.sendWithKeyboard(chatID, "🔗 Invite link:\n"+link, backToGroupKeyboard(sessionID, groupJID))
}

func (b *Bot) handleGetAllLinks(chatID int64, sessionID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	b.send(chatID, "Fetching invite links for every group, this can take a while...")

	results, err := b.groups.AllInviteLinks(context.Background(), sessionID, conn)
	if err != nil {
		b.sendError(chatID, "Could not fetch the invite links: "+err.Error())
		return
	}
	if len(results) == 0 {
		b.sendWithKeyboard(chatID, "This account is not a member of any group.", mainMenuOnlyKeyboard())
		return
	}

	b.sendWithKeyboard(chatID, linkResultsText(results), accountReadyKeyboard(sessionID))
}

// =============================================================================
// Rename flow
// =============================================================================

func (b *Bot) handleRenameGroup(chatID int64, sessionID string, groupJID string) {
	b.convs.get(chatID).set(StateRenamingGroup, sessionID, groupJID)
	b.send(chatID, "Send the new group name (1-25 characters).")
}

func (b *Bot) handleRenameInput(chatID int64, conv *Conversation, sessionID string, groupJID string, text string) {
	if err := validation.ValidateGroupName(text); err != nil {
		b.send(chatID, "Invalid name: "+err.Error()+"\nTry again or use /start to cancel.")
		return
	}

	if !conv.take(StateRenamingGroup, sessionID, groupJID) {
		return
	}

	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	if err := b.groups.Rename(context.Background(), sessionID, conn, groupJID, text); err != nil {
		b.sendError(chatID, "Could not rename the group: "+err.Error())
		return
	}

	b.sendWithKeyboard(chatID, "✏️ Group renamed to \""+text+"\".", backToGroupKeyboard(sessionID, groupJID))
}

// =============================================================================
// Settings toggles
// =============================================================================

func (b *Bot) handleGroupSettings(chatID int64, messageID int, sessionID string, groupJID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}

	info, err := b.groups.Info(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.edit(chatID, messageID, "⚠️ Could not load the group: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	text, keyboard := groupSettingsMenu(sessionID, *info)
	b.edit(chatID, messageID, text, keyboard)
}

// toggleSetting applies the value encoded in the button payload, so the
// update always matches the state the user was shown, then re-renders
// the menu from fresh group info.
func (b *Bot) toggleSetting(chatID int64, messageID int, sessionID string, groupJID string, announce bool, value string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}

	enabled := value == "on"
	var settings groups.Settings
	if announce {
		settings.Announce = &enabled
	} else {
		settings.Restrict = &enabled
	}

	if err := b.groups.UpdateSettings(context.Background(), sessionID, conn, groupJID, settings); err != nil {
		b.edit(chatID, messageID, "⚠️ Could not update the settings: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	info, err := b.groups.Info(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.edit(chatID, messageID, "⚠️ Could not load the group: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	text, keyboard := groupSettingsMenu(sessionID, *info)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleToggleAnnounce(chatID int64, messageID int, sessionID string, groupJID string, value string) {
	b.toggleSetting(chatID, messageID, sessionID, groupJID, true, value)
}

func (b *Bot) handleToggleRestrict(chatID int64, messageID int, sessionID string, groupJID string, value string) {
	b.toggleSetting(chatID, messageID, sessionID, groupJID, false, value)
}

// =============================================================================
// Member management
// =============================================================================

func (b *Bot) handleManageMembers(chatID int64, messageID int, sessionID string, groupJID string) {
	text, keyboard := membersMenu(sessionID, groupJID)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handlePromoteMember(chatID int64, sessionID string, groupJID string) {
	b.convs.get(chatID).set(StatePromotingMember, sessionID, groupJID)
	b.send(chatID, "Send the phone number of the member to promote to admin.")
}

func (b *Bot) handlePromoteInput(chatID int64, conv *Conversation, sessionID string, groupJID string, text string) {
	phone, err := validation.NormalizePhone(text)
	if err != nil {
		b.send(chatID, "That does not look like a valid phone number: "+err.Error()+"\nTry again or use /start to cancel.")
		return
	}

	if !conv.take(StatePromotingMember, sessionID, groupJID) {
		return
	}

	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	if err := b.groups.Promote(context.Background(), sessionID, conn, groupJID, phone); err != nil {
		b.sendError(chatID, "Could not promote the member: "+err.Error())
		return
	}

	b.sendWithKeyboard(chatID, "⭐ Member promoted to admin.", backToGroupKeyboard(sessionID, groupJID))
}

func (b *Bot) handleKickMember(chatID int64, sessionID string, groupJID string) {
	b.convs.get(chatID).set(StateKickingMember, sessionID, groupJID)
	b.send(chatID, "Send the phone number of the member to kick.")
}

func (b *Bot) handleKickInput(chatID int64, conv *Conversation, sessionID string, groupJID string, text string) {
	phone, err := validation.NormalizePhone(text)
	if err != nil {
		b.send(chatID, "That does not look like a valid phone number: "+err.Error()+"\nTry again or use /start to cancel.")
		return
	}

	if !conv.take(StateKickingMember, sessionID, groupJID) {
		return
	}

	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	if err := b.groups.Remove(context.Background(), sessionID, conn, groupJID, phone); err != nil {
		b.sendError(chatID, "Could not kick the member: "+err.Error())
		return
	}

	b.sendWithKeyboard(chatID, "👢 Member kicked.", backToGroupKeyboard(sessionID, groupJID))
}

func (b *Bot) handleKickAllPrompt(chatID int64, messageID int, sessionID string, groupJID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.edit(chatID, messageID, "That account no longer exists.", mainMenuOnlyKeyboard())
		return
	}

	info, err := b.groups.Info(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.edit(chatID, messageID, "⚠️ Could not load the group: "+err.Error(), mainMenuOnlyKeyboard())
		return
	}

	targets := info.MemberCount() - info.AdminCount()
	text, keyboard := confirmMenu(
		fmt.Sprintf("Kick all %d non-admin members from \"%s\"? This cannot be undone.", targets, info.Name),
		callbackPayload("confirm_kick_all", sessionID, groupJID),
		callbackPayload("back_to_group", sessionID, groupJID),
	)
	b.edit(chatID, messageID, text, keyboard)
}

func (b *Bot) handleConfirmKickAll(chatID int64, sessionID string, groupJID string) {
	conn, err := b.sessionConn(sessionID)
	if err != nil {
		b.sendError(chatID, "That account no longer exists.")
		return
	}

	b.send(chatID, "Kicking members, this can take a while...")

	removed, err := b.groups.RemoveAll(context.Background(), sessionID, conn, groupJID)
	if err != nil {
		b.sendError(chatID, "Kick batch failed: "+err.Error())
		return
	}

	b.sendWithKeyboard(chatID, fmt.Sprintf("🧹 Removed %d members.", removed), backToGroupKeyboard(sessionID, groupJID))
}
