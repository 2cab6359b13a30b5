package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gdbrns/whatsapp-manager-bot/internal/groups"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
)

const mainMenuText = "🤖 *WhatsApp Manager*\n\nManage your connected WhatsApp accounts and their groups from here."

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Link with QR code", "add_account"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔢 Link with pairing code", "add_account_pairing"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Manage accounts", "manage_accounts"),
		),
	)
}

func mainMenuOnlyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", "back_to_main"),
		),
	)
}

func accountsMenu(sessions []session.Session) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(sessions) == 0 {
		return "No WhatsApp accounts are linked yet.", mainMenuOnlyKeyboard()
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, sess := range sessions {
		label := "🟢 " + sess.ID
		if !sess.Connected {
			label = "🔴 " + sess.ID
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackPayload("account", sess.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", "back_to_main"),
	))

	text := fmt.Sprintf("👤 *Accounts* (%d)\n\nPick an account to manage.", len(sessions))
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func accountMenu(sess session.Session) (string, tgbotapi.InlineKeyboardMarkup) {
	status := "connected"
	if !sess.Connected {
		status = "disconnected"
	}
	text := fmt.Sprintf("📱 *Account* `%s`\n\nStatus: %s\nLinked: %s\nLast active: %s",
		sess.ID, status,
		sess.CreatedAt.Format("2006-01-02 15:04"),
		sess.LastActiveAt.Format("2006-01-02 15:04"))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Groups", callbackPayload("view_groups", sess.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 All invite links", callbackPayload("get_all_links", sess.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", callbackPayload("account_settings", sess.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "manage_accounts"),
		),
	)
	return text, keyboard
}

func accountSettingsMenu(sessionID string) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("⚙️ *Account settings* `%s`", sessionID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚪 Log out", callbackPayload("logout_account", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete account", callbackPayload("delete_account", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("account", sessionID)),
		),
	)
	return text, keyboard
}

func confirmMenu(text string, confirmAction string, backAction string) (string, tgbotapi.InlineKeyboardMarkup) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", confirmAction),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", backAction),
		),
	)
	return text, keyboard
}

func groupsMenu(sessionID string, groups []whatsapp.Group) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(groups) == 0 {
		text := "This account is not a member of any group."
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("account", sessionID)),
			),
		)
		return text, keyboard
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range groups {
		label := fmt.Sprintf("%s (%d)", group.Name, group.MemberCount())
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackPayload("group", sessionID, group.JID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("account", sessionID)),
	))

	text := fmt.Sprintf("📋 *Groups* (%d)\n\nPick a group to manage.", len(groups))
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func groupMenu(sessionID string, group whatsapp.Group) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("👥 *%s*\n\nMembers: %d\nAdmins: %d\nAdmin-only messages: %s\nAdmin-only edits: %s",
		group.Name, group.MemberCount(), group.AdminCount(),
		onOff(group.IsAnnounce), onOff(group.IsLocked))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔗 Invite link", callbackPayload("group_link", sessionID, group.JID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Rename", callbackPayload("rename_group", sessionID, group.JID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", callbackPayload("group_settings", sessionID, group.JID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Members", callbackPayload("manage_members", sessionID, group.JID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("back_to_groups", sessionID)),
		),
	)
	return text, keyboard
}

func groupSettingsMenu(sessionID string, group whatsapp.Group) (string, tgbotapi.InlineKeyboardMarkup) {
	text := fmt.Sprintf("⚙️ *Settings for %s*\n\nAdmin-only messages: %s\nAdmin-only edits: %s",
		group.Name, onOff(group.IsAnnounce), onOff(group.IsLocked))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Toggle admin-only messages", callbackPayload("toggle_announce", sessionID, group.JID, onOff(!group.IsAnnounce))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔒 Toggle admin-only edits", callbackPayload("toggle_restrict", sessionID, group.JID, onOff(!group.IsLocked))),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("back_to_group", sessionID, group.JID)),
		),
	)
	return text, keyboard
}

func membersMenu(sessionID string, groupJID string) (string, tgbotapi.InlineKeyboardMarkup) {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Promote to admin", callbackPayload("promote_member", sessionID, groupJID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👢 Kick a member", callbackPayload("kick_member", sessionID, groupJID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧹 Kick all members", callbackPayload("kick_all_members", sessionID, groupJID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", callbackPayload("back_to_group", sessionID, groupJID)),
		),
	)
	return "👥 *Member management*\n\nPick an action.", keyboard
}

func backToGroupKeyboard(sessionID string, groupJID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back to group", callbackPayload("back_to_group", sessionID, groupJID)),
		),
	)
}

func accountReadyKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Open account", callbackPayload("account", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", "back_to_main"),
		),
	)
}

func cancelLinkKeyboard(sessionID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", callbackPayload("cancel_add_account", sessionID)),
		),
	)
}

func linkResultsText(results []groups.LinkResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔗 Invite links (%d groups):\n\n", len(results)))
	for _, result := range results {
		if result.Err != nil {
			fmt.Fprintf(&sb, "• %s: failed (%s)\n", result.Name, result.Err.Error())
			continue
		}
		fmt.Fprintf(&sb, "• %s:\n%s\n", result.Name, result.Link)
	}
	return sb.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
