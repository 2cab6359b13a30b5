package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

// callbackData is a parsed inline-button payload. The wire format is
// action:sessionId[:groupId[:extra]]; missing segments stay empty.
type callbackData struct {
	Action    string
	SessionID string
	GroupID   string
	Extra     string
}

func parseCallback(data string) callbackData {
	parts := strings.SplitN(data, ":", 4)
	cb := callbackData{Action: parts[0]}
	if len(parts) > 1 {
		cb.SessionID = parts[1]
	}
	if len(parts) > 2 {
		cb.GroupID = parts[2]
	}
	if len(parts) > 3 {
		cb.Extra = parts[3]
	}
	return cb
}

func callbackPayload(parts ...string) string {
	return strings.Join(parts, ":")
}

// handleCallback acknowledges the query first so the client spinner
// clears even when the handler fails, then dispatches on the action.
func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Print(nil).WithError(err).Warn("Failed to answer callback query")
	}

	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	cb := parseCallback(query.Data)

	log.BotOp(chatID, "Callback").WithField("action", cb.Action).Info("Dispatching callback")

	switch cb.Action {
	case "back_to_main":
		b.convs.get(chatID).reset()
		b.editMainMenu(chatID, messageID)
	case "add_account":
		b.handleAddAccount(chatID)
	case "add_account_pairing":
		b.handleAddAccountPairing(chatID)
	case "cancel_add_account":
		b.handleCancelAddAccount(chatID, cb.SessionID)
	case "manage_accounts":
		b.handleManageAccounts(chatID, messageID)
	case "account", "back_to_account":
		b.handleAccountMenu(chatID, messageID, cb.SessionID)
	case "account_settings":
		b.handleAccountSettings(chatID, messageID, cb.SessionID)
	case "logout_account":
		b.handleLogoutPrompt(chatID, messageID, cb.SessionID)
	case "confirm_logout":
		b.handleConfirmLogout(chatID, messageID, cb.SessionID)
	case "delete_account":
		b.handleDeletePrompt(chatID, messageID, cb.SessionID)
	case "confirm_delete":
		b.handleConfirmDelete(chatID, messageID, cb.SessionID)
	case "view_groups", "back_to_groups":
		b.handleViewGroups(chatID, messageID, cb.SessionID)
	case "get_all_links":
		b.handleGetAllLinks(chatID, cb.SessionID)
	case "group", "back_to_group":
		b.handleGroupMenu(chatID, messageID, cb.SessionID, cb.GroupID)
	case "group_link":
		b.handleGroupLink(chatID, cb.SessionID, cb.GroupID)
	case "rename_group":
		b.handleRenameGroup(chatID, cb.SessionID, cb.GroupID)
	case "group_settings":
		b.handleGroupSettings(chatID, messageID, cb.SessionID, cb.GroupID)
	case "toggle_announce":
		b.handleToggleAnnounce(chatID, messageID, cb.SessionID, cb.GroupID, cb.Extra)
	case "toggle_restrict":
		b.handleToggleRestrict(chatID, messageID, cb.SessionID, cb.GroupID, cb.Extra)
	case "manage_members":
		b.handleManageMembers(chatID, messageID, cb.SessionID, cb.GroupID)
	case "promote_member":
		b.handlePromoteMember(chatID, cb.SessionID, cb.GroupID)
	case "kick_member":
		b.handleKickMember(chatID, cb.SessionID, cb.GroupID)
	case "kick_all_members":
		b.handleKickAllPrompt(chatID, messageID, cb.SessionID, cb.GroupID)
	case "confirm_kick_all":
		b.handleConfirmKickAll(chatID, cb.SessionID, cb.GroupID)
	default:
		log.BotOp(chatID, "Callback").WithField("action", cb.Action).Warn("Unknown callback action")
		b.sendWithKeyboard(chatID, "That action is not recognized.", mainMenuOnlyKeyboard())
	}
}
