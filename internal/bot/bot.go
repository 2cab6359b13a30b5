package bot

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gdbrns/whatsapp-manager-bot/internal/config"
	"github.com/gdbrns/whatsapp-manager-bot/internal/groups"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

const (
	pollTimeoutSeconds = 30
	pollRestartDelay   = 10 * time.Second
)

// telegramAPI is the slice of the Telegram client the bot calls.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Bot is the Telegram control surface. It owns no session state itself;
// everything lives in the injected registry.
type Bot struct {
	api      telegramAPI
	cfg      *config.Config
	registry *session.Registry
	groups   *groups.Service
	convs    *conversationStore
	admins   map[int64]struct{}
}

func New(cfg *config.Config, registry *session.Registry, groupsSvc *groups.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}

	admins := make(map[int64]struct{}, len(cfg.AdminUserIDs))
	for _, id := range cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}

	log.Print(nil).Info("Telegram bot authorized as @" + api.Self.UserName)

	return &Bot{
		api:      api,
		cfg:      cfg,
		registry: registry,
		groups:   groupsSvc,
		convs:    newConversationStore(),
		admins:   admins,
	}, nil
}

// Run long-polls for updates until the context is canceled. Transport
// failures pause the loop for a fixed delay and resume with the same
// offset; the loop itself is the single poller, so a failure can never
// stack restarts.
func (b *Bot) Run(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = pollTimeoutSeconds

	log.Print(nil).Info("Telegram update loop started")

	for {
		select {
		case <-ctx.Done():
			log.Print(nil).Info("Telegram update loop stopped")
			return
		default:
		}

		updates, err := b.api.GetUpdates(updateCfg)
		if err != nil {
			log.Print(nil).WithError(err).Warn("Polling failed, restarting after delay")
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRestartDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= updateCfg.Offset {
				updateCfg.Offset = update.UpdateID + 1
			}
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Print(nil).WithField("panic", r).Error("Recovered from panic in update handler")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		if !b.isAdmin(update.CallbackQuery.From.ID) {
			_, _ = b.api.Request(tgbotapi.NewCallbackWithAlert(update.CallbackQuery.ID, "You are not allowed to use this bot."))
			return
		}
		if update.CallbackQuery.Message == nil {
			b.handleCallback(update.CallbackQuery)
			return
		}
		b.serialized(update.CallbackQuery.Message.Chat.ID, func() {
			b.handleCallback(update.CallbackQuery)
		})
	case update.Message != nil:
		if update.Message.From == nil || !b.isAdmin(update.Message.From.ID) {
			b.send(update.Message.Chat.ID, "You are not allowed to use this bot.")
			return
		}
		b.serialized(update.Message.Chat.ID, func() {
			b.handleMessage(update.Message)
		})
	}
}

// serialized runs fn while holding the chat's handler lock. Updates for
// one chat apply strictly in order; different chats stay concurrent.
func (b *Bot) serialized(chatID int64, fn func()) {
	conv := b.convs.get(chatID)
	conv.handler.Lock()
	defer conv.handler.Unlock()
	fn()
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.convs.get(chatID).reset()
			b.sendMainMenu(chatID)
		default:
			b.send(chatID, "Unknown command. Use /start to open the menu.")
		}
		return
	}

	conv := b.convs.get(chatID)
	state, sessionID, groupID := conv.snapshot()

	switch state {
	case StateWaitingPhoneNumber:
		b.handlePhoneNumberInput(chatID, conv, sessionID, msg.Text)
	case StateRenamingGroup:
		b.handleRenameInput(chatID, conv, sessionID, groupID, msg.Text)
	case StatePromotingMember:
		b.handlePromoteInput(chatID, conv, sessionID, groupID, msg.Text)
	case StateKickingMember:
		b.handleKickInput(chatID, conv, sessionID, groupID, msg.Text)
	default:
		b.send(chatID, "Use /start to open the menu.")
	}
}

// =============================================================================
// Send helpers
// =============================================================================

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.BotOp(chatID, "Send").WithError(err).Warn("Failed to send message")
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.BotOp(chatID, "Send").WithError(err).Warn("Failed to send message")
	}
}

// edit rewrites a menu message in place; falls back to sending a new
// message when the original is gone.
func (b *Bot) edit(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.BotOp(chatID, "Edit").WithError(err).Warn("Failed to edit message, sending instead")
		b.sendWithKeyboard(chatID, text, keyboard)
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.BotOp(chatID, "Delete").WithError(err).Warn("Failed to delete message")
	}
}

// sendError is the uniform failure surface: the reason plus a way back
// to the main menu, with the conversation reset to idle.
func (b *Bot) sendError(chatID int64, text string) {
	b.convs.get(chatID).reset()
	b.sendWithKeyboard(chatID, "⚠️ "+text, mainMenuOnlyKeyboard())
}

func (b *Bot) sendMainMenu(chatID int64) {
	b.sendWithKeyboard(chatID, mainMenuText, mainMenuKeyboard())
}

func (b *Bot) editMainMenu(chatID int64, messageID int) {
	b.edit(chatID, messageID, mainMenuText, mainMenuKeyboard())
}
