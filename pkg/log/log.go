package log

import (
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

func Print(fields logrus.Fields) *logrus.Entry {
	if fields == nil {
		return logger.WithFields(logrus.Fields{})
	}
	return logger.WithFields(fields)
}

// SessionOp scopes a log entry to a single WhatsApp session operation.
func SessionOp(sessionID string, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"op":         op,
	})
}

// GroupOp scopes a log entry to a group operation within a session.
func GroupOp(sessionID string, groupJID string, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"group_jid":  groupJID,
		"op":         op,
	})
}

// BotOp scopes a log entry to a Telegram-side operation.
func BotOp(chatID int64, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"op":      op,
	})
}
