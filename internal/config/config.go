package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/gdbrns/whatsapp-manager-bot/pkg/env"
)

// Config carries everything the bot core needs at construction time.
// It is loaded once in main and injected into components, none of which
// read the environment on their own.
type Config struct {
	TelegramBotToken string
	AdminUserIDs     []int64

	StorageDir string

	ReconnectInterval   time.Duration
	ReconnectMaxRetries int
	QRTimeout           time.Duration
	PairTimeout         time.Duration
	AutoTrustIdentity   bool

	IdleMaxAge         time.Duration
	SweepCronSpec      string
	RestoreConcurrency int
}

func Load() (*Config, error) {
	token, err := env.GetEnvString("TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required: %w", err)
	}

	adminIDs, err := env.GetEnvInt64List("TELEGRAM_ADMIN_IDS")
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_IDS is required: %w", err)
	}

	cfg := &Config{
		TelegramBotToken:    token,
		AdminUserIDs:        adminIDs,
		StorageDir:          env.GetEnvStringOrDefault("WHATSAPP_STORAGE_DIR", "./sessions"),
		ReconnectInterval:   env.GetEnvDurationOrDefault("WHATSAPP_RECONNECT_INTERVAL", 5*time.Second),
		ReconnectMaxRetries: env.GetEnvIntOrDefault("WHATSAPP_RECONNECT_MAX_RETRIES", 10),
		QRTimeout:           env.GetEnvDurationOrDefault("WHATSAPP_QR_TIMEOUT", 2*time.Minute),
		PairTimeout:         env.GetEnvDurationOrDefault("WHATSAPP_PAIR_TIMEOUT", 90*time.Second),
		AutoTrustIdentity:   env.GetEnvBoolOrDefault("WHATSAPP_AUTO_TRUST_IDENTITY", true),
		IdleMaxAge:          env.GetEnvDurationOrDefault("SESSION_IDLE_MAX_AGE", 24*time.Hour),
		SweepCronSpec:       env.GetEnvStringOrDefault("SESSION_SWEEP_CRON", "0 0 * * * *"),
		RestoreConcurrency:  env.GetEnvIntOrDefault("WHATSAPP_STARTUP_RECONNECT_CONCURRENCY", 4),
	}

	if cfg.ReconnectMaxRetries < 1 {
		return nil, errors.New("WHATSAPP_RECONNECT_MAX_RETRIES must be at least 1")
	}
	if cfg.RestoreConcurrency < 1 {
		return nil, errors.New("WHATSAPP_STARTUP_RECONNECT_CONCURRENCY must be at least 1")
	}

	return cfg, nil
}
