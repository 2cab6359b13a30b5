package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cron "github.com/robfig/cron/v3"

	"github.com/gdbrns/whatsapp-manager-bot/internal"
	"github.com/gdbrns/whatsapp-manager-bot/internal/bot"
	"github.com/gdbrns/whatsapp-manager-bot/internal/config"
	"github.com/gdbrns/whatsapp-manager-bot/internal/groups"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	// Intialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	registry := session.NewRegistry(cfg.StorageDir)
	groupsSvc := groups.NewService()

	tgBot, err := bot.New(cfg, registry, groupsSvc)
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	// Running Startup Tasks
	internal.Startup(cfg, registry)

	// Running Routines Tasks
	internal.Routines(c, cfg, registry)

	ctx, cancel := context.WithCancel(context.Background())
	go tgBot.Run(ctx)

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	log.Print(nil).Info("Shutting down")

	// Stop the update loop, then cron
	cancel()
	c.Stop()
}
