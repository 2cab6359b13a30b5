package internal

import (
	"github.com/robfig/cron/v3"

	"github.com/gdbrns/whatsapp-manager-bot/internal/config"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

// Routines wires the periodic jobs: an hourly sweep evicts sessions that
// have been idle past the configured age so forgotten accounts do not
// hold sockets and credentials forever.
func Routines(c *cron.Cron, cfg *config.Config, registry *session.Registry) {
	log.Print(nil).Info("Running Routine Tasks")

	_, err := c.AddFunc(cfg.SweepCronSpec, func() {
		if registry.Len() == 0 {
			return
		}
		evicted := registry.Sweep(cfg.IdleMaxAge)
		if evicted > 0 {
			log.Print(nil).WithField("evicted", evicted).Info("Idle session sweep complete")
		}
	})
	if err != nil {
		log.Print(nil).WithField("spec", cfg.SweepCronSpec).WithError(err).Error("Failed to add session sweep cron job")
	}

	c.Start()
}
