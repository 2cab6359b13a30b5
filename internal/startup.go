package internal

import (
	"os"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/gdbrns/whatsapp-manager-bot/internal/config"
	"github.com/gdbrns/whatsapp-manager-bot/internal/session"
	"github.com/gdbrns/whatsapp-manager-bot/internal/whatsapp"
	"github.com/gdbrns/whatsapp-manager-bot/pkg/log"
)

// Startup restores persisted sessions from the storage root. Each
// directory under it is one session's credential store; directories
// without a paired device are leftovers from aborted links and are
// skipped. Reconnects run with bounded concurrency.
func Startup(cfg *config.Config, registry *session.Registry) {
	log.Print(nil).Info("Running Startup Tasks")

	entries, err := os.ReadDir(cfg.StorageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Print(nil).WithError(err).Error("Failed to read session storage directory")
		return
	}

	var restored, failed, skipped int64
	var g errgroup.Group
	g.SetLimit(cfg.RestoreConcurrency)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sessionID := entry.Name()

		g.Go(func() error {
			conn, err := whatsapp.NewConn(cfg, sessionID, registry)
			if err != nil {
				log.SessionOp(sessionID, "Restore").WithError(err).Warn("Failed to open session store, skipping")
				atomic.AddInt64(&failed, 1)
				return nil
			}
			if !conn.Registered() {
				log.SessionOp(sessionID, "Restore").Info("Session store has no paired device, skipping")
				conn.Close()
				atomic.AddInt64(&skipped, 1)
				return nil
			}

			registry.Create(sessionID, conn)
			if err := conn.Restore(); err != nil {
				log.SessionOp(sessionID, "Restore").WithError(err).Warn("Failed to reconnect session")
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&restored, 1)
			return nil
		})
	}

	_ = g.Wait()
	log.Print(nil).
		WithField("restored", restored).
		WithField("skipped", skipped).
		WithField("failed", failed).
		WithField("concurrency", cfg.RestoreConcurrency).
		Info("Startup restore pass complete")
}
