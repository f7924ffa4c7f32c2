// Package systemd reports service readiness and liveness to systemd through
// the sd_notify protocol. Every call is a no-op outside a Type=notify unit.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier sends state changes to the service manager.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier returns a notifier that logs send failures to logger.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Ready tells systemd start-up has finished.
func (n *Notifier) Ready() bool { return n.send(daemon.SdNotifyReady) }

// Stopping tells systemd shutdown has begun.
func (n *Notifier) Stopping() bool { return n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(msg string) bool { return n.send("STATUS=" + msg) }

func (n *Notifier) send(state string) bool {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	}
	return sent
}

// Watchdog pings the systemd watchdog at half the configured WatchdogSec
// while healthy reports true, until ctx is cancelled. It returns immediately
// when the unit has no watchdog.
func (n *Notifier) Watchdog(ctx context.Context, healthy func() bool) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Invalid watchdog configuration", "error", err)
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	n.logger.Info("Watchdog enabled", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if healthy() {
				n.send(daemon.SdNotifyWatchdog)
			} else {
				n.logger.Warn("Skipping watchdog ping, strip is not advancing")
			}
		}
	}
}

// Progress returns a health check that passes when frame has moved since the
// previous call.
func Progress(frame func() int) func() bool {
	last := -1
	return func() bool {
		cur := frame()
		moved := cur != last
		last = cur
		return moved
	}
}
