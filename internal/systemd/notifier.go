// Package systemd reports service readiness, status and watchdog pings to
// the service manager over sd_notify. Outside systemd every call is a no-op.
package systemd

import (
	"context"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/smazurov/vcapture/internal/events"
	"github.com/smazurov/vcapture/internal/logging"
)

// NotifyFunc sends one sd_notify state string. daemon.SdNotify matches it
// once the unsetEnvironment argument is bound.
type NotifyFunc func(state string) (bool, error)

// Notifier forwards service lifecycle and capture state to systemd.
type Notifier struct {
	notify NotifyFunc
	logger logging.Logger

	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewNotifier creates a notifier. A nil notify uses daemon.SdNotify.
func NewNotifier(notify NotifyFunc, logger logging.Logger) *Notifier {
	if notify == nil {
		notify = func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		}
	}
	if logger == nil {
		logger = logging.GetLogger("systemd")
	}
	return &Notifier{notify: notify, logger: logger}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	switch {
	case err != nil:
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
	case sent:
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready reports startup completion and mirrors capture state changes from
// eventBus into the unit's status line. If the unit has a watchdog, Ready
// also starts pinging it at half the configured interval.
func (n *Notifier) Ready(eventBus *events.Bus) {
	n.send(daemon.SdNotifyReady)
	n.send("STATUS=capture stopped")

	if eventBus != nil {
		n.unsubscribe = eventBus.Subscribe(func(e events.CaptureStateChangedEvent) {
			n.send("STATUS=capture " + e.StateName)
		})
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	n.wg.Add(1)
	go n.watchdog(ctx, interval/2)
}

func (n *Notifier) watchdog(ctx context.Context, every time.Duration) {
	defer n.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

// Stopping reports shutdown and stops the watchdog and status updates.
func (n *Notifier) Stopping() {
	if n.unsubscribe != nil {
		n.unsubscribe()
		n.unsubscribe = nil
	}
	if n.cancel != nil {
		n.cancel()
		n.wg.Wait()
		n.cancel = nil
	}
	n.send(daemon.SdNotifyStopping)
}
