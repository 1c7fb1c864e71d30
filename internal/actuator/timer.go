package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// SideTimer runs one side's actuation window.
//
// Commands extend a single deadline rather than queueing: Extend adds the
// requested duration on top of the current deadline (or on top of now, if
// the window already lapsed). The worker goroutine holds the output ON for
// exactly as long as now < deadline, recomputing against the latest
// deadline every time it is woken, so a late extension stretches the
// current window without ever flickering the output.
type SideTimer struct {
	name   string
	driver Driver
	logger *logging.Logger

	mu     sync.Mutex
	expiry time.Time

	// wake has capacity 1: one pending wakeup is enough, the worker
	// re-reads expiry under the lock anyway.
	wake chan struct{}

	// onChange fires on logical ON/OFF edges (not on every extension).
	onChange func(on bool)

	// out is the last state written; only the worker touches it.
	out bool
}

// NewSideTimer creates a timer for one side. Run must be started for
// extensions to have any effect on the output.
func NewSideTimer(name string, driver Driver, logger *logging.Logger) *SideTimer {
	return &SideTimer{
		name:   name,
		driver: driver,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
}

// Name returns the side label ("left", "right").
func (t *SideTimer) Name() string {
	return t.name
}

// SetOnChange registers a callback fired on ON/OFF edges.
// Must be called before Run starts.
func (t *SideTimer) SetOnChange(fn func(on bool)) {
	t.onChange = fn
}

// Extend pushes the deadline out by d and wakes the worker.
//
// The new deadline is max(deadline, now) + d: stacked commands accumulate,
// a command arriving after the window lapsed starts a fresh window, and the
// deadline never moves backwards. Negative durations are treated as zero.
//
// Returns the new deadline.
func (t *SideTimer) Extend(d time.Duration) time.Time {
	if d < 0 {
		d = 0
	}

	t.mu.Lock()
	now := time.Now()
	base := t.expiry
	if base.Before(now) {
		base = now
	}
	t.expiry = base.Add(d)
	expiry := t.expiry
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}

	t.logger.Debug("window extended", "side", t.name, "by", d, "until", expiry)
	return expiry
}

// Deadline returns the current deadline. Zero time means no window was
// ever opened.
func (t *SideTimer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiry
}

// Active reports whether the window covers now.
func (t *SideTimer) Active() bool {
	return time.Now().Before(t.Deadline())
}

// Run is the worker loop. It blocks until ctx is cancelled, at which point
// the output is forced OFF before returning.
//
// The loop never busy-polls: idle it blocks on the wake channel, active it
// sleeps until the deadline or the next wakeup, whichever comes first.
func (t *SideTimer) Run(ctx context.Context) {
	defer t.setOutput(false)

	for {
		// Idle: wait for a window to open.
		select {
		case <-ctx.Done():
			return
		case <-t.wake:
		}

		if !t.Active() {
			// Stale wakeup; the window already lapsed.
			continue
		}

		t.setOutput(true)

		// Active: hold ON until the deadline, absorbing extensions.
		for {
			remaining := time.Until(t.Deadline())
			if remaining <= 0 {
				break
			}

			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-t.wake:
				timer.Stop()
				// Deadline may have moved; recompute.
			case <-timer.C:
			}
		}

		t.setOutput(false)
	}
}

// setOutput drives the hardware and fires the edge callback. Driver
// failures are logged and swallowed: a flaky relay must not kill the
// worker, and the next edge retries anyway.
func (t *SideTimer) setOutput(on bool) {
	if t.out == on {
		return
	}
	t.out = on

	var err error
	if on {
		err = t.driver.On()
	} else {
		err = t.driver.Off()
	}
	if err != nil {
		t.logger.Error("driving actuator", "side", t.name, "on", on, "error", err)
	}

	if t.onChange != nil {
		t.onChange(on)
	}
}
