package actuator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// recordingDriver counts logical transitions so tests can assert the output
// never flickers.
type recordingDriver struct {
	mu          sync.Mutex
	on          bool
	transitions []bool
}

func (d *recordingDriver) set(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.on == on {
		return nil
	}
	d.on = on
	d.transitions = append(d.transitions, on)
	return nil
}

func (d *recordingDriver) On() error      { return d.set(true) }
func (d *recordingDriver) Off() error     { return d.set(false) }
func (d *recordingDriver) Cleanup() error { return d.set(false) }

func (d *recordingDriver) IsOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

func (d *recordingDriver) Transitions() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]bool, len(d.transitions))
	copy(out, d.transitions)
	return out
}

// within asserts a time is inside [want-tol, want+tol].
func within(t *testing.T, got, want time.Time, tol time.Duration) {
	t.Helper()
	diff := got.Sub(want)
	if diff < -tol || diff > tol {
		t.Errorf("deadline off by %v (got %v, want %v)", diff, got, want)
	}
}

// waitUntil polls the condition with a deadline.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

const tolerance = 50 * time.Millisecond

func TestExtend_OpensWindow(t *testing.T) {
	timer := NewSideTimer("left", &recordingDriver{}, logging.Default())

	now := time.Now()
	deadline := timer.Extend(10 * time.Second)

	within(t, deadline, now.Add(10*time.Second), tolerance)
	if !timer.Active() {
		t.Error("Active() = false inside window")
	}
}

func TestExtend_Stacks(t *testing.T) {
	timer := NewSideTimer("left", &recordingDriver{}, logging.Default())

	now := time.Now()
	timer.Extend(10 * time.Second)
	deadline := timer.Extend(5 * time.Second)

	// Additive: 10s + 5s from the first extension's base.
	within(t, deadline, now.Add(15*time.Second), tolerance)
}

func TestExtend_LapsedWindowRestartsFromNow(t *testing.T) {
	timer := NewSideTimer("left", &recordingDriver{}, logging.Default())

	// A window that lapsed long ago must not act as the base.
	timer.mu.Lock()
	timer.expiry = time.Now().Add(-time.Hour)
	timer.mu.Unlock()

	now := time.Now()
	deadline := timer.Extend(10 * time.Second)

	within(t, deadline, now.Add(10*time.Second), tolerance)
}

func TestExtend_NeverMovesBackwards(t *testing.T) {
	timer := NewSideTimer("left", &recordingDriver{}, logging.Default())

	first := timer.Extend(10 * time.Second)
	second := timer.Extend(0)

	if second.Before(first) {
		t.Errorf("deadline moved backwards: %v -> %v", first, second)
	}
}

func TestExtend_NegativeClampedToZero(t *testing.T) {
	timer := NewSideTimer("left", &recordingDriver{}, logging.Default())

	now := time.Now()
	deadline := timer.Extend(-5 * time.Second)

	within(t, deadline, now, tolerance)
}

func TestRun_OutputTracksWindow(t *testing.T) {
	driver := &recordingDriver{}
	timer := NewSideTimer("left", driver, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	timer.Extend(100 * time.Millisecond)
	waitUntil(t, driver.IsOn, "output did not turn on")
	waitUntil(t, func() bool { return !driver.IsOn() }, "output did not turn off at deadline")
}

func TestRun_ExtensionDoesNotFlicker(t *testing.T) {
	driver := &recordingDriver{}
	timer := NewSideTimer("left", driver, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	timer.Extend(150 * time.Millisecond)
	waitUntil(t, driver.IsOn, "output did not turn on")

	// Extend mid-window; the output must stay ON continuously.
	time.Sleep(75 * time.Millisecond)
	timer.Extend(150 * time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	if !driver.IsOn() {
		t.Error("output dropped before the extended deadline")
	}

	waitUntil(t, func() bool { return !driver.IsOn() }, "output did not turn off")

	if got := driver.Transitions(); len(got) != 2 {
		t.Errorf("transitions = %v, want exactly [on off]", got)
	}
}

func TestRun_StaleWakeupStaysOff(t *testing.T) {
	driver := &recordingDriver{}
	timer := NewSideTimer("left", driver, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	// A zero-length window should not produce a visible pulse.
	timer.Extend(0)
	time.Sleep(50 * time.Millisecond)

	if got := driver.Transitions(); len(got) != 0 {
		t.Errorf("transitions = %v, want none for a zero-length window", got)
	}
}

func TestRun_CancelForcesOff(t *testing.T) {
	driver := &recordingDriver{}
	timer := NewSideTimer("left", driver, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go timer.Run(ctx)

	timer.Extend(10 * time.Second)
	waitUntil(t, driver.IsOn, "output did not turn on")

	cancel()
	waitUntil(t, func() bool { return !driver.IsOn() }, "output not forced off on cancel")
}

func TestRun_OnChangeFiresOnEdges(t *testing.T) {
	driver := &recordingDriver{}
	timer := NewSideTimer("left", driver, logging.Default())

	var mu sync.Mutex
	var edges []bool
	timer.SetOnChange(func(on bool) {
		mu.Lock()
		edges = append(edges, on)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Run(ctx)

	timer.Extend(80 * time.Millisecond)
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(edges) == 2
	}, "expected one ON and one OFF edge")

	mu.Lock()
	defer mu.Unlock()
	if !edges[0] || edges[1] {
		t.Errorf("edges = %v, want [true false]", edges)
	}
}
