package actuator

import (
	"context"
	"sync"
	"time"

	"github.com/martinevsky/whip-core/internal/command"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// Controller owns both side timers and fans commands out to them.
//
// Sides are fully independent: each has its own worker, its own deadline,
// and its own driver. A "both" command is just two extends.
type Controller struct {
	left   *SideTimer
	right  *SideTimer
	logger *logging.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewController wires the two side timers together.
func NewController(left, right *SideTimer, logger *logging.Logger) *Controller {
	return &Controller{
		left:   left,
		right:  right,
		logger: logger,
	}
}

// Start launches both side workers. The controller must be stopped with
// Close(), which forces both outputs OFF.
func (c *Controller) Start(ctx context.Context) {
	var runCtx context.Context
	runCtx, c.cancel = context.WithCancel(ctx)

	for _, t := range []*SideTimer{c.left, c.right} {
		c.wg.Add(1)
		go func(t *SideTimer) {
			defer c.wg.Done()
			t.Run(runCtx)
		}(t)
	}
}

// Apply extends the timers named by the command.
//
// One side's extension never depends on the other's: "both" extends left
// and right independently, and a failure driving one output (logged inside
// the timer) has no effect on the other side's window.
func (c *Controller) Apply(cmd command.Command) {
	d := time.Duration(cmd.Duration) * time.Second

	switch cmd.Side {
	case command.SideLeft:
		c.left.Extend(d)
	case command.SideRight:
		c.right.Extend(d)
	case command.SideBoth:
		c.left.Extend(d)
		c.right.Extend(d)
	default:
		c.logger.Warn("ignoring command for unknown side", "side", cmd.Side)
	}
}

// Timer returns the timer for one side, or nil for "both"/unknown.
func (c *Controller) Timer(side command.Side) *SideTimer {
	switch side {
	case command.SideLeft:
		return c.left
	case command.SideRight:
		return c.right
	default:
		return nil
	}
}

// Close stops both workers (forcing outputs OFF) and releases driver
// resources. Cleanup failures are logged, not returned: shutdown must
// always complete.
func (c *Controller) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	for _, t := range []*SideTimer{c.left, c.right} {
		if err := t.driver.Cleanup(); err != nil {
			c.logger.Warn("driver cleanup failed", "side", t.name, "error", err)
		}
	}

	return nil
}
