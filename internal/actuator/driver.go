package actuator

import (
	"fmt"

	"github.com/martinevsky/whip-core/internal/infrastructure/config"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// Driver is one physical (or simulated) output.
//
// Implementations must be idempotent: calling On twice in a row, or Off on
// an already-off output, is a no-op and never glitches the line. Polarity
// inversion for active-low wiring is the driver's job; callers only ever
// reason in logical ON/OFF.
type Driver interface {
	// On energises the output.
	On() error

	// Off de-energises the output.
	Off() error

	// Cleanup releases any hardware resources. The output is driven OFF
	// first. Cleanup is called once, at shutdown.
	Cleanup() error
}

// Driver implementation names accepted in config.
const (
	DriverGPIO = "gpio"
	DriverSim  = "sim"
)

// NewDriver builds the configured driver for one side.
//
// Parameters:
//   - name: Side label used in logs ("left", "right")
//   - cfg: Side configuration (driver selection, pin, polarity)
//   - logger: Structured logger
//
// Returns:
//   - Driver: Ready-to-use output
//   - error: If the driver name is unknown or hardware setup fails
func NewDriver(name string, cfg config.SideConfig, logger *logging.Logger) (Driver, error) {
	switch cfg.Driver {
	case DriverSim:
		return NewSimDriver(name, logger), nil
	case DriverGPIO:
		return NewGPIODriver(name, cfg.Pin, cfg.ActiveLow, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
