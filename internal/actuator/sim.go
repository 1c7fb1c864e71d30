package actuator

import (
	"sync"

	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// SimDriver is a no-hardware output that logs transitions.
//
// It is the default driver, used on development machines and in tests.
type SimDriver struct {
	name   string
	logger *logging.Logger

	mu sync.Mutex
	on bool
}

// NewSimDriver creates a simulated output.
func NewSimDriver(name string, logger *logging.Logger) *SimDriver {
	return &SimDriver{name: name, logger: logger}
}

// On energises the simulated output. Idempotent.
func (d *SimDriver) On() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.on {
		return nil
	}
	d.on = true
	d.logger.Info("actuator on", "side", d.name, "driver", DriverSim)
	return nil
}

// Off de-energises the simulated output. Idempotent.
func (d *SimDriver) Off() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.on {
		return nil
	}
	d.on = false
	d.logger.Info("actuator off", "side", d.name, "driver", DriverSim)
	return nil
}

// Cleanup drives the output OFF.
func (d *SimDriver) Cleanup() error {
	return d.Off()
}

// IsOn reports the current simulated state.
func (d *SimDriver) IsOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}
