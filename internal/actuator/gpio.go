package actuator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
)

// sysfs GPIO paths. Overridable for tests.
var gpioRoot = "/sys/class/gpio"

const (
	// exportSettleTimeout is how long to wait for the kernel to create the
	// per-pin directory after export.
	exportSettleTimeout = 500 * time.Millisecond

	// exportSettlePoll is the interval between settle checks.
	exportSettlePoll = 10 * time.Millisecond

	// valueFileMode is the permission check mode for writes (files exist already).
	valueFileMode = 0o200
)

// GPIODriver drives one GPIO line through the Linux sysfs interface.
//
// The line is exported and set to output on construction, and driven to
// logical OFF. For active-low wiring (relay boards that energise on a low
// line) the polarity is inverted here, so callers only see logical state.
type GPIODriver struct {
	name      string
	pin       int
	activeLow bool
	logger    *logging.Logger

	pinDir string

	mu       sync.Mutex
	on       bool
	exported bool
}

// NewGPIODriver exports the pin, configures it as an output, and drives it OFF.
//
// Returns:
//   - *GPIODriver: Ready-to-use output
//   - error: If sysfs is unavailable or the pin cannot be configured
func NewGPIODriver(name string, pin int, activeLow bool, logger *logging.Logger) (*GPIODriver, error) {
	if _, err := os.Stat(gpioRoot); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrGPIOUnavailable, gpioRoot, err)
	}

	d := &GPIODriver{
		name:      name,
		pin:       pin,
		activeLow: activeLow,
		logger:    logger,
		pinDir:    filepath.Join(gpioRoot, fmt.Sprintf("gpio%d", pin)),
	}

	if err := d.export(); err != nil {
		return nil, err
	}

	if err := writeFile(filepath.Join(d.pinDir, "direction"), "out"); err != nil {
		return nil, fmt.Errorf("setting gpio%d direction: %w", pin, err)
	}

	// Known-safe initial state.
	if err := d.write(false); err != nil {
		return nil, fmt.Errorf("initialising gpio%d: %w", pin, err)
	}

	logger.Info("gpio line configured", "side", name, "pin", pin, "active_low", activeLow)
	return d, nil
}

// export makes the pin visible under sysfs. Already-exported pins (from a
// previous unclean shutdown) are not an error.
func (d *GPIODriver) export() error {
	if _, err := os.Stat(d.pinDir); err == nil {
		d.exported = true
		return nil
	}

	if err := writeFile(filepath.Join(gpioRoot, "export"), strconv.Itoa(d.pin)); err != nil {
		return fmt.Errorf("exporting gpio%d: %w", d.pin, err)
	}

	// The kernel creates the pin directory asynchronously; udev may also
	// need a moment to fix up permissions.
	deadline := time.Now().Add(exportSettleTimeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filepath.Join(d.pinDir, "value")); err == nil {
			d.exported = true
			return nil
		}
		time.Sleep(exportSettlePoll)
	}

	return fmt.Errorf("gpio%d did not appear after export", d.pin)
}

// On energises the output. Idempotent.
func (d *GPIODriver) On() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.on {
		return nil
	}
	if err := d.write(true); err != nil {
		return err
	}
	d.on = true
	d.logger.Info("actuator on", "side", d.name, "pin", d.pin)
	return nil
}

// Off de-energises the output. Idempotent.
func (d *GPIODriver) Off() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.on {
		return nil
	}
	if err := d.write(false); err != nil {
		return err
	}
	d.on = false
	d.logger.Info("actuator off", "side", d.name, "pin", d.pin)
	return nil
}

// Cleanup drives the line OFF and unexports the pin.
func (d *GPIODriver) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Force OFF regardless of tracked state; this is the safety path.
	if err := d.write(false); err != nil {
		d.logger.Warn("forcing gpio off during cleanup", "pin", d.pin, "error", err)
	}
	d.on = false

	if !d.exported {
		return nil
	}
	if err := writeFile(filepath.Join(gpioRoot, "unexport"), strconv.Itoa(d.pin)); err != nil {
		return fmt.Errorf("unexporting gpio%d: %w", d.pin, err)
	}
	d.exported = false
	return nil
}

// write sets the physical line level for a logical state, applying
// active-low inversion.
func (d *GPIODriver) write(logical bool) error {
	physical := logical
	if d.activeLow {
		physical = !physical
	}

	value := "0"
	if physical {
		value = "1"
	}
	return writeFile(filepath.Join(d.pinDir, "value"), value)
}

// writeFile writes a small control string to a sysfs attribute.
func writeFile(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, valueFileMode)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(value)
	return err
}
