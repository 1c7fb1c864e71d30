package actuator

import "errors"

// Domain-specific errors for actuator operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownDriver is returned when config names a driver that doesn't exist.
	ErrUnknownDriver = errors.New("actuator: unknown driver")

	// ErrGPIOUnavailable is returned when the sysfs GPIO interface is missing.
	ErrGPIOUnavailable = errors.New("actuator: sysfs gpio unavailable")
)
