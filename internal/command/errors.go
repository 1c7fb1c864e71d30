package command

import "errors"

// Domain-specific errors for command dispatch.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDurationRange is returned when a duration is outside [1, 60] seconds.
	ErrDurationRange = errors.New("command: duration must be between 1 and 60 seconds")

	// ErrUnknownSide is returned when a side is not left, right or both.
	ErrUnknownSide = errors.New("command: side must be \"left\", \"right\" or \"both\"")

	// ErrNoClient is returned when no live connection exists for a token,
	// or when the send to an apparently-live connection failed. The two
	// causes are intentionally indistinguishable to the caller: a dead
	// transport looks the same as no client connected.
	ErrNoClient = errors.New("command: no active client for this token")
)
