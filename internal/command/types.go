package command

import (
	"fmt"
	"time"
)

// Duration bounds for a whip command, in seconds.
const (
	MinDuration = 1
	MaxDuration = 60
)

// Side identifies which physical output a command applies to.
type Side string

// Recognised sides. SideBoth expands to independent actuations of left and
// right on the agent.
const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideBoth  Side = "both"
)

// ParseSide converts a request string to a Side. The empty string defaults
// to SideBoth, matching the REST API contract.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLeft, SideRight, SideBoth:
		return Side(s), nil
	case "":
		return SideBoth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
	}
}

// Command is a validated whip request. Immutable once parsed.
type Command struct {
	Duration int
	Side     Side
}

// Validate checks the command against the allowed domain.
func (c Command) Validate() error {
	if c.Duration < MinDuration || c.Duration > MaxDuration {
		return fmt.Errorf("%w: got %d", ErrDurationRange, c.Duration)
	}
	switch c.Side {
	case SideLeft, SideRight, SideBoth:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSide, c.Side)
	}
	return nil
}

// Message is the wire format sent to the agent over the persistent
// connection.
type Message struct {
	Command  string `json:"command"`
	Duration int    `json:"duration"`
	Side     string `json:"side"`
	TS       string `json:"ts"`
}

// CommandWhip is the only command the wire protocol currently carries.
const CommandWhip = "whip"

// NewMessage builds the wire message for a command at the given instant.
// The timestamp is UTC, RFC 3339.
func NewMessage(cmd Command, now time.Time) Message {
	return Message{
		Command:  CommandWhip,
		Duration: cmd.Duration,
		Side:     string(cmd.Side),
		TS:       now.UTC().Format(time.RFC3339),
	}
}
