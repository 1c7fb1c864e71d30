// Package command defines the whip command model and the broker-side
// dispatcher.
//
// A command is a bounded actuation request: energise one or both sides for
// a duration between 1 and 60 seconds. The dispatcher validates the
// command, routes it to the connection registered under the caller's
// token, and records a best-effort audit entry and telemetry point.
//
// Delivery is fire-and-forget: a successful dispatch means the message was
// handed to the transport, not that the agent acted on it.
package command
