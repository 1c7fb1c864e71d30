// Package agent implements the actuator-side client of the whip broker.
//
// The agent dials whipd's WebSocket endpoint with its bearer token, keeping
// the connection up with exponential-backoff reconnects, and feeds every
// valid whip command into the actuator controller. Optionally it mirrors
// per-side actuator state to retained MQTT topics for observability.
//
// Commands only ever flow broker -> agent; the agent never writes
// application frames back.
package agent
