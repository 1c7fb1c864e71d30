package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/martinevsky/whip-core/internal/infrastructure/influxdb"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
	"github.com/martinevsky/whip-core/internal/registry"
)

// Dispatcher routes validated commands to the connection registered under
// the caller's token.
//
// The audit repository and the telemetry client are optional; when nil the
// corresponding side effect is skipped. Neither can fail a dispatch that
// already reached the transport.
type Dispatcher struct {
	registry *registry.Registry
	audit    Repository
	tsdb     *influxdb.Client
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
//
// Parameters:
//   - reg: Connection registry (required)
//   - audit: Command audit repository (nil disables the audit trail)
//   - tsdb: InfluxDB client (nil disables dispatch telemetry)
//   - logger: Logger (required)
func NewDispatcher(reg *registry.Registry, audit Repository, tsdb *influxdb.Client, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		audit:    audit,
		tsdb:     tsdb,
		logger:   logger,
	}
}

// Dispatch validates cmd, looks up the connection for token, and sends the
// wire message over it.
//
// Failure modes:
//   - ErrDurationRange / ErrUnknownSide: cmd outside the allowed domain;
//     no side effects.
//   - ErrNoClient: no connection registered for token, or the send failed.
//     A failed send additionally unregisters the dead connection (only if
//     it is still the one stored for token).
//
// On success the returned Message has been irrevocably handed to the
// transport; no acknowledgement from the remote peer is awaited.
func (d *Dispatcher) Dispatch(ctx context.Context, token string, cmd Command) (Message, error) {
	if err := cmd.Validate(); err != nil {
		return Message{}, err
	}

	conn, ok := d.registry.Lookup(token)
	if !ok {
		return Message{}, ErrNoClient
	}

	msg := NewMessage(cmd, time.Now())
	payload, err := json.Marshal(msg)
	if err != nil {
		return Message{}, fmt.Errorf("marshalling command message: %w", err)
	}

	if err := conn.Send(payload); err != nil {
		// The transport is dead. Drop the mapping (unless a newer
		// connection already replaced it) and surface not-found.
		d.registry.Unregister(token, conn)
		d.logger.Warn("command send failed, connection dropped",
			"side", cmd.Side,
			"error", err,
		)
		return Message{}, fmt.Errorf("%w: %w", ErrNoClient, err)
	}

	d.logger.Info("command dispatched",
		"side", cmd.Side,
		"duration", cmd.Duration,
	)

	d.record(ctx, token, cmd)

	return msg, nil
}

// record writes the best-effort audit entry and telemetry point for a
// successfully dispatched command.
func (d *Dispatcher) record(ctx context.Context, token string, cmd Command) {
	if d.audit != nil {
		rec := &Record{
			TokenHash: HashToken(token),
			Duration:  cmd.Duration,
			Side:      cmd.Side,
		}
		if err := d.audit.Create(ctx, rec); err != nil {
			d.logger.Warn("audit write failed", "error", err)
		}
	}

	if d.tsdb != nil {
		d.tsdb.WriteDispatchMetric(string(cmd.Side), float64(cmd.Duration))
	}
}
