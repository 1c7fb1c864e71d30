package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/martinevsky/whip-core/internal/actuator"
	"github.com/martinevsky/whip-core/internal/command"
	"github.com/martinevsky/whip-core/internal/infrastructure/config"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
	"github.com/martinevsky/whip-core/internal/infrastructure/mqtt"
)

// dialTimeout bounds one connection attempt to the broker.
const dialTimeout = 10 * time.Second

// Agent holds the persistent WebSocket connection to whipd and applies
// inbound whip commands to the side timers.
//
// The agent is the only component with hardware access; whipd never touches
// a GPIO line. A lost connection is retried forever with exponential
// backoff, because the rig may outlive any number of broker restarts.
type Agent struct {
	cfg        config.AgentConfig
	controller *actuator.Controller
	logger     *logging.Logger
	bus        *mqtt.Client // optional state mirroring
}

// New creates an agent. Call PublishStateChanges before Run if MQTT
// mirroring is wanted.
func New(cfg config.AgentConfig, controller *actuator.Controller, bus *mqtt.Client, logger *logging.Logger) *Agent {
	return &Agent{
		cfg:        cfg,
		controller: controller,
		logger:     logger,
		bus:        bus,
	}
}

// PublishStateChanges wires the side timers' ON/OFF edges to retained MQTT
// state topics. No-op when the agent has no bus.
func (a *Agent) PublishStateChanges() {
	if a.bus == nil {
		return
	}

	for _, side := range []command.Side{command.SideLeft, command.SideRight} {
		timer := a.controller.Timer(side)
		if timer == nil {
			continue
		}

		topic := mqtt.Topics{}.SideState(string(side))
		timer.SetOnChange(func(on bool) {
			payload := fmt.Sprintf(`{"on":%t,"ts":"%s"}`, on, time.Now().UTC().Format(time.RFC3339))
			if err := a.bus.PublishRetained(topic, []byte(payload)); err != nil {
				a.logger.Warn("publishing actuator state", "topic", topic, "error", err)
			}
		})
	}
}

// Run connects to the broker and processes commands until ctx is cancelled.
//
// Every disconnect (dial failure, read error, broker restart) feeds the
// backoff loop; a successful connection resets it.
func (a *Agent) Run(ctx context.Context) error {
	backoff := a.initialDelay()

	for {
		start := time.Now()
		err := a.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A session that held for a while means the broker is healthy;
		// start the backoff over instead of compounding old failures.
		if time.Since(start) > a.maxDelay() {
			backoff = a.initialDelay()
		}

		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
			// The broker rejected our credentials; retrying with the
			// same token would just hammer it.
			return fmt.Errorf("broker rejected token: %w", err)
		}

		a.logger.Warn("connection lost, reconnecting",
			"error", err,
			"retry_in", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if ceiling := a.maxDelay(); backoff > ceiling {
			backoff = ceiling
		}
	}
}

// runSession dials the broker and reads commands until the connection dies.
func (a *Agent) runSession(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.cfg.Token)

	conn, resp, err := dialer.DialContext(ctx, a.cfg.ServerURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dialing %s: %w (status %d)", a.cfg.ServerURL, err, resp.StatusCode)
		}
		return fmt.Errorf("dialing %s: %w", a.cfg.ServerURL, err)
	}
	defer conn.Close()

	a.logger.Info("connected to broker", "url", a.cfg.ServerURL)

	// Cancellation unblocks the read loop by closing the connection.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		a.handleFrame(frame)
	}
}

// handleFrame parses and applies one inbound frame. Anything malformed is
// logged and skipped: a bad frame must never take the session down.
func (a *Agent) handleFrame(frame []byte) {
	var msg command.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		a.logger.Warn("skipping unparseable frame", "error", err, "bytes", len(frame))
		return
	}

	if msg.Command != command.CommandWhip {
		a.logger.Warn("skipping unknown command", "command", msg.Command)
		return
	}

	side, err := command.ParseSide(msg.Side)
	if err != nil {
		a.logger.Warn("skipping command with unknown side", "side", msg.Side)
		return
	}

	cmd := command.Command{Duration: msg.Duration, Side: side}
	if err := cmd.Validate(); err != nil {
		a.logger.Warn("skipping invalid command", "error", err)
		return
	}

	a.logger.Info("applying command", "duration", cmd.Duration, "side", cmd.Side, "ts", msg.TS)
	a.controller.Apply(cmd)
}

// initialDelay returns the configured initial backoff, defaulting to 1s.
func (a *Agent) initialDelay() time.Duration {
	if a.cfg.Reconnect.InitialDelay <= 0 {
		return time.Second
	}
	return time.Duration(a.cfg.Reconnect.InitialDelay) * time.Second
}

// maxDelay returns the configured backoff ceiling, defaulting to 60s.
func (a *Agent) maxDelay() time.Duration {
	if a.cfg.Reconnect.MaxDelay <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.cfg.Reconnect.MaxDelay) * time.Second
}
