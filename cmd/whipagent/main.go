// whipagent runs at the rig, next to the hardware.
//
// It keeps a WebSocket connection to whipd open, applies inbound whip
// commands to the two actuator outputs, and optionally mirrors actuator
// state to MQTT. On shutdown both outputs are forced OFF before the
// process exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/martinevsky/whip-core/internal/actuator"
	"github.com/martinevsky/whip-core/internal/agent"
	"github.com/martinevsky/whip-core/internal/infrastructure/config"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
	"github.com/martinevsky/whip-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting whipagent", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, "whipagent", version)

	if cfg.Agent.Token == "" {
		return fmt.Errorf("agent token is required (set agent.token or WHIP_AGENT_TOKEN)")
	}

	// Hardware first: if the GPIO lines can't be claimed there is no point
	// dialing the broker.
	leftDriver, err := actuator.NewDriver("left", cfg.Agent.Sides.Left, log)
	if err != nil {
		return fmt.Errorf("configuring left output: %w", err)
	}
	rightDriver, err := actuator.NewDriver("right", cfg.Agent.Sides.Right, log)
	if err != nil {
		return fmt.Errorf("configuring right output: %w", err)
	}

	controller := actuator.NewController(
		actuator.NewSideTimer("left", leftDriver, log),
		actuator.NewSideTimer("right", rightDriver, log),
		log,
	)

	// Connect to MQTT broker (optional)
	var busClient *mqtt.Client
	if cfg.MQTT.Enabled {
		busClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := busClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		busClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		busClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	a := agent.New(cfg.Agent, controller, busClient, log)
	a.PublishStateChanges()

	// Workers start after callbacks are wired so no edge is missed.
	controller.Start(ctx)
	defer func() {
		// Forces both outputs OFF and releases the GPIO lines.
		log.Info("stopping actuator controller")
		if closeErr := controller.Close(); closeErr != nil {
			log.Error("error closing controller", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, connecting to broker", "url", cfg.Agent.ServerURL)

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("agent stopped: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses WHIP_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("WHIP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
