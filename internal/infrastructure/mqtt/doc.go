// Package mqtt provides optional MQTT publishing for the whip agent.
//
// This package manages:
//   - Connection to a Mosquitto-style broker with auto-reconnect
//   - Retained state publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The agent is a publisher only. Per-side actuator state goes to retained
// topics under whip/state/ so any observer (dashboard, automation) sees the
// current state on subscribe without polling the broker's REST API. Agent
// presence goes to whip/agent/status, which doubles as the LWT topic: if the
// agent process or its network dies, the broker flips the topic to offline.
//
// MQTT is strictly optional. Commands never travel over MQTT; they arrive on
// the agent's WebSocket connection to whipd. A broker outage only means the
// observability topics go stale.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.SideState("left")
//	client.PublishRetained(topic, []byte(`{"on":true}`))
package mqtt
