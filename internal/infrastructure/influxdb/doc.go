// Package influxdb provides optional dispatch telemetry for the broker.
//
// When enabled in config.yaml, whipd records each dispatched command and a
// connected-client gauge as InfluxDB v2 points. Writes are non-blocking
// and batched; a telemetry outage never affects command dispatch.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil { ... }
//	defer client.Close()
//	client.WriteDispatchMetric("left", 5)
package influxdb
