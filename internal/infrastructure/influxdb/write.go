package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDispatchMetric records a successfully dispatched whip command.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - side: The commanded side ("left", "right", "both")
//   - duration: The commanded duration in seconds
func (c *Client) WriteDispatchMetric(side string, duration float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"whip_dispatch",
		map[string]string{
			"side": side,
		},
		map[string]interface{}{
			"duration_s": duration,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteClientGauge records the number of currently connected agents.
//
// Parameters:
//   - count: Registered connection count at sampling time
func (c *Client) WriteClientGauge(count int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"whip_clients",
		nil,
		map[string]interface{}{
			"connected": count,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
