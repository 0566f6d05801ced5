package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCommands  = "ball_commands"
	MeasurementTransport = "ball_transport"
	MeasurementRegistry  = "ball_registry"
)

// WriteCommandMetric records one colour command attempt.
//
// Tags: device_id, outcome. Fields: duration_ms (float), success (bool).
// The write is non-blocking.
func (c *Client) WriteCommandMetric(deviceID int, outcome string, duration time.Duration) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(CommandPoint(deviceID, outcome, duration, time.Now()))
}

// CommandPoint builds the ball_commands point written by WriteCommandMetric.
func CommandPoint(deviceID int, outcome string, duration time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementCommands,
		map[string]string{
			"device_id": strconv.Itoa(deviceID),
			"outcome":   outcome,
		},
		map[string]interface{}{
			"duration_ms": float64(duration) / float64(time.Millisecond),
			"success":     outcome == "success",
		},
		ts,
	)
}

// WriteCounters records a snapshot of cumulative counters, such as the
// UDP transport statistics, under the ball_transport measurement.
func (c *Client) WriteCounters(counters map[string]uint64) {
	if !c.IsConnected() || len(counters) == 0 {
		return
	}
	fields := make(map[string]interface{}, len(counters))
	for k, v := range counters {
		fields[k] = v
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementTransport, nil, fields, time.Now()))
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
