package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementParameter = "parameter_values"
	MeasurementSession   = "sync_events"
)

// ParameterValue is one accepted parameter write.
type ParameterValue struct {
	Name        string
	Source      string
	HostIdx     int
	UIValue     float64
	HostValue   float64
	DeviceValue int
	Time        time.Time
}

// NewParameterPoint builds the point for a parameter write. Name and source
// are tags; the values are fields. A zero Time is stamped now.
func NewParameterPoint(instanceID string, v ParameterValue) *write.Point {
	ts := v.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementParameter,
		map[string]string{
			"instance":  instanceID,
			"parameter": v.Name,
			"source":    v.Source,
		},
		map[string]interface{}{
			"ui_value":     v.UIValue,
			"host_value":   v.HostValue,
			"device_value": int64(v.DeviceValue),
			"host_idx":     int64(v.HostIdx),
		},
		ts,
	)
}

// WriteParameterValue queues a parameter write. Dropped when not connected.
func (c *Client) WriteParameterValue(v ParameterValue) {
	c.write(NewParameterPoint(c.instanceID, v))
}

// WriteSessionEvent queues a sync event such as "snapshot", "session" or
// "config_uid" with its integer value.
func (c *Client) WriteSessionEvent(event string, value int) {
	c.write(write.NewPoint(
		MeasurementSession,
		map[string]string{"instance": c.instanceID, "event": event},
		map[string]interface{}{"value": int64(value)},
		time.Now(),
	))
}

// WritePoint queues an arbitrary point stamped now.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime queues an arbitrary point.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, ts))
}

func (c *Client) write(p *write.Point) {
	if c.IsConnected() {
		c.writeAPI.WritePoint(p)
	}
}
