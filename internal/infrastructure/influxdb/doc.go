// Package influxdb provides InfluxDB connectivity for parameter telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched point writing and health monitoring.
//
// # Measurements
//
//   - parameter_values: one point per accepted parameter write, tagged by
//     instance, parameter and source
//   - sync_events: device session events (snapshot, session, config_uid)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Instance.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteParameterValue(influxdb.ParameterValue{Name: "Cutoff", UIValue: 64})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered through
// the SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
