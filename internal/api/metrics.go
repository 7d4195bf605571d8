package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Parameters    ParamMetrics     `json:"parameters"`
	Database      DatabaseMetrics  `json:"database"`
	Device        DeviceMetrics    `json:"device"`
	Telemetry     TelemetryMetrics `json:"telemetry"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	Dropped          uint64 `json:"dropped_messages"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// ParamMetrics contains parameter registry statistics.
type ParamMetrics struct {
	Total      int    `json:"total"`
	Fixed      int    `json:"fixed"`
	Dynamic    int    `json:"dynamic"`
	HostSlots  int    `json:"host_slots"`
	BoundSlots int    `json:"bound_slots"`
	Mode       string `json:"mode"`
	Session    int    `json:"session"`
	ConfigUID  int    `json:"config_uid"`
}

// DeviceMetrics contains device link statistics.
type DeviceMetrics struct {
	AsyncFrames uint64 `json:"async_frames"`
}

// TelemetryMetrics contains InfluxDB recorder statistics.
type TelemetryMetrics struct {
	Enabled bool   `json:"enabled"`
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	// Collect runtime stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Build metrics response
	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			Dropped:          s.hub.Dropped(),
		},
	}

	// MQTT metrics (if available)
	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		}
	}

	metrics.Parameters = s.parameterMetrics()

	if s.deviceFrames != nil {
		metrics.Device.AsyncFrames = s.deviceFrames()
	}
	if s.telemetry != nil {
		metrics.Telemetry.Enabled = true
		metrics.Telemetry.Written, metrics.Telemetry.Dropped = s.telemetry.Stats()
	}

	// Database stats (if available)
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) parameterMetrics() ParamMetrics {
	all := s.registry.Parameters()
	dynamic := len(s.registry.DynamicParameters())

	m := ParamMetrics{
		Total:     len(all),
		Fixed:     len(all) - dynamic,
		Dynamic:   dynamic,
		HostSlots: s.registry.HostSlots(),
		Mode:      string(s.registry.Mode()),
		Session:   s.registry.Session(),
		ConfigUID: s.registry.ConfigUID(),
	}
	for i := 0; i < m.HostSlots; i++ {
		if _, err := s.registry.HostParameter(i); err == nil {
			m.BoundSlots++
		}
	}
	return m
}
