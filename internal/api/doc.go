// Package api implements the HTTP REST API and WebSocket server for ScopeSync.
//
// This package provides:
//   - REST endpoints to read and write parameters by name
//   - Host slot endpoints for automation writes and change gestures
//   - Device snapshot and persisted state save/load endpoints
//   - WebSocket hub relaying accepted parameter changes
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The server is a GUI-side writer: parameter writes arrive with the GUI
// source and go through the same source-block and range rules as any other
// writer. A registry observer relays every accepted write to WebSocket clients
// subscribed to "parameter.changed".
//
// # Graceful Degradation
//
// The server operates without MQTT or a state store. State save and load
// return 503 when no repository is configured.
package api
