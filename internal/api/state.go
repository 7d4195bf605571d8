package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// Sync event names broadcast on ChannelSyncEvent.
const (
	eventSnapshot   = "snapshot"
	eventStateSaved = "state_saved"
	eventStateLoad  = "state_loaded"
)

// StateRequest is the optional body of POST /state/save and /state/load.
// A missing config_uid selects the registry's current configuration UID.
type StateRequest struct {
	ConfigUID *int `json:"config_uid"`
}

// SyncEvent is the payload broadcast on ChannelSyncEvent.
type SyncEvent struct {
	Event     string `json:"event"`
	ConfigUID int    `json:"config_uid,omitempty"`
	Count     int    `json:"count,omitempty"`
}

// handleSnapshot pushes every parameter's value to the device. It blocks for
// the snapshot sequence, which the request context can cancel.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Snapshot(r.Context()); err != nil {
		writeInternalError(w, "snapshot failed: "+err.Error())
		return
	}

	s.hub.Broadcast(ChannelSyncEvent, SyncEvent{Event: eventSnapshot})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "sent",
		"parameters": len(s.registry.Parameters()),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeUnavailable(w, "state store not configured")
		return
	}
	uid, ok := s.configUID(w, r)
	if !ok {
		return
	}

	if err := s.registry.Save(r.Context(), s.repo, uid); err != nil {
		s.logger.Error("saving parameter state failed", "config_uid", uid, "error", err)
		writeInternalError(w, "saving parameter state failed")
		return
	}

	count := len(s.registry.DynamicParameters())
	s.hub.Broadcast(ChannelSyncEvent, SyncEvent{Event: eventStateSaved, ConfigUID: uid, Count: count})
	writeJSON(w, http.StatusOK, map[string]any{
		"config_uid": uid,
		"saved":      count,
	})
}

func (s *Server) handleLoadState(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeUnavailable(w, "state store not configured")
		return
	}
	uid, ok := s.configUID(w, r)
	if !ok {
		return
	}

	n, err := s.registry.Load(r.Context(), s.repo, uid)
	if err != nil {
		s.logger.Error("loading parameter state failed", "config_uid", uid, "error", err)
		writeInternalError(w, "loading parameter state failed")
		return
	}

	s.hub.Broadcast(ChannelSyncEvent, SyncEvent{Event: eventStateLoad, ConfigUID: uid, Count: n})
	writeJSON(w, http.StatusOK, map[string]any{
		"config_uid": uid,
		"restored":   n,
	})
}

// configUID reads the optional request body. An empty body is allowed.
func (s *Server) configUID(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return 0, false
	}
	if req.ConfigUID == nil {
		return s.registry.ConfigUID(), true
	}
	return *req.ConfigUID, true
}
