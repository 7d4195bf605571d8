package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bcmodular/scopesync-core/internal/registry"
)

// Gesture actions accepted by POST /host/{idx}/gesture/{action}.
const (
	gestureBegin = "begin"
	gestureEnd   = "end"
)

// HostSlotView is the host's view of one automation slot.
type HostSlotView struct {
	Index        int     `json:"index"`
	Bound        bool    `json:"bound"`
	Parameter    string  `json:"parameter,omitempty"`
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Text         string  `json:"text"`
	DefaultValue float64 `json:"default_value"`
	Discrete     bool    `json:"discrete"`
	NumSteps     int     `json:"num_steps"`
	Changing     bool    `json:"changing"`
}

// HostWriteRequest is the body of PUT /host/{idx}.
type HostWriteRequest struct {
	Value *float64 `json:"value"`
}

func (s *Server) slotView(idx int) HostSlotView {
	v := HostSlotView{
		Index:        idx,
		Name:         s.registry.HostName(idx),
		Value:        s.registry.HostValue(idx),
		Text:         s.registry.HostText(idx),
		DefaultValue: s.registry.HostDefaultValue(idx),
		Discrete:     s.registry.IsHostDiscrete(idx),
		NumSteps:     s.registry.HostNumSteps(idx),
		Changing:     s.registry.IsChanging(idx),
	}
	if p, err := s.registry.HostParameter(idx); err == nil {
		v.Bound = true
		v.Parameter = p.Name()
	}
	return v
}

// handleListHostSlots returns all host slots, bound or not.
func (s *Server) handleListHostSlots(w http.ResponseWriter, _ *http.Request) {
	n := s.registry.HostSlots()
	slots := make([]HostSlotView, 0, n)
	for i := 0; i < n; i++ {
		slots = append(slots, s.slotView(i))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slots": slots,
		"count": n,
	})
}

func (s *Server) handleGetHostSlot(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.slotIndex(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.slotView(idx))
}

// handleSetHostSlot applies a host automation write to a slot.
func (s *Server) handleSetHostSlot(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.slotIndex(w, r)
	if !ok {
		return
	}

	var req HostWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "value is required")
		return
	}

	if _, err := s.registry.HostParameter(idx); errors.Is(err, registry.ErrEmptySlot) {
		writeNotFound(w, err.Error())
		return
	}

	if !s.registry.SetHostValue(idx, *req.Value) {
		writeConflict(w, "host write rejected for slot "+strconv.Itoa(idx))
		return
	}

	writeJSON(w, http.StatusOK, s.slotView(idx))
}

func (s *Server) handleHostGesture(w http.ResponseWriter, r *http.Request) {
	idx, ok := s.slotIndex(w, r)
	if !ok {
		return
	}

	switch action := chi.URLParam(r, "action"); action {
	case gestureBegin:
		s.registry.BeginParameterChangeGesture(idx)
	case gestureEnd:
		s.registry.EndParameterChangeGesture(idx)
	default:
		writeBadRequest(w, "unknown gesture action: "+action)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"index":    idx,
		"changing": s.registry.IsChanging(idx),
	})
}

// slotIndex parses {idx}, writing 400 for a malformed index and 404 for one
// outside the slot table.
func (s *Server) slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeBadRequest(w, "invalid host slot index")
		return 0, false
	}
	if idx < 0 || idx >= s.registry.HostSlots() {
		writeNotFound(w, "host slot out of range: "+strconv.Itoa(idx))
		return 0, false
	}
	return idx, true
}
