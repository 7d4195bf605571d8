package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/bcmodular/scopesync-core/internal/bridges/control"
	"github.com/bcmodular/scopesync-core/internal/parameter"
	"github.com/bcmodular/scopesync-core/internal/registry"
)

// ParameterView is the JSON representation of a parameter.
type ParameterView struct {
	Name             string             `json:"name"`
	ShortDescription string             `json:"short_description,omitempty"`
	FullDescription  string             `json:"full_description,omitempty"`
	ScopeCode        string             `json:"scope_code,omitempty"`
	HostIdx          int                `json:"host_idx"`
	Fixed            bool               `json:"fixed"`
	Discrete         bool               `json:"discrete"`
	ReadOnly         bool               `json:"read_only"`
	UI               parameter.UIRange  `json:"ui"`
	UIValue          float64            `json:"ui_value"`
	HostValue        float64            `json:"host_value"`
	LinearNormalised float64            `json:"linear_normalised"`
	Text             string             `json:"text"`
	DeviceValue      int                `json:"device_value"`
	Address          string             `json:"address,omitempty"`
	Settings         parameter.Settings `json:"settings,omitempty"`
}

func (s *Server) viewOf(p *parameter.Parameter) ParameterView {
	def := p.Definition()
	return ParameterView{
		Name:             p.Name(),
		ShortDescription: def.ShortDescription,
		FullDescription:  def.FullDescription,
		ScopeCode:        s.registry.ScopeCodeOf(p.Name()),
		HostIdx:          p.HostIdx(),
		Fixed:            p.IsFixed(),
		Discrete:         p.IsDiscrete(),
		ReadOnly:         p.IsReadOnly(),
		UI:               def.UI,
		UIValue:          p.UIValue(),
		HostValue:        p.HostValue(),
		LinearNormalised: p.LinearNormalised(),
		Text:             p.UIText(),
		DeviceValue:      p.Device().Value(),
		Address:          p.Device().Address(),
		Settings:         p.Settings(),
	}
}

// handleListParameters returns every parameter, fixed ones first.
// ?dynamic=true restricts the list to configuration-defined parameters.
func (s *Server) handleListParameters(w http.ResponseWriter, r *http.Request) {
	params := s.registry.Parameters()
	if r.URL.Query().Get("dynamic") == "true" {
		params = s.registry.DynamicParameters()
	}

	views := make([]ParameterView, 0, len(params))
	for _, p := range params {
		views = append(views, s.viewOf(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"parameters": views,
		"count":      len(views),
	})
}

func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupParameter(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(p))
}

// handleSetParameter applies a GUI-side write. The body uses the same schema
// as MQTT commands: exactly one of ui_value, host_value or button.
func (s *Server) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupParameter(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body: "+err.Error())
		return
	}

	cmd, err := control.ParseCommand(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if !cmd.Apply(p) {
		writeConflict(w, "write rejected for parameter "+p.Name())
		return
	}

	writeJSON(w, http.StatusOK, s.viewOf(p))
}

func (s *Server) handleResetParameter(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupParameter(w, r)
	if !ok {
		return
	}
	if !p.ResetToDefault() {
		writeConflict(w, "reset rejected for parameter "+p.Name())
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(p))
}

// lookupParameter resolves the {name} URL parameter, writing a 404 when the
// registry does not know it.
func (s *Server) lookupParameter(w http.ResponseWriter, r *http.Request) (*parameter.Parameter, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeBadRequest(w, "invalid parameter name")
		return nil, false
	}

	p, err := s.registry.Parameter(name)
	if errors.Is(err, registry.ErrNotFound) {
		writeNotFound(w, "parameter not found: "+name)
		return nil, false
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return nil, false
	}
	return p, true
}
