package midi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// maxCCValue is the largest 7-bit controller value.
const maxCCValue = 127

// ErrNoPort is returned when no input port name is configured.
var ErrNoPort = errors.New("midi: no input port configured")

// ParameterSource lists the parameters to map.
// *registry.Registry satisfies it.
type ParameterSource interface {
	Parameters() []*parameter.Parameter
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
}

type control struct {
	channel    uint8
	controller uint8
}

// Router maps control changes to parameters.
//
// Thread Safety: All methods are safe for concurrent use.
type Router struct {
	source ParameterSource

	mu     sync.RWMutex
	routes map[control][]*parameter.Parameter

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRouter creates a router and builds its routes from source.
func NewRouter(source ParameterSource) *Router {
	r := &Router{source: source}
	r.Refresh()
	return r
}

// Refresh rebuilds the routes. Call it after parameter definitions are
// reloaded.
func (r *Router) Refresh() {
	routes := make(map[control][]*parameter.Parameter)
	if r.source != nil {
		for _, p := range r.source.Parameters() {
			m := p.Definition().MIDI
			if m == nil {
				continue
			}
			key := control{channel: uint8(m.Channel), controller: uint8(m.Controller)}
			routes[key] = append(routes[key], p)
		}
	}

	r.mu.Lock()
	r.routes = routes
	r.mu.Unlock()
}

// Len returns the number of mapped parameters.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ps := range r.routes {
		n += len(ps)
	}
	return n
}

// HandleMessage applies msg if it is a mapped control change. It returns
// the number of parameters that accepted the value.
func (r *Router) HandleMessage(msg gomidi.Message) int {
	var channel, controller, value uint8
	if !msg.GetControlChange(&channel, &controller, &value) {
		return 0
	}
	return r.Apply(channel, controller, value)
}

// Apply sends a controller value to every parameter mapped to channel and
// controller.
func (r *Router) Apply(channel, controller, value uint8) int {
	r.mu.RLock()
	targets := r.routes[control{channel: channel, controller: controller}]
	r.mu.RUnlock()

	if value > maxCCValue {
		value = maxCCValue
	}
	normalised := float64(value) / maxCCValue

	applied := 0
	for _, p := range targets {
		if p.SetMIDIValue(normalised) {
			applied++
		}
	}
	if len(targets) > 0 {
		r.logDebug("midi control change", "channel", channel, "controller", controller, "value", value, "applied", applied)
	}
	return applied
}

// Listen opens the named input port and routes its messages until ctx is
// cancelled.
func (r *Router) Listen(ctx context.Context, portName string) error {
	if portName == "" {
		return ErrNoPort
	}

	in, err := gomidi.FindInPort(portName)
	if err != nil {
		return fmt.Errorf("finding midi input %q: %w", portName, err)
	}

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, _ int32) {
		r.HandleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("listening on midi input %q: %w", portName, err)
	}
	defer stop()

	r.logInfo("midi input open", "port", in.String(), "mapped", r.Len())
	<-ctx.Done()
	return nil
}

// SetLogger sets the logger for this router.
func (r *Router) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Router) logDebug(msg string, kv ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, kv...)
	}
}

func (r *Router) logInfo(msg string, kv ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()
	if logger != nil {
		logger.Info(msg, kv...)
	}
}
