package registry

import (
	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// AddObserver registers o for every parameter change and returns a function
// that removes it.
func (r *Registry) AddObserver(o parameter.Observer) (remove func()) {
	r.observerMu.Lock()
	id := r.nextObserverID
	r.nextObserverID++
	r.observers[id] = o
	r.observerMu.Unlock()

	return func() {
		r.observerMu.Lock()
		delete(r.observers, id)
		r.observerMu.Unlock()
	}
}

// OnParameterChanged implements parameter.Observer for the registry's own
// parameters. Local changes of parameters with a scope code are mirrored into
// the async bridge before observers are notified.
func (r *Registry) OnParameterChanged(c parameter.Change) {
	if r.opts.Bridge != nil && c.Source != parameter.SourceDevice {
		if code := r.ScopeCodeOf(c.Name); code != "" {
			if err := r.opts.Bridge.SetValueByCode(code, int32(c.DeviceValue)); err != nil {
				r.logDebug("async bridge update failed", "name", c.Name, "error", err)
			}
		}
	}

	r.observerMu.RLock()
	observers := make([]parameter.Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	r.observerMu.RUnlock()

	for _, o := range observers {
		o.OnParameterChanged(c)
	}
}
