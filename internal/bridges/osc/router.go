package osc

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bcmodular/scopesync-core/internal/parameter"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Sender transmits one message to the device.
type Sender interface {
	Send(address string, args ...any) error
}

// Router delivers device messages to the listener registered at their exact
// address and forwards outgoing messages to a Sender.
//
// Thread Safety: All methods are safe for concurrent use.
type Router struct {
	mu     sync.RWMutex
	routes map[string]parameter.Listener
	sender Sender

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRouter creates a Router. sender may be nil until SetSender is called.
func NewRouter(sender Sender) *Router {
	return &Router{
		routes: make(map[string]parameter.Listener),
		sender: sender,
	}
}

// SetSender replaces the outgoing transport.
func (r *Router) SetSender(sender Sender) {
	r.mu.Lock()
	r.sender = sender
	r.mu.Unlock()
}

// Register binds a listener to an address. Only one listener may hold an
// address at a time.
func (r *Router) Register(address string, l parameter.Listener) error {
	if !validAddress(address) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.routes[address]; taken {
		return fmt.Errorf("%w: %s", parameter.ErrAddressInUse, address)
	}
	r.routes[address] = l
	return nil
}

// Unregister removes the listener at an address. Unknown addresses are ignored.
func (r *Router) Unregister(address string) {
	r.mu.Lock()
	delete(r.routes, address)
	r.mu.Unlock()
}

// Send forwards a message to the device.
func (r *Router) Send(address string, args ...any) error {
	r.mu.RLock()
	sender := r.sender
	r.mu.RUnlock()

	if sender == nil {
		return ErrNotConnected
	}
	if err := sender.Send(address, args...); err != nil {
		return fmt.Errorf("sending %s: %w", address, err)
	}
	return nil
}

// Dispatch delivers an incoming message to the listener at its address.
//
// Returns:
//   - bool: false when no listener holds the address
func (r *Router) Dispatch(address string, args []any) bool {
	r.mu.RLock()
	l, ok := r.routes[address]
	r.mu.RUnlock()

	if !ok {
		r.logDebug("unrouted message dropped", "address", address, "args", len(args))
		return false
	}

	l(address, args)
	return true
}

// Routes returns the registered addresses in sorted order.
func (r *Router) Routes() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.routes))
	for addr := range r.routes {
		out = append(out, addr)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

func validAddress(address string) bool {
	return strings.HasPrefix(address, "/") && !strings.ContainsAny(address, " #*,?[]{}")
}

// SetLogger sets the logger for this router.
func (r *Router) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Router) logDebug(msg string, keysAndValues ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
