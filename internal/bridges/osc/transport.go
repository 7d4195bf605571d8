package osc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	goosc "github.com/chabad360/go-osc/osc"
)

// Default device link ports.
const (
	// DefaultListenPort is where the service receives device messages.
	DefaultListenPort = 8002

	// DefaultRemotePort is where the device receives messages.
	DefaultRemotePort = 8001
)

// TransportOptions configures a Transport.
type TransportOptions struct {
	// ListenHost and ListenPort select the local UDP endpoint.
	ListenHost string
	ListenPort int

	// RemoteHost and RemotePort select the device endpoint.
	RemoteHost string
	RemotePort int

	// Router receives incoming messages. Required.
	Router *Router

	Logger Logger
}

// Transport moves OSC packets between a Router and the device over UDP.
//
// Thread Safety: All methods are safe for concurrent use.
type Transport struct {
	router *Router
	listen string

	mu     sync.RWMutex
	client *goosc.Client
	remote string

	logger Logger
}

// NewTransport creates a Transport and attaches it to the router as its
// sender. Call Run to start receiving.
func NewTransport(opts TransportOptions) (*Transport, error) {
	if opts.Router == nil {
		return nil, fmt.Errorf("%w: router is required", ErrInvalidConfig)
	}
	if opts.ListenPort < 0 || opts.ListenPort > 65535 || opts.RemotePort < 0 || opts.RemotePort > 65535 {
		return nil, fmt.Errorf("%w: port out of range", ErrInvalidConfig)
	}
	if opts.ListenPort == 0 {
		opts.ListenPort = DefaultListenPort
	}
	if opts.RemotePort == 0 {
		opts.RemotePort = DefaultRemotePort
	}
	if opts.RemoteHost == "" {
		opts.RemoteHost = "127.0.0.1"
	}

	t := &Transport{
		router: opts.Router,
		listen: net.JoinHostPort(opts.ListenHost, strconv.Itoa(opts.ListenPort)),
		logger: opts.Logger,
	}
	t.SetRemote(opts.RemoteHost, opts.RemotePort)
	opts.Router.SetSender(t)

	return t, nil
}

// SetRemote points outgoing messages at a new device endpoint.
func (t *Transport) SetRemote(host string, port int) {
	t.mu.Lock()
	t.client = goosc.NewClient(host, port)
	t.remote = net.JoinHostPort(host, strconv.Itoa(port))
	t.mu.Unlock()
}

// Remote returns the device endpoint as host:port.
func (t *Transport) Remote() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.remote
}

// Send builds an OSC message from args and sends it to the device.
func (t *Transport) Send(address string, args ...any) error {
	t.mu.RLock()
	client := t.client
	t.mu.RUnlock()

	msg := goosc.NewMessage(address, args...)
	if err := client.Send(msg); err != nil {
		return fmt.Errorf("sending osc message: %w", err)
	}
	return nil
}

// Run receives device messages until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", t.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", t.listen, err)
	}

	d := goosc.NewStandardDispatcher()
	if err := d.AddMsgHandler("*", func(msg *goosc.Message) {
		t.router.Dispatch(msg.Address, msg.Arguments)
	}); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("adding osc dispatcher: %w", err)
	}

	server := &goosc.Server{Dispatcher: d}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close() //nolint:errcheck // Unblocks Serve
		case <-stopped:
		}
	}()

	if t.logger != nil {
		t.logger.Info("osc transport listening", "listen", conn.LocalAddr().String(), "remote", t.Remote())
	}

	err = server.Serve(conn)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("serving osc: %w", err)
	}
	return nil
}
