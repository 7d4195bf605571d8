package osc

import (
	"fmt"
	"sync"

	"github.com/bcmodular/scopesync-core/internal/async"
)

// Async frame addresses.
const (
	// AsyncFrameAddress receives one device async frame per message:
	// device instance, config UID, scope input switch, then slot values.
	AsyncFrameAddress = "/scopesync/async"

	// AsyncReplyAddress carries the reply: loaded flag, the link state
	// (instance, config UID, snapshot, sync, 4 host octets, 2 ports) and
	// the output slot values.
	AsyncReplyAddress = "/scopesync/async/reply"

	asyncHeaderLen = 3
)

// FrameProcessor resolves one async frame. *async.Processor satisfies it.
type FrameProcessor interface {
	Process(f async.Frame) async.Output
}

// AsyncEndpoint decodes async frames arriving on the router, runs them
// through a FrameProcessor one at a time and sends the reply back.
type AsyncEndpoint struct {
	router    *Router
	processor FrameProcessor

	mu     sync.Mutex
	frames uint64
}

// NewAsyncEndpoint registers the frame address on the router.
func NewAsyncEndpoint(r *Router, p FrameProcessor) (*AsyncEndpoint, error) {
	e := &AsyncEndpoint{router: r, processor: p}
	if err := r.Register(AsyncFrameAddress, e.handle); err != nil {
		return nil, fmt.Errorf("registering async endpoint: %w", err)
	}
	return e, nil
}

// Frames returns the number of frames processed.
func (e *AsyncEndpoint) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Close unregisters the frame address.
func (e *AsyncEndpoint) Close() {
	e.router.Unregister(AsyncFrameAddress)
}

func (e *AsyncEndpoint) handle(address string, args []any) {
	frame, ok := DecodeFrame(args)
	if !ok {
		e.router.logDebug("malformed async frame dropped", "address", address, "args", len(args))
		return
	}

	e.mu.Lock()
	out := e.processor.Process(frame)
	e.frames++
	e.mu.Unlock()

	if err := e.router.Send(AsyncReplyAddress, EncodeOutput(out)...); err != nil {
		e.router.logDebug("async reply failed", "error", err)
	}
}

// DecodeFrame reads a frame from OSC arguments. Every argument must be an
// integer; at least the three header values are required.
func DecodeFrame(args []any) (async.Frame, bool) {
	if len(args) < asyncHeaderLen {
		return async.Frame{}, false
	}

	ints := make([]int32, len(args))
	for i, a := range args {
		v, ok := toInt32(a)
		if !ok {
			return async.Frame{}, false
		}
		ints[i] = v
	}

	return async.Frame{
		DeviceInstance:    ints[0],
		ConfigUID:         ints[1],
		EnableScopeInputs: ints[2],
		Values:            ints[asyncHeaderLen:],
	}, true
}

// EncodeOutput lays out a reply as OSC int32 arguments.
func EncodeOutput(out async.Output) []any {
	var loaded int32
	if out.Loaded {
		loaded = 1
	}

	l := out.Link
	args := make([]any, 0, 12+len(out.Values))
	args = append(args,
		loaded,
		l.DeviceInstance, l.ConfigUID, l.Snapshot, l.SyncScope,
		l.PluginHost[0], l.PluginHost[1], l.PluginHost[2], l.PluginHost[3],
		l.PluginListenerPort, l.ScopeSyncListenerPort,
	)
	for _, v := range out.Values {
		args = append(args, v)
	}
	return args
}

func toInt32(a any) (int32, bool) {
	switch v := a.(type) {
	case int32:
		return v, true
	case int64:
		return int32(v), true
	case int:
		return int32(v), true
	default:
		return 0, false
	}
}
