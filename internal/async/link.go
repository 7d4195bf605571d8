package async

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Link defaults.
const (
	// ConfigUIDIgnoreFrames is how many frames the device's configuration
	// UID is ignored for after a local change has been pushed to it.
	ConfigUIDIgnoreFrames = 30

	// DefaultPluginListenerPort is the port the plugin host listens on.
	DefaultPluginListenerPort = 8002

	// DefaultScopeSyncListenerPort is the port this service listens on.
	DefaultScopeSyncListenerPort = 8001

	// DefaultSyncScopeDelay is how long SyncScope waits before signalling,
	// giving the device time to finish loading.
	DefaultSyncScopeDelay = time.Second
)

// LinkState is what Link hands back to the device for one frame.
type LinkState struct {
	DeviceInstance        int32
	ConfigUID             int32
	Snapshot              int32
	SyncScope             int32
	PluginHost            [4]int32
	PluginListenerPort    int32
	ScopeSyncListenerPort int32
}

// Link holds the out-of-band values exchanged with the device alongside the
// parameter frame. All fields are atomics; Exchange is the device side and
// the remaining methods are the system side.
type Link struct {
	deviceInstance     atomic.Int32
	lastDeviceInstance atomic.Int32

	configUID       atomic.Int32
	scopeConfigUID  atomic.Int32
	ignoreConfigUID atomic.Int32

	snapshot  atomic.Int32
	syncScope atomic.Int32

	pluginHost            [4]atomic.Int32
	pluginListenerPort    atomic.Int32
	scopeSyncListenerPort atomic.Int32

	syncDelay time.Duration
	timerMu   sync.Mutex
	syncTimer *time.Timer
}

// NewLink creates a Link with the plugin host at 127.0.0.1 and the default
// listener ports. A zero syncDelay uses DefaultSyncScopeDelay.
func NewLink(syncDelay time.Duration) *Link {
	if syncDelay <= 0 {
		syncDelay = DefaultSyncScopeDelay
	}
	l := &Link{syncDelay: syncDelay}
	l.SetPluginHostOctets(127, 0, 0, 1)
	l.pluginListenerPort.Store(DefaultPluginListenerPort)
	l.scopeSyncListenerPort.Store(DefaultScopeSyncListenerPort)
	return l
}

// Exchange processes the link values received in a device frame and returns
// the values to send back.
//
// A device instance that differs from the last one received becomes the
// system's session identifier; otherwise the system's value is sent out.
//
// When the system's configuration UID differs from the one last sent to the
// device, it is pushed and the device's UID is ignored for the next
// ConfigUIDIgnoreFrames frames. Otherwise a device-side change of UID is
// adopted by both ends.
func (l *Link) Exchange(deviceInstance, configUID int32) LinkState {
	if deviceInstance != l.lastDeviceInstance.Load() {
		l.lastDeviceInstance.Store(deviceInstance)
		l.deviceInstance.Store(deviceInstance)
	} else {
		l.lastDeviceInstance.Store(l.deviceInstance.Load())
	}

	if l.scopeConfigUID.Load() != l.configUID.Load() {
		l.scopeConfigUID.Store(l.configUID.Load())
		l.ignoreConfigUID.Store(ConfigUIDIgnoreFrames)
	} else if l.ignoreConfigUID.Load() == 0 {
		if configUID != l.scopeConfigUID.Load() {
			l.scopeConfigUID.Store(configUID)
			l.configUID.Store(configUID)
		}
	} else {
		l.ignoreConfigUID.Add(-1)
	}

	return LinkState{
		DeviceInstance: l.lastDeviceInstance.Load(),
		ConfigUID:      l.scopeConfigUID.Load(),
		Snapshot:       l.snapshot.Load(),
		SyncScope:      l.syncScope.Load(),
		PluginHost: [4]int32{
			l.pluginHost[0].Load(),
			l.pluginHost[1].Load(),
			l.pluginHost[2].Load(),
			l.pluginHost[3].Load(),
		},
		PluginListenerPort:    l.pluginListenerPort.Load(),
		ScopeSyncListenerPort: l.scopeSyncListenerPort.Load(),
	}
}

// DeviceInstance returns the session identifier.
func (l *Link) DeviceInstance() int {
	return int(l.deviceInstance.Load())
}

// SetDeviceInstance sets the session identifier from the system side.
func (l *Link) SetDeviceInstance(v int) {
	l.deviceInstance.Store(int32(v))
}

// ConfigUID returns the system's configuration UID.
func (l *Link) ConfigUID() int {
	return int(l.configUID.Load())
}

// SetConfigUID records a newly loaded configuration so it is pushed to the
// device on the next frame.
func (l *Link) SetConfigUID(v int) {
	l.configUID.Store(int32(v))
}

// Snapshot asks the device to snapshot its values.
func (l *Link) Snapshot() {
	l.snapshot.Add(1)
}

// SyncScope asks the device to resynchronise after the sync delay. A call
// while a previous one is pending restarts the delay.
func (l *Link) SyncScope() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()

	if l.syncTimer != nil {
		l.syncTimer.Stop()
	}
	l.syncTimer = time.AfterFunc(l.syncDelay, func() {
		l.syncScope.Add(1)
	})
}

// Close stops a pending SyncScope.
func (l *Link) Close() {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()

	if l.syncTimer != nil {
		l.syncTimer.Stop()
		l.syncTimer = nil
	}
}

// SetPluginHostOctets sets the plugin host IPv4 address.
func (l *Link) SetPluginHostOctets(a, b, c, d int32) {
	l.pluginHost[0].Store(a)
	l.pluginHost[1].Store(b)
	l.pluginHost[2].Store(c)
	l.pluginHost[3].Store(d)
}

// SetPluginHostIP sets the plugin host from a dotted IPv4 string.
func (l *Link) SetPluginHostIP(address string) error {
	ip := net.ParseIP(address).To4()
	if ip == nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	l.SetPluginHostOctets(int32(ip[0]), int32(ip[1]), int32(ip[2]), int32(ip[3]))
	return nil
}

// SetPluginListenerPort sets the port the plugin host listens on.
func (l *Link) SetPluginListenerPort(port int) {
	l.pluginListenerPort.Store(int32(port))
}

// SetScopeSyncListenerPort sets the port this service listens on.
func (l *Link) SetScopeSyncListenerPort(port int) {
	l.scopeSyncListenerPort.Store(int32(port))
}
