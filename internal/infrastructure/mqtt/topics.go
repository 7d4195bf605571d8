package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every ScopeSync topic.
const DefaultTopicPrefix = "scopesync"

// Topics builds the ScopeSync MQTT topic hierarchy under a prefix:
//
//	{prefix}/state/{parameter}      retained parameter state
//	{prefix}/command/{parameter}    parameter writes
//	{prefix}/host/{slot}/value      host slot value updates
//	{prefix}/host/{slot}/gesture    host slot gesture begin/end
//	{prefix}/host/{slot}/set        host slot writes
//	{prefix}/health                 retained service health
//	{prefix}/system/status          retained online/offline status (LWT)
//
// The zero value uses DefaultTopicPrefix.
type Topics struct {
	Prefix string
}

// NewTopics returns topic builders for prefix. An empty prefix selects
// DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	return Topics{Prefix: prefix}
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return strings.TrimSuffix(t.Prefix, "/")
}

// Segment makes a parameter name safe for use as one topic level by
// replacing the level separator and wildcards.
func Segment(name string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(name)
}

// =============================================================================
// Parameter Topics
// =============================================================================

// State returns the retained state topic of a parameter.
//
// Example: scopesync/state/Cutoff
func (t Topics) State(name string) string {
	return fmt.Sprintf("%s/state/%s", t.prefix(), Segment(name))
}

// Command returns the command topic of a parameter.
//
// Example: scopesync/command/Cutoff
func (t Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", t.prefix(), Segment(name))
}

// =============================================================================
// Host Slot Topics
// =============================================================================

// HostValue returns the topic carrying a host slot's value updates.
//
// Example: scopesync/host/3/value
func (t Topics) HostValue(slot int) string {
	return fmt.Sprintf("%s/host/%d/value", t.prefix(), slot)
}

// HostGesture returns the topic carrying a host slot's gesture events.
//
// Example: scopesync/host/3/gesture
func (t Topics) HostGesture(slot int) string {
	return fmt.Sprintf("%s/host/%d/gesture", t.prefix(), slot)
}

// HostSet returns the topic a host writes a slot value to.
//
// Example: scopesync/host/3/set
func (t Topics) HostSet(slot int) string {
	return fmt.Sprintf("%s/host/%d/set", t.prefix(), slot)
}

// =============================================================================
// Service Topics
// =============================================================================

// Health returns the retained service health topic.
func (t Topics) Health() string {
	return t.prefix() + "/health"
}

// SystemStatus returns the retained online/offline status topic.
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// =============================================================================
// Wildcard Subscriptions
// =============================================================================

// AllCommands matches every parameter command topic.
func (t Topics) AllCommands() string {
	return t.prefix() + "/command/+"
}

// AllHostSets matches every host slot write topic.
func (t Topics) AllHostSets() string {
	return t.prefix() + "/host/+/set"
}

// AllTopics matches every ScopeSync topic.
func (t Topics) AllTopics() string {
	return t.prefix() + "/#"
}
