package control

import (
	"testing"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/mqtt"
)

func TestHostPublisher(t *testing.T) {
	client := NewMockMQTTClient()
	host := NewHostPublisher(client, mqtt.NewTopics("rack"))

	host.UpdateListeners(3, 0.25)
	host.BeginGesture(3)
	host.EndGesture(3)

	values := client.PublishedTo("rack/host/3/value")
	if len(values) != 1 || string(values[0].Payload) != "0.25" {
		t.Fatalf("value messages = %+v, want one 0.25", values)
	}
	if values[0].Retained {
		t.Error("host values should not be retained")
	}

	gestures := client.PublishedTo("rack/host/3/gesture")
	if len(gestures) != 2 || string(gestures[0].Payload) != GestureBegin || string(gestures[1].Payload) != GestureEnd {
		t.Errorf("gesture messages = %+v, want begin then end", gestures)
	}
}

func TestHostPublisherDisconnected(t *testing.T) {
	client := NewMockMQTTClient()
	client.SetConnected(false)
	host := NewHostPublisher(client, mqtt.Topics{})

	host.UpdateListeners(0, 1)
	host.BeginGesture(0)

	if n := len(client.PublishedTo("scopesync/host/0/value")) + len(client.PublishedTo("scopesync/host/0/gesture")); n != 0 {
		t.Errorf("published %d messages while disconnected", n)
	}
}

func TestHostPublisherNilClient(t *testing.T) {
	host := NewHostPublisher(nil, mqtt.Topics{})
	host.UpdateListeners(0, 1)
	host.EndGesture(0)
}
