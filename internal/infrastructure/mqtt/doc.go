// Package mqtt provides MQTT client connectivity for the ScopeSync service.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - The ScopeSync topic hierarchy (see Topics)
//
// MQTT is the control surface for UI panels and plugin-host adapters that
// are not linked in-process: parameter state is published retained,
// parameter and host slot writes arrive as commands.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("command: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.PublishRetained(client.Topics().State("Cutoff"), []byte(`{"ui_value":440}`))
package mqtt
