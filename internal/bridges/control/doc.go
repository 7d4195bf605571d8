// Package control exposes the parameter registry over MQTT.
//
// It has three parts:
//
//   - Bridge publishes retained parameter state on every accepted write and
//     accepts parameter commands and host slot writes.
//   - HostPublisher implements parameter.HostAdapter by publishing host slot
//     values and gesture brackets, for hosts that follow automation over MQTT.
//   - HealthReporter publishes a periodic retained health message.
//
// Topic Layout (prefix defaults to "scopesync"):
//
//	{prefix}/state/{name}          retained StateMessage
//	{prefix}/command/{name}        CommandMessage
//	{prefix}/host/{slot}/value     host value as float text
//	{prefix}/host/{slot}/gesture   "begin" or "end"
//	{prefix}/host/{slot}/set       host value as float text
//	{prefix}/health                retained HealthMessage
//
// Example:
//
//	host := control.NewHostPublisher(mqttClient, topics)
//	reg, _ := registry.New(registry.Options{Host: host, ...})
//	bridge, err := control.NewBridge(control.BridgeOptions{
//	    MQTTClient: mqttClient,
//	    Registry:   reg,
//	    Topics:     topics,
//	})
//	if err := bridge.Start(ctx); err != nil {
//	    return err
//	}
//	defer bridge.Stop()
package control
