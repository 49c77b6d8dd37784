// Package mqtt provides MQTT connectivity for the MAX! Cube bridge.
//
// MQTT is the bus between the bridge and the home-automation host:
//
//	Host (entities) ↔ MQTT Broker ↔ MAX! Cube bridge ↔ gateways (TCP)
//
// The bridge publishes notifications, platform activation and gateway state,
// and subscribes to update requests from entities. Topic builders live in
// Topics so every publisher and subscriber agrees on names.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllGatewayUpdateRequests(), 1,
//	    func(topic string, payload []byte) error {
//	        host := mqtt.Topics{}.HostFromTopic(topic)
//	        ...
//	    })
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) outside a trusted LAN
//   - Supply the broker password via MAXCUBE_MQTT_PASSWORD
package mqtt
