package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the flat bridge scheme: graylogic/{category}/{protocol}/{id}.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixCore is the base for core topics (alerts).
	TopicPrefixCore = "graylogic/core"

	// Protocol is the protocol segment used by this bridge.
	Protocol = "maxcube"
)

// Topics provides builders for the bridge's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.GatewayState("192.168.1.50")
//	// Returns: "graylogic/state/maxcube/192.168.1.50"
type Topics struct{}

// GatewayState returns the retained state topic for one gateway.
//
// Example: graylogic/state/maxcube/192.168.1.50
func (Topics) GatewayState(host string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, Protocol, host)
}

// GatewayUpdateRequest returns the topic entities publish to when they want
// a gateway's data refreshed.
//
// Example: graylogic/request/maxcube/192.168.1.50
func (Topics) GatewayUpdateRequest(host string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefixBridge, Protocol, host)
}

// AllGatewayUpdateRequests matches update requests for every gateway.
//
// Pattern: graylogic/request/maxcube/+
func (Topics) AllGatewayUpdateRequests() string {
	return fmt.Sprintf("%s/request/%s/+", TopicPrefixBridge, Protocol)
}

// Platform returns the retained activation topic for an entity platform.
//
// Example: graylogic/discovery/maxcube/climate
func (Topics) Platform(platform string) string {
	return fmt.Sprintf("%s/discovery/%s/%s", TopicPrefixBridge, Protocol, platform)
}

// Alert returns the topic for a user-visible notification.
//
// Example: graylogic/core/alert/maxcube_notification
func (Topics) Alert(notificationID string) string {
	return fmt.Sprintf("%s/alert/%s", TopicPrefixCore, notificationID)
}

// BridgeHealth returns the bridge's retained online/offline status topic.
//
// Example: graylogic/health/maxcube
func (Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, Protocol)
}

// HostFromTopic returns the last segment of a state or request topic, which
// is the gateway host. It returns "" when the topic has no separator.
func (Topics) HostFromTopic(topic string) string {
	i := strings.LastIndex(topic, "/")
	if i < 0 {
		return ""
	}
	return topic[i+1:]
}
