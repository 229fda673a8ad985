package mqtt

import (
	"fmt"
	"strings"
)

const (
	discoveryPrefix = "homeassistant"
	statePrefix     = "winix"

	// SetTopic matches every command topic.
	SetTopic = statePrefix + "/+/set/+"
)

// set segments understood by the humidifier entity; anything else is a
// service name with a JSON body.
const (
	setPower    = "power"
	setMode     = "mode"
	setHumidity = "humidity"
)

func baseTopic(slug string) string {
	return fmt.Sprintf("%s/%s", statePrefix, slug)
}

// StateTopic is where the value of one attribute of a device is kept.
func StateTopic(slug, attribute string) string {
	return fmt.Sprintf("%s/%s/state", baseTopic(slug), attribute)
}

func humidifierConfigTopic(slug string) string {
	return fmt.Sprintf("%s/humidifier/%s/config", discoveryPrefix, slug)
}

func sensorConfigTopic(slug, sensor string) string {
	return fmt.Sprintf("%s/sensor/%s_%s/config", discoveryPrefix, slug, sensor)
}

// parseSetTopic splits winix/{slug}/set/{command}.
func parseSetTopic(topic string) (slug, command string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != statePrefix || parts[2] != "set" || parts[1] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("unexpected command topic %q", topic)
	}
	return parts[1], parts[3], nil
}
