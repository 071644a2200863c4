package util

import (
	"encoding/json"
	"fmt"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

type HAAvailability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

type HADeviceSpec struct {
	Name        string   `json:"name"`
	Identifiers []string `json:"ids"`
}

// HACoverAdvertisement is the discovery config of a shutter. Our position 0
// is fully open, so the open/closed positions are inverted for HA.
type HACoverAdvertisement struct { //nolint:govet // struct layout follows the discovery document
	Availability   []HAAvailability `json:"availability"`
	Device         HADeviceSpec     `json:"device"`
	UniqueID       string           `json:"uniq_id"`
	Name           string           `json:"name"`
	CommandTopic   string           `json:"command_topic"`
	PositionTopic  string           `json:"position_topic"`
	PayloadOpen    string           `json:"payload_open"`
	PayloadClose   string           `json:"payload_close"`
	PayloadStop    string           `json:"payload_stop"`
	PositionOpen   int              `json:"position_open"`
	PositionClosed int              `json:"position_closed"`
	ValueTemplate  string           `json:"position_template"`
	DeviceClass    string           `json:"device_class"`
	Qos            int              `json:"qos"`
}

// HAContactAdvertisement is the discovery config of a window contact.
type HAContactAdvertisement struct { //nolint:govet // struct layout follows the discovery document
	Availability  []HAAvailability `json:"availability"`
	Device        HADeviceSpec     `json:"device"`
	UniqueID      string           `json:"uniq_id"`
	Name          string           `json:"name"`
	StateTopic    string           `json:"state_topic"`
	ValueTemplate string           `json:"value_template"`
	PayloadOn     string           `json:"payload_on"`
	PayloadOff    string           `json:"payload_off"`
	DeviceClass   string           `json:"device_class"`
	Qos           int              `json:"qos"`
}

func toJson(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		Logger.Error().Msgf("Error marshalling discovery config: %v", err)
		return ""
	}
	return string(data)
}

func (ha HACoverAdvertisement) ToJson() string   { return toJson(ha) }
func (ha HAContactAdvertisement) ToJson() string { return toJson(ha) }

func availability() []HAAvailability {
	return []HAAvailability{{
		Topic:               Config.GetString("online_topic"),
		PayloadAvailable:    "online",
		PayloadNotAvailable: "offline",
	}}
}

func device() HADeviceSpec {
	return HADeviceSpec{
		Name:        "shutter_control",
		Identifiers: []string{"shutter_control_" + Config.GetString("id_base")},
	}
}

const valueTemplate = "{{ value_json.value }}"

func ConstructHACover(uniqueID, name, commandTopic, positionTopic string) HACoverAdvertisement {
	return HACoverAdvertisement{
		Availability:   availability(),
		Device:         device(),
		UniqueID:       "shutter-" + uniqueID,
		Name:           name,
		CommandTopic:   commandTopic,
		PositionTopic:  positionTopic,
		PayloadOpen:    `{"value":"up"}`,
		PayloadClose:   `{"value":"down"}`,
		PayloadStop:    `{"value":"stop"}`,
		PositionOpen:   0,
		PositionClosed: 100,
		ValueTemplate:  valueTemplate,
		DeviceClass:    "shutter",
		Qos:            int(qos()),
	}
}

func ConstructHAContact(uniqueID, name, stateTopic string) HAContactAdvertisement {
	return HAContactAdvertisement{
		Availability:  availability(),
		Device:        device(),
		UniqueID:      "window-" + uniqueID,
		Name:          name,
		StateTopic:    stateTopic,
		ValueTemplate: valueTemplate,
		PayloadOn:     "open",
		PayloadOff:    "closed",
		DeviceClass:   "window",
		Qos:           int(qos()),
	}
}

// PublishHA publishes one discovery config under ha_prefix.
func PublishHA(client MQTT.Client, component, objectID, config string) error {
	topic := fmt.Sprintf("%s/%s/%s/config", Config.GetString("ha_prefix"), component, objectID)
	if token := client.Publish(topic, 0, true, config); token.Wait() && token.Error() != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, token.Error())
	}
	return nil
}
