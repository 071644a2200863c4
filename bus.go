package main

import (
	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/elijahnyp/shutter_control/util"

	"github.com/elijahnyp/shutter_control/control"
)

// busSubscriber subscribes through the shared MQTT client. Subscriptions
// are restored by the connect handler after a reconnect.
type busSubscriber struct{}

func (busSubscriber) Subscribe(topic string, handler func(control.Message)) error {
	return SubscribeNow(topic, func(_ MQTT.Client, msg MQTT.Message) {
		handler(toMessage(msg))
	})
}

func toMessage(msg MQTT.Message) control.Message {
	return control.Message{
		Topic:    msg.Topic(),
		Payload:  msg.Payload(),
		Retained: msg.Retained(),
	}
}
