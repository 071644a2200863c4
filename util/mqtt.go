package util

import (
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

var Client MQTT.Client

var (
	subscriptions   map[string]MQTT.MessageHandler
	connectHandlers map[string]func(MQTT.Client)
	registryMu      sync.Mutex
)

const defaultTokenTimeout = 10 * time.Second

var connectHandler MQTT.OnConnectHandler = func(client MQTT.Client) {
	Logger.Info().Msg("Connected")
	subscribe()
	client.Publish(Config.GetString("online_topic"), 0, true, "online")
	registryMu.Lock()
	handlers := make([]func(MQTT.Client), 0, len(connectHandlers))
	for _, handler := range connectHandlers {
		handlers = append(handlers, handler)
	}
	registryMu.Unlock()
	for _, handler := range handlers {
		handler(client)
	}
}

func RegisterMQTTConnectHook(name string, handler func(MQTT.Client)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if connectHandlers == nil {
		connectHandlers = make(map[string]func(client MQTT.Client))
	}
	if handler == nil {
		delete(connectHandlers, name)
	} else {
		connectHandlers[name] = handler
	}
}

func qos() byte {
	q := Config.GetInt("qos")
	if q < 0 || q > 2 {
		return 1
	}
	return byte(q)
}

// subscribe restores every registered subscription after a (re)connect.
func subscribe() {
	registryMu.Lock()
	subs := make(map[string]MQTT.MessageHandler, len(subscriptions))
	for topic, handler := range subscriptions {
		subs[topic] = handler
	}
	registryMu.Unlock()
	for topic, handler := range subs {
		if token := Client.Subscribe(topic, qos(), handler); token.Wait() && token.Error() != nil {
			Logger.Error().Msgf("Error Subscribing to %s: %v", topic, token.Error())
		}
	}
}

func RegisterMQTTSubscription(topic string, handler MQTT.MessageHandler) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if subscriptions == nil {
		subscriptions = make(map[string]MQTT.MessageHandler)
	}
	if handler == nil {
		delete(subscriptions, topic)
	} else {
		subscriptions[topic] = handler
	}
}

// SubscribeNow registers the subscription for reconnects and, when
// connected, subscribes immediately and waits for the broker's ack. Retained
// messages for the topic are delivered to handler from then on.
func SubscribeNow(topic string, handler MQTT.MessageHandler) error {
	RegisterMQTTSubscription(topic, handler)
	if Client == nil || !Client.IsConnected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, topic)
	}
	token := Client.Subscribe(topic, qos(), handler)
	if !token.WaitTimeout(defaultTokenTimeout) {
		return fmt.Errorf("%w: subscribe %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	Logger.Debug().Str("topic", topic).Msg("subscribed")
	return nil
}

func receiver(client MQTT.Client, message MQTT.Message) {
	Logger.Warn().Msgf("Received message on %v but no handler", message.Topic())
}

var connectLostHandler MQTT.ConnectionLostHandler = func(client MQTT.Client, err error) {
	Logger.Warn().Msgf("Connect lost: %v", err)
}

func MqttInit() {
	opts := MQTT.NewClientOptions()
	opts.AddBroker(Config.GetString("broker_uri"))
	opts.SetClientID(Config.GetString("id_base") + "_" + GetRandString(6))
	opts.SetUsername(Config.GetString("username"))
	opts.SetPassword(Config.GetString("password"))
	opts.SetCleanSession(Config.GetBool("cleansess"))
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(true)
	opts.SetWill(Config.GetString("online_topic"), "offline", 0, true)
	opts.OnConnectionLost = connectLostHandler
	opts.OnConnect = connectHandler
	opts.SetDefaultPublishHandler(receiver)

	if Client != nil {
		Logger.Debug().Msg("Client exists - destroying")
		if Client.IsConnected() {
			Client.Disconnect(1000)
		}
		Client = nil
	}

	Client = MQTT.NewClient(opts)

	if token := Client.Connect(); token.Wait() && token.Error() != nil {
		panic(token.Error())
	}
}

// MqttClose publishes the graceful offline status and disconnects.
func MqttClose() {
	if Client == nil || !Client.IsConnected() {
		return
	}
	Client.Publish(Config.GetString("online_topic"), 0, true, "offline").WaitTimeout(time.Second)
	Client.Disconnect(1000)
}
