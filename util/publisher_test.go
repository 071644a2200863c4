package util

import (
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(client MQTT.Client) *Publisher {
	p := NewPublisher(8, time.Second)
	p.client = func() MQTT.Client { return client }
	return p
}

func TestNewPublisher(t *testing.T) {
	p := NewPublisher(0, 0)
	assert.Equal(t, 1, cap(p.queue))

	Config.Set("publish_queue", 32)
	Config.Set("publish_timeout_ms", 250)
	defer func() {
		Config.Set("publish_queue", nil)
		Config.Set("publish_timeout_ms", nil)
	}()
	p = NewPublisherFromConfig()
	assert.Equal(t, 32, cap(p.queue))
	assert.Equal(t, 250*time.Millisecond, p.timeout)
}

func TestPublisher_PublishesInOrder(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	p := newTestPublisher(mockClient)

	var mu sync.Mutex
	var seen []PublishJob
	p.OnPublish(func(job PublishJob) {
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
	})
	p.Start()

	p.Publish("room/living/shutters/south/status", map[string]int{"value": 40}, true)
	p.Publish("room/living/shutters/south/movement", map[string]string{"value": "stop"}, true)
	p.Publish("shutter-control/online", "online", false)
	p.Publish("raw", []byte{1, 2}, false)
	p.Stop()

	calls := mockClient.Published()
	require.Len(t, calls, 4)
	assert.Equal(t, "room/living/shutters/south/status", calls[0].Topic)
	assert.Equal(t, []byte(`{"value":40}`), calls[0].Payload)
	assert.True(t, calls[0].Retained)
	assert.Equal(t, []byte(`{"value":"stop"}`), calls[1].Payload)
	assert.Equal(t, []byte("online"), calls[2].Payload)
	assert.False(t, calls[2].Retained)
	assert.Equal(t, []byte{1, 2}, calls[3].Payload)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 4)
}

func TestPublisher_StopDropsLaterMessages(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	p := newTestPublisher(mockClient)
	p.Start()
	p.Stop()
	p.Stop()

	p.Publish("late", "x", false)
	assert.Empty(t, mockClient.Published())
}

func TestPublisher_UnencodablePayload(t *testing.T) {
	mockClient := &MockMQTTClient{connected: true}
	p := newTestPublisher(mockClient)
	p.Start()

	p.Publish("bad", make(chan int), false)
	p.Stop()
	assert.Empty(t, mockClient.Published())
}

func TestProcess_job(t *testing.T) {
	job := PublishJob{Topic: "t", Payload: []byte("p"), Retained: true}

	p := newTestPublisher(nil)
	assert.ErrorIs(t, p.process_job(job), ErrNotConnected)

	p = newTestPublisher(&MockMQTTClient{})
	assert.ErrorIs(t, p.process_job(job), ErrNotConnected)

	p = newTestPublisher(&MockMQTTClient{connected: true, err: errors.New("denied")})
	assert.ErrorIs(t, p.process_job(job), ErrPublishFailed)

	p = newTestPublisher(&MockMQTTClient{connected: true})
	assert.NoError(t, p.process_job(job))
}
