package main

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	. "github.com/elijahnyp/shutter_control/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

// publishClient records publishes; everything else is unused here.
type publishClient struct {
	MQTT.Client
	mu        sync.Mutex
	published map[string]string
}

func (c *publishClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.published == nil {
		c.published = make(map[string]string)
	}
	c.published[topic] = payload.(string)
	return doneToken{}
}

func TestAdvertiseHA(t *testing.T) {
	Config.Set("ha_prefix", "homeassistant")
	power, direction, gpio := 6, 12, 17
	m := Model{
		ControlledRoomIds: []string{"living"},
		Rooms: []Room{
			{
				Id:    "living",
				Label: "Living",
				Shutters: []Shutter{{
					Id: "south", Label: "South", PowerGpio: &power, DirectionGpio: &direction, FullCloseMs: 20000,
				}},
				Windows: []Window{
					{Id: "door", Gpio: &gpio, AffectsShutter: "south"},
					{Id: "remote", AffectsShutter: "south"},
				},
			},
			{Id: "kitchen", Shutters: []Shutter{{Id: "east"}}},
		},
	}

	client := &publishClient{}
	advertiseHA(m, client)

	require.Len(t, client.published, 2)

	var cover HACoverAdvertisement
	require.NoError(t, json.Unmarshal([]byte(client.published["homeassistant/cover/living_south/config"]), &cover))
	assert.Equal(t, "Living South", cover.Name)
	assert.Equal(t, "room/living/shutters/south/movement", cover.CommandTopic)
	assert.Equal(t, "room/living/shutters/south/status", cover.PositionTopic)

	var contact HAContactAdvertisement
	require.NoError(t, json.Unmarshal([]byte(client.published["homeassistant/binary_sensor/living_door/config"]), &contact))
	assert.Equal(t, "Living door", contact.Name)
	assert.Equal(t, "room/living/windows/door/status", contact.StateTopic)
}
