package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMovement(t *testing.T) {
	for _, s := range []string{"up", "down", "stop", "toggle"} {
		m, ok := ParseMovement(s)
		assert.True(t, ok, s)
		assert.Equal(t, Movement(s), m)
	}
	for _, s := range []string{"", "UP", "open", "close"} {
		_, ok := ParseMovement(s)
		assert.False(t, ok, s)
	}
}

func TestWindowLimits(t *testing.T) {
	assert.Equal(t, 100, ClosedWindowMax)
	assert.Less(t, OpenWindowMax, ClosedWindowMax)
}

func TestRoomState_JSON(t *testing.T) {
	rs := RoomState{
		Id:       "living",
		Shutters: []ShutterState{{Id: "south", Position: 40, Max: 80, Movement: Down}},
		Windows:  []WindowState{{Id: "door", Contact: Open, Remote: true}},
	}
	data, err := json.Marshal(rs)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	shutter := doc["shutters"].([]any)[0].(map[string]any)
	assert.Equal(t, "down", shutter["movement"])
	assert.EqualValues(t, 40, shutter["position"])
	window := doc["windows"].([]any)[0].(map[string]any)
	assert.Equal(t, "open", window["contact"])
	assert.Equal(t, true, window["remote"])
}
