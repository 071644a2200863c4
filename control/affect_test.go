package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elijahnyp/shutter_control/util"
)

func TestBuildAffectMaps(t *testing.T) {
	a := BuildAffectMaps(livingRoom())

	s, ok := a.ShutterForButton("wall")
	assert.True(t, ok)
	assert.Equal(t, "south", s)
	_, ok = a.ShutterForButton("spare")
	assert.False(t, ok)

	s, _ = a.ShutterForWindow("door")
	assert.Equal(t, "south", s)
	s, _ = a.ShutterForWindow("westwin")
	assert.Equal(t, "west", s)
}

func TestBuildAffectMaps_Conflicts(t *testing.T) {
	room := util.Room{
		Id: "r",
		Shutters: []util.Shutter{
			{Id: "a", TriggerButtons: []string{"b"}, TriggerWindows: []string{"w"}},
			{Id: "c", TriggerButtons: []string{"b"}},
		},
		Buttons: []util.Button{{Id: "b"}},
		Windows: []util.Window{{Id: "w", AffectsShutter: "c"}},
	}
	a := BuildAffectMaps(room)

	// later shutter wins the button; the window's own setting wins
	assert.Equal(t, map[string]string{"b": "c"}, a.ButtonShutter)
	assert.Equal(t, map[string]string{"w": "c"}, a.WindowShutter)
}
