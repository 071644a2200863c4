package control

import (
	"fmt"
	"strings"

	"github.com/elijahnyp/shutter_control/state"
)

// Topic segments.
const (
	AreaRoom = "room"

	ElementShutters = "shutters"
	ElementButtons  = "buttons"
	ElementWindows  = "windows"

	SubMovement = "movement"
	SubStatus   = "status"
	SubToggle   = "toggle"
	SubInit     = "init"
	SubActive   = "active"
)

// Topics builds the bus topics for room devices.
//
//	Topics{}.ShutterStatus("office", "west")
//	// room/office/shutters/west/status
type Topics struct{}

func (Topics) device(room, element, id, sub string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", AreaRoom, room, element, id, sub)
}

func (t Topics) ShutterMovement(room, shutter string) string {
	return t.device(room, ElementShutters, shutter, SubMovement)
}

func (t Topics) ShutterStatus(room, shutter string) string {
	return t.device(room, ElementShutters, shutter, SubStatus)
}

func (t Topics) ShutterToggle(room, shutter string) string {
	return t.device(room, ElementShutters, shutter, SubToggle)
}

func (t Topics) ShutterInit(room, shutter string) string {
	return t.device(room, ElementShutters, shutter, SubInit)
}

// ShutterCommand is the dedicated command topic form, e.g.
// room/office/shutters/west/up.
func (t Topics) ShutterCommand(room, shutter string, m state.Movement) string {
	return t.device(room, ElementShutters, shutter, string(m))
}

func (t Topics) ButtonActive(room, button string) string {
	return t.device(room, ElementButtons, button, SubActive)
}

func (t Topics) WindowStatus(room, window string) string {
	return t.device(room, ElementWindows, window, SubStatus)
}

// Topic is a parsed room device topic.
type Topic struct {
	Area      string
	AreaId    string
	Element   string
	ElementId string
	SubArea   string
}

// ParseTopic splits a topic into up to five segments and reports whether all
// five were present. Anything beyond the fifth separator stays in SubArea.
func ParseTopic(topic string) (Topic, bool) {
	parts := strings.SplitN(topic, "/", 5)
	var t Topic
	fields := []*string{&t.Area, &t.AreaId, &t.Element, &t.ElementId, &t.SubArea}
	for i, p := range parts {
		*fields[i] = p
	}
	return t, len(parts) == 5
}
