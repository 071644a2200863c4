package state

// ShutterState is what the room controller knows about a shutter from the
// facade's notifications.
type ShutterState struct {
	Id       string   `json:"id"`
	Label    string   `json:"label"`
	Position int      `json:"position"`
	Max      int      `json:"max"`
	Movement Movement `json:"movement"`
}

type ButtonState struct {
	Id      string `json:"id"`
	Label   string `json:"label"`
	Active  bool   `json:"active"`
	Affects string `json:"affects,omitempty"`
	Action  string `json:"action"`
}

type WindowState struct {
	Id      string  `json:"id"`
	Label   string  `json:"label"`
	Contact Contact `json:"contact,omitempty"`
	Affects string  `json:"affects,omitempty"`
	Remote  bool    `json:"remote"`
}

// RoomState is a point-in-time view of one room.
type RoomState struct {
	Id       string         `json:"id"`
	Label    string         `json:"label"`
	Shutters []ShutterState `json:"shutters"`
	Buttons  []ButtonState  `json:"buttons"`
	Windows  []WindowState  `json:"windows"`
}
