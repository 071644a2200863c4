package util

import (
	"errors"
	"fmt"
	"slices"

	"github.com/elijahnyp/shutter_control/state"
)

const DefaultMaxPosition = 100

// Model is the static description of the dwelling, loaded once at startup.
type Model struct {
	ControlledRoomIds []string `mapstructure:"controlledRoomIds"`
	Rooms             []Room   `mapstructure:"rooms"`
}

type Room struct {
	Id       string    `mapstructure:"id"`
	Label    string    `mapstructure:"label"`
	Shutters []Shutter `mapstructure:"shutters"`
	Buttons  []Button  `mapstructure:"buttons"`
	Windows  []Window  `mapstructure:"windows"`
}

type Shutter struct {
	Id             string   `mapstructure:"id"`
	Label          string   `mapstructure:"label"`
	TriggerButtons []string `mapstructure:"triggerButtons"`
	TriggerWindows []string `mapstructure:"triggerWindows"`
	SwitchGpio     *int     `mapstructure:"switchGpio"`
	PowerGpio      *int     `mapstructure:"powerGpio"`
	DirectionGpio  *int     `mapstructure:"directionGpio"`
	FullCloseMs    int      `mapstructure:"fullCloseMs"`
	MaxPosition    *int     `mapstructure:"maxPosition"`
}

type Button struct {
	Id       string `mapstructure:"id"`
	Label    string `mapstructure:"label"`
	Gpio     *int   `mapstructure:"gpio"`
	Action   string `mapstructure:"action"`
	Interval int    `mapstructure:"interval"`
	Active   *bool  `mapstructure:"active"`
}

type Window struct {
	Id             string `mapstructure:"id"`
	Label          string `mapstructure:"label"`
	Gpio           *int   `mapstructure:"gpio"`
	AffectsShutter string `mapstructure:"affectsShutter"`
	Interval       int    `mapstructure:"interval"`
}

// Max is the configured travel limit, 100 when unset.
func (s Shutter) Max() int {
	if s.MaxPosition == nil {
		return DefaultMaxPosition
	}
	return *s.MaxPosition
}

// IsActive defaults to true when the config does not say otherwise.
func (b Button) IsActive() bool {
	return b.Active == nil || *b.Active
}

// HasSensor reports whether the window has a locally wired contact.
func (w Window) HasSensor() bool {
	return w.Gpio != nil
}

func (r Room) FindShutter(id string) (Shutter, bool) {
	for _, s := range r.Shutters {
		if s.Id == id {
			return s, true
		}
	}
	return Shutter{}, false
}

func (r Room) FindButton(id string) (Button, bool) {
	for _, b := range r.Buttons {
		if b.Id == id {
			return b, true
		}
	}
	return Button{}, false
}

func (r Room) FindWindow(id string) (Window, bool) {
	for _, w := range r.Windows {
		if w.Id == id {
			return w, true
		}
	}
	return Window{}, false
}

// ControlledRooms returns the rooms this process instantiates, in config order.
func (m Model) ControlledRooms() []Room {
	var rooms []Room
	for _, room := range m.Rooms {
		if slices.Contains(m.ControlledRoomIds, room.Id) {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

func (m *Model) BuildModel() error {
	if !Config.IsSet("controlledRoomIds") {
		return fmt.Errorf("%w: controlledRoomIds is not set", ErrConfigInvalid)
	}
	if !Config.IsSet("rooms") {
		return fmt.Errorf("%w: rooms is not set", ErrConfigInvalid)
	}
	if err := Config.Unmarshal(m); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return m.Validate()
}

// Validate checks the model shape and every cross reference. All problems
// are reported together. A button claimed by two shutters is only a warning:
// the later shutter wins.
func (m Model) Validate() error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	roomIds := make(map[string]bool)
	for i, room := range m.Rooms {
		if room.Id == "" {
			fail("rooms[%d]: missing id", i)
			continue
		}
		if roomIds[room.Id] {
			fail("room %s: duplicate id", room.Id)
		}
		roomIds[room.Id] = true
		problems = append(problems, validateRoom(room)...)
	}
	for _, id := range m.ControlledRoomIds {
		if !roomIds[id] {
			fail("controlledRoomIds: room %s is not configured", id)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(problems...))
	}
	return nil
}

func validateRoom(room Room) []error {
	var problems []error
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf("room %s: "+format, append([]any{room.Id}, args...)...))
	}

	seen := make(map[string]bool)
	unique := func(kind, id string, idx int) bool {
		if id == "" {
			fail("%s[%d]: missing id", kind, idx)
			return false
		}
		if seen[kind+"/"+id] {
			fail("%s %s: duplicate id", kind, id)
			return false
		}
		seen[kind+"/"+id] = true
		return true
	}

	claimed := make(map[string]string)
	for i, s := range room.Shutters {
		if !unique("shutter", s.Id, i) {
			continue
		}
		if s.PowerGpio == nil {
			fail("shutter %s: missing powerGpio", s.Id)
		}
		if s.DirectionGpio == nil {
			fail("shutter %s: missing directionGpio", s.Id)
		}
		if s.FullCloseMs <= 0 {
			fail("shutter %s: fullCloseMs must be positive", s.Id)
		}
		if s.Max() < 0 || s.Max() > 100 {
			fail("shutter %s: maxPosition %d out of range 0..100", s.Id, s.Max())
		}
		for _, b := range s.TriggerButtons {
			if _, ok := room.FindButton(b); !ok {
				fail("shutter %s: trigger button %s does not exist", s.Id, b)
				continue
			}
			if prev, ok := claimed[b]; ok && prev != s.Id {
				Logger.Warn().Str("room", room.Id).Str("button", b).
					Msgf("button claimed by shutters %s and %s; %s wins", prev, s.Id, s.Id)
			}
			claimed[b] = s.Id
		}
		for _, w := range s.TriggerWindows {
			if _, ok := room.FindWindow(w); !ok {
				fail("shutter %s: trigger window %s does not exist", s.Id, w)
			}
		}
	}
	for i, b := range room.Buttons {
		if !unique("button", b.Id, i) {
			continue
		}
		if b.Gpio == nil {
			fail("button %s: missing gpio", b.Id)
		}
		if _, ok := state.ParseMovement(b.Action); !ok {
			fail("button %s: action %q is not one of up, down, stop, toggle", b.Id, b.Action)
		}
		if b.Interval < 0 {
			fail("button %s: negative interval", b.Id)
		}
	}
	for i, w := range room.Windows {
		if !unique("window", w.Id, i) {
			continue
		}
		if w.AffectsShutter != "" {
			if _, ok := room.FindShutter(w.AffectsShutter); !ok {
				fail("window %s: affected shutter %s does not exist", w.Id, w.AffectsShutter)
			}
		}
		if w.Interval < 0 {
			fail("window %s: negative interval", w.Id)
		}
	}
	return problems
}
