// Package state defines the device controller facades the room controller
// drives. Facades own their physical state machine; callers only see the
// operations and callbacks below.
package state

// Movement is a shutter command or movement notification.
type Movement string

const (
	Up     Movement = "up"
	Down   Movement = "down"
	Stop   Movement = "stop"
	Toggle Movement = "toggle"
)

// ParseMovement accepts the four wire values.
func ParseMovement(s string) (Movement, bool) {
	switch m := Movement(s); m {
	case Up, Down, Stop, Toggle:
		return m, true
	}
	return "", false
}

// Contact is a window or switch circuit reading.
type Contact string

const (
	Open   Contact = "open"
	Closed Contact = "closed"
)

// Travel limits applied to a shutter by its window.
const (
	ClosedWindowMax = 100
	OpenWindowMax   = 80
)

// Shutter drives one motorized shutter. Position 0 is fully open, 100 fully
// closed.
type Shutter interface {
	Up()
	Down()
	Stop()
	Toggle()
	SetMax(n int)
	Close() error
}

// Button is a push button; Start enables edge detection, Stop disables it.
type Button interface {
	Start() error
	Stop() error
}

// ContactSensor watches a window contact.
type ContactSensor interface {
	Start() error
	Stop() error
}

// ShutterOptions configure a Shutter. Callbacks fire asynchronously from the
// facade's own goroutines.
type ShutterOptions struct {
	Location         string
	PowerGpio        int
	DirectionGpio    int
	SwitchGpio       *int
	FullCloseMs      int
	Status           int
	Max              int
	OnStatusUpdate   func(position int)
	OnMovementUpdate func(m Movement)
}

type ButtonOptions struct {
	Location   string
	Gpio       int
	IntervalMs int
	OnClose    func()
}

type ContactOptions struct {
	Location   string
	Gpio       int
	IntervalMs int
	OnChange   func(c Contact)
}

// Factory builds facades. The device package provides the GPIO one; tests
// provide fakes.
type Factory interface {
	NewShutter(opts ShutterOptions) (Shutter, error)
	NewButton(opts ButtonOptions) (Button, error)
	NewContactSensor(opts ContactOptions) (ContactSensor, error)
}
