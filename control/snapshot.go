package control

// Snapshot collects retained device state per room while the room is not
// yet live. Each room's part is taken exactly once.
type Snapshot struct {
	shutters map[string]map[string]int
	buttons  map[string]map[string]bool
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		shutters: make(map[string]map[string]int),
		buttons:  make(map[string]map[string]bool),
	}
}

func (s *Snapshot) RecordShutter(room, shutter string, status int) {
	if s.shutters[room] == nil {
		s.shutters[room] = make(map[string]int)
	}
	s.shutters[room][shutter] = status
}

func (s *Snapshot) RecordButton(room, button string, active bool) {
	if s.buttons[room] == nil {
		s.buttons[room] = make(map[string]bool)
	}
	s.buttons[room][button] = active
}

// Take removes and returns a room's collected state. Missing rooms yield
// nil maps.
func (s *Snapshot) Take(room string) (map[string]int, map[string]bool) {
	status, active := s.shutters[room], s.buttons[room]
	delete(s.shutters, room)
	delete(s.buttons, room)
	return status, active
}

// Clear discards whatever was collected for rooms nobody took.
func (s *Snapshot) Clear() {
	clear(s.shutters)
	clear(s.buttons)
}
