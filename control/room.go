package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
	"github.com/elijahnyp/shutter_control/util"
)

// Publisher queues a bus message. Delivery is eventual; failures are the
// publisher's concern.
type Publisher interface {
	Publish(topic string, payload any, retained bool)
}

// RoomParams configure NewRoom. Status and Active come from the bootstrap
// snapshot and may be nil. Post runs facade callbacks on the serial loop;
// when nil they run inline.
type RoomParams struct {
	Room      util.Room
	Status    map[string]int
	Active    map[string]bool
	Publisher Publisher
	Factory   state.Factory
	Post      func(func())
	Logger    zerolog.Logger
}

type shutterEntry struct {
	cfg      util.Shutter
	facade   state.Shutter
	position int
	max      int
	movement state.Movement
	echoes   []echo // published movements not yet seen on the bus
}

type echo struct {
	movement state.Movement
	at       time.Time
}

// echoTTL bounds how long a published movement waits for its echo. An echo
// can be lost (QoS 0, reconnect) and must not swallow a later command.
const echoTTL = 5 * time.Second

type buttonEntry struct {
	cfg    util.Button
	facade state.Button
	active bool
}

type windowEntry struct {
	cfg     util.Window
	facade  state.ContactSensor
	contact state.Contact
}

// Room owns one room's device facades and the affect maps between them. It
// is not safe for concurrent use; the coordinator's loop serialises access.
type Room struct {
	cfg      util.Room
	affect   AffectMaps
	shutters map[string]*shutterEntry
	buttons  map[string]*buttonEntry
	windows  map[string]*windowEntry
	pub      Publisher
	post     func(func())
	topics   Topics
	log      zerolog.Logger
}

// NewRoom builds the facades for every device in the room and wires their
// callbacks. A facade that cannot be created fails the whole room; facades
// created so far are closed.
func NewRoom(p RoomParams) (*Room, error) {
	r := &Room{
		cfg:      p.Room,
		affect:   BuildAffectMaps(p.Room),
		shutters: make(map[string]*shutterEntry),
		buttons:  make(map[string]*buttonEntry),
		windows:  make(map[string]*windowEntry),
		pub:      p.Publisher,
		post:     p.Post,
		log:      p.Logger.With().Str("room", p.Room.Id).Logger(),
	}
	if r.post == nil {
		r.post = func(fn func()) { fn() }
	}

	fail := func(err error) (*Room, error) {
		if cerr := r.Close(); cerr != nil {
			r.log.Warn().Err(cerr).Msg("cleanup after failed construction")
		}
		return nil, fmt.Errorf("%w: room %s: %w", ErrFacadeFailed, p.Room.Id, err)
	}

	for _, cfg := range p.Room.Shutters {
		status := 0
		if v, ok := p.Status[cfg.Id]; ok {
			status = v
		}
		if err := r.addShutter(cfg, status, p.Factory); err != nil {
			return fail(err)
		}
	}
	for _, cfg := range p.Room.Windows {
		if err := r.addWindow(cfg, p.Factory); err != nil {
			return fail(err)
		}
	}
	for _, cfg := range p.Room.Buttons {
		active := cfg.IsActive()
		if v, ok := p.Active[cfg.Id]; ok {
			active = v
		}
		if err := r.addButton(cfg, active, p.Factory); err != nil {
			return fail(err)
		}
	}
	return r, nil
}

func (r *Room) Id() string { return r.cfg.Id }

func (r *Room) Affects() AffectMaps { return r.affect }

func (r *Room) location(label string) string {
	return r.cfg.Label + "/" + label
}

func (r *Room) addShutter(cfg util.Shutter, status int, factory state.Factory) error {
	e := &shutterEntry{cfg: cfg, position: status, max: cfg.Max(), movement: state.Stop}
	opts := state.ShutterOptions{
		Location:    r.location(cfg.Label),
		SwitchGpio:  cfg.SwitchGpio,
		FullCloseMs: cfg.FullCloseMs,
		Status:      status,
		Max:         e.max,
		OnStatusUpdate: func(position int) {
			r.post(func() { r.shutterStatus(e, position) })
		},
		OnMovementUpdate: func(m state.Movement) {
			r.post(func() { r.shutterMovement(e, m) })
		},
	}
	if cfg.PowerGpio != nil {
		opts.PowerGpio = *cfg.PowerGpio
	}
	if cfg.DirectionGpio != nil {
		opts.DirectionGpio = *cfg.DirectionGpio
	}
	facade, err := factory.NewShutter(opts)
	if err != nil {
		return fmt.Errorf("shutter %s: %w", cfg.Id, err)
	}
	e.facade = facade
	r.shutters[cfg.Id] = e
	r.log.Debug().Str("shutter", cfg.Id).Int("status", status).Msg("shutter ready")

	r.pub.Publish(r.topics.ShutterInit(r.cfg.Id, cfg.Id), Empty{}, true)
	return nil
}

func (r *Room) addWindow(cfg util.Window, factory state.Factory) error {
	e := &windowEntry{cfg: cfg}
	r.windows[cfg.Id] = e
	if !cfg.HasSensor() {
		return nil
	}
	facade, err := factory.NewContactSensor(state.ContactOptions{
		Location:   r.location(cfg.Label),
		Gpio:       *cfg.Gpio,
		IntervalMs: cfg.Interval,
		OnChange: func(c state.Contact) {
			r.post(func() { r.windowChanged(e, c) })
		},
	})
	if err != nil {
		return fmt.Errorf("window %s: %w", cfg.Id, err)
	}
	e.facade = facade
	if err := facade.Start(); err != nil {
		return fmt.Errorf("window %s: start: %w", cfg.Id, err)
	}
	return nil
}

func (r *Room) addButton(cfg util.Button, active bool, factory state.Factory) error {
	e := &buttonEntry{cfg: cfg}
	opts := state.ButtonOptions{
		Location:   r.location(cfg.Label),
		IntervalMs: cfg.Interval,
		OnClose: func() {
			r.post(func() { r.buttonClosed(e) })
		},
	}
	if cfg.Gpio != nil {
		opts.Gpio = *cfg.Gpio
	}
	facade, err := factory.NewButton(opts)
	if err != nil {
		return fmt.Errorf("button %s: %w", cfg.Id, err)
	}
	e.facade = facade
	r.buttons[cfg.Id] = e
	if active {
		if err := facade.Start(); err != nil {
			return fmt.Errorf("button %s: start: %w", cfg.Id, err)
		}
		e.active = true
	}
	return nil
}

func (r *Room) shutterStatus(e *shutterEntry, position int) {
	e.position = position
	r.pub.Publish(r.topics.ShutterStatus(r.cfg.Id, e.cfg.Id), Value{Value: position}, true)
}

func (r *Room) shutterMovement(e *shutterEntry, m state.Movement) {
	e.movement = m
	e.echoes = append(e.echoes, echo{movement: m, at: time.Now()})
	r.pub.Publish(r.topics.ShutterMovement(r.cfg.Id, e.cfg.Id), Value{Value: string(m)}, true)
}

func (r *Room) windowChanged(e *windowEntry, c state.Contact) {
	r.log.Info().Str("window", e.cfg.Id).Str("contact", string(c)).Msg("window changed")
	r.pub.Publish(r.topics.WindowStatus(r.cfg.Id, e.cfg.Id), Value{Value: string(c)}, true)
	r.applyWindow(e, c)
}

// applyWindow lowers or restores the affected shutter's travel limit.
// Values other than open and closed change nothing.
func (r *Room) applyWindow(e *windowEntry, c state.Contact) {
	var limit int
	switch c {
	case state.Closed:
		limit = state.ClosedWindowMax
	case state.Open:
		limit = state.OpenWindowMax
	default:
		r.log.Debug().Str("window", e.cfg.Id).Msgf("ignoring window value %q", c)
		return
	}
	e.contact = c
	id, ok := r.affect.ShutterForWindow(e.cfg.Id)
	if !ok {
		return
	}
	s, ok := r.shutters[id]
	if !ok {
		return
	}
	r.log.Debug().Str("window", e.cfg.Id).Str("shutter", id).Int("max", limit).Msg("travel limit")
	s.max = limit
	s.facade.SetMax(limit)
}

func (r *Room) buttonClosed(e *buttonEntry) {
	id, ok := r.affect.ShutterForButton(e.cfg.Id)
	if !ok {
		r.log.Debug().Str("button", e.cfg.Id).Msg("button affects no shutter")
		return
	}
	action, ok := state.ParseMovement(e.cfg.Action)
	if !ok {
		r.log.Warn().Str("button", e.cfg.Id).Msgf("unknown action %q", e.cfg.Action)
		return
	}
	r.log.Debug().Str("button", e.cfg.Id).Str("shutter", id).Str("action", string(action)).Msg("button closed")
	r.Command(id, action)
}

// Command runs m on shutter id. It reports false, and changes nothing, when
// the shutter is unknown.
func (r *Room) Command(id string, m state.Movement) bool {
	s, ok := r.shutters[id]
	if !ok {
		r.log.Warn().Str("shutter", id).Str("command", string(m)).Msg("unknown shutter")
		return false
	}
	switch m {
	case state.Up:
		s.facade.Up()
	case state.Down:
		s.facade.Down()
	case state.Stop:
		s.facade.Stop()
	case state.Toggle:
		s.facade.Toggle()
	default:
		r.log.Warn().Str("shutter", id).Msgf("unknown command %q", m)
		return false
	}
	return true
}

func (r *Room) Up(id string) bool     { return r.Command(id, state.Up) }
func (r *Room) Down(id string) bool   { return r.Command(id, state.Down) }
func (r *Room) Stop(id string) bool   { return r.Command(id, state.Stop) }
func (r *Room) Toggle(id string) bool { return r.Command(id, state.Toggle) }

// MovementCommand handles a value received on the shutter's movement topic.
// That topic also carries our own movement echoes; a value matching the
// oldest unacknowledged echo is consumed instead of executed.
func (r *Room) MovementCommand(id string, m state.Movement) bool {
	s, ok := r.shutters[id]
	if !ok {
		r.log.Warn().Str("shutter", id).Str("command", string(m)).Msg("unknown shutter")
		return false
	}
	now := time.Now()
	for len(s.echoes) > 0 && now.Sub(s.echoes[0].at) > echoTTL {
		s.echoes = s.echoes[1:]
	}
	if len(s.echoes) > 0 && s.echoes[0].movement == m {
		s.echoes = s.echoes[1:]
		r.log.Trace().Str("shutter", id).Str("movement", string(m)).Msg("own echo")
		return true
	}
	return r.Command(id, m)
}

// SetButtonActive starts or stops a button's edge detection. Repeating the
// current value does nothing.
func (r *Room) SetButtonActive(id string, active bool) bool {
	b, ok := r.buttons[id]
	if !ok {
		r.log.Warn().Str("button", id).Msg("unknown button")
		return false
	}
	if b.active == active {
		return true
	}
	var err error
	if active {
		err = b.facade.Start()
	} else {
		err = b.facade.Stop()
	}
	if err != nil {
		r.log.Error().Err(err).Str("button", id).Bool("active", active).Msg("button state change failed")
		return false
	}
	b.active = active
	r.log.Info().Str("button", id).Bool("active", active).Msg("button")
	return true
}

// WindowStatus handles a window status seen on the bus. Only windows
// without a local sensor act on it; for the others it is our own echo.
func (r *Room) WindowStatus(id, value string) bool {
	w, ok := r.windows[id]
	if !ok {
		r.log.Warn().Str("window", id).Msg("unknown window")
		return false
	}
	if w.cfg.HasSensor() {
		r.log.Trace().Str("window", id).Str("contact", value).Msg("window status echo")
		return true
	}
	r.applyWindow(w, state.Contact(value))
	return true
}

// Status reports the room in configuration order.
func (r *Room) Status() state.RoomState {
	rs := state.RoomState{
		Id:       r.cfg.Id,
		Label:    r.cfg.Label,
		Shutters: []state.ShutterState{},
		Buttons:  []state.ButtonState{},
		Windows:  []state.WindowState{},
	}
	for _, cfg := range r.cfg.Shutters {
		s := r.shutters[cfg.Id]
		rs.Shutters = append(rs.Shutters, state.ShutterState{
			Id:       cfg.Id,
			Label:    cfg.Label,
			Position: s.position,
			Max:      s.max,
			Movement: s.movement,
		})
	}
	for _, cfg := range r.cfg.Buttons {
		affects, _ := r.affect.ShutterForButton(cfg.Id)
		rs.Buttons = append(rs.Buttons, state.ButtonState{
			Id:      cfg.Id,
			Label:   cfg.Label,
			Active:  r.buttons[cfg.Id].active,
			Affects: affects,
			Action:  cfg.Action,
		})
	}
	for _, cfg := range r.cfg.Windows {
		affects, _ := r.affect.ShutterForWindow(cfg.Id)
		rs.Windows = append(rs.Windows, state.WindowState{
			Id:      cfg.Id,
			Label:   cfg.Label,
			Contact: r.windows[cfg.Id].contact,
			Affects: affects,
			Remote:  !cfg.HasSensor(),
		})
	}
	return rs
}

// Close stops every button and sensor and releases the shutters.
func (r *Room) Close() error {
	var errs []error
	for id, b := range r.buttons {
		if b.active {
			if err := b.facade.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("button %s: %w", id, err))
			}
			b.active = false
		}
	}
	for id, w := range r.windows {
		if w.facade == nil {
			continue
		}
		if err := w.facade.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("window %s: %w", id, err))
		}
	}
	for id, s := range r.shutters {
		if err := s.facade.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shutter %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
