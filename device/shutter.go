package device

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
)

const (
	relayOff = 0
	relayOn  = 1

	directionUp   = 0
	directionDown = 1

	progressSteps   = 20
	switchDebounce  = 50 * time.Millisecond
	positionEpsilon = 0.5
)

// Shutter is a relay driven shutter with a run time position estimate.
type Shutter struct {
	location   string
	power      outputLine
	direction  outputLine
	toggle     inputLine
	fullClose  time.Duration
	onStatus   func(int)
	onMovement func(state.Movement)
	notify     *notifier
	log        zerolog.Logger
	now        func() time.Time

	mu        sync.Mutex
	position  float64
	reported  int
	max       int
	moving    state.Movement
	last      state.Movement
	target    float64
	startPos  float64
	started   time.Time
	gen       uint64
	arrival   *time.Timer
	progress  *time.Timer
	lastPress time.Time
	closed    bool
}

var _ state.Shutter = (*Shutter)(nil)

// OpenShutter requests the relay lines, and the switch line when
// configured, and returns an idle shutter at opts.Status.
func (f *Factory) OpenShutter(opts state.ShutterOptions) (*Shutter, error) {
	return newShutter(f.chip, opts, f.log)
}

func newShutter(chip lineRequester, opts state.ShutterOptions, log zerolog.Logger) (*Shutter, error) {
	power, err := chip.Output(opts.PowerGpio, relayOff)
	if err != nil {
		return nil, err
	}
	direction, err := chip.Output(opts.DirectionGpio, directionUp)
	if err != nil {
		_ = power.Close()
		return nil, err
	}
	status := min(max(opts.Status, 0), 100)
	s := &Shutter{
		location:   opts.Location,
		power:      power,
		direction:  direction,
		fullClose:  time.Duration(opts.FullCloseMs) * time.Millisecond,
		onStatus:   opts.OnStatusUpdate,
		onMovement: opts.OnMovementUpdate,
		notify:     newNotifier(),
		log:        log.With().Str("shutter", opts.Location).Logger(),
		now:        time.Now,
		position:   float64(status),
		reported:   status,
		max:        opts.Max,
		moving:     state.Stop,
		last:       state.Up,
	}
	if opts.SwitchGpio != nil {
		s.toggle, err = chip.Input(*opts.SwitchGpio, s.switchEdge)
		if err != nil {
			s.notify.close()
			return nil, errors.Join(err, power.Close(), direction.Close())
		}
	}
	return s, nil
}

func (s *Shutter) Up()   { s.run(state.Up, false) }
func (s *Shutter) Down() { s.run(state.Down, false) }

// Force runs the motor for the full travel time regardless of the position
// estimate, recalibrating it at the end.
func (s *Shutter) Force(dir state.Movement) {
	s.run(dir, true)
}

func (s *Shutter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.moving == state.Stop {
		return
	}
	s.haltLocked()
	s.reportLocked(s.position)
	s.movementLocked(state.Stop)
}

// Toggle stops a moving shutter. An idle one moves away from the end it is
// at, or against its last direction when in between.
func (s *Shutter) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.moving != state.Stop {
		s.haltLocked()
		s.reportLocked(s.position)
		s.movementLocked(state.Stop)
		return
	}
	dir := state.Down
	switch {
	case s.position >= float64(s.max)-positionEpsilon:
		dir = state.Up
	case s.position <= positionEpsilon:
		dir = state.Down
	case s.last == state.Down:
		dir = state.Up
	}
	s.startLocked(dir, s.targetFor(dir), false)
}

// SetMax changes the travel limit. A closing shutter stops at the new
// limit, or reverses to it when already past. An idle shutter beyond the
// limit is raised to it.
func (s *Shutter) SetMax(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.max = n
	limit := float64(n)
	switch s.moving {
	case state.Down:
		if s.target > limit {
			s.retargetLocked(limit)
		}
	case state.Stop:
		if s.position > limit+positionEpsilon {
			s.startLocked(state.Up, limit, false)
		}
	}
}

// Position is the current estimate, rounded.
func (s *Shutter) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(math.Round(s.currentLocked()))
}

func (s *Shutter) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.moving != state.Stop {
		s.haltLocked()
	}
	s.closed = true
	s.mu.Unlock()

	errs := []error{s.power.Close(), s.direction.Close()}
	if s.toggle != nil {
		errs = append(errs, s.toggle.Close())
	}
	s.notify.close()
	return errors.Join(errs...)
}

func (s *Shutter) run(dir state.Movement, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.startLocked(dir, s.targetFor(dir), force)
}

func (s *Shutter) targetFor(dir state.Movement) float64 {
	if dir == state.Down {
		return float64(s.max)
	}
	return 0
}

func (s *Shutter) startLocked(dir state.Movement, target float64, force bool) {
	if s.moving == dir && !force {
		if s.target != target {
			s.retargetLocked(target)
		}
		return
	}
	if s.moving != state.Stop {
		s.haltLocked()
		s.reportLocked(s.position)
	}

	pos := s.position
	distance := math.Abs(target - pos)
	if force {
		distance = 100
	} else if distance < positionEpsilon ||
		(dir == state.Up && pos < target) ||
		(dir == state.Down && pos > target) {
		s.log.Debug().Msgf("%s: already at %.0f", dir, pos)
		s.movementLocked(state.Stop)
		return
	}

	if err := s.direction.SetValue(directionValue(dir)); err != nil {
		s.log.Error().Msgf("Error setting direction relay: %v", err)
		return
	}
	if err := s.power.SetValue(relayOn); err != nil {
		s.log.Error().Msgf("Error setting power relay: %v", err)
		_ = s.direction.SetValue(directionUp)
		return
	}
	s.log.Debug().Msgf("%s from %.0f to %.0f", dir, pos, target)
	s.moving = dir
	s.last = dir
	s.target = target
	s.startPos = pos
	s.started = s.now()
	s.scheduleLocked(distance)
	s.movementLocked(dir)
}

func (s *Shutter) retargetLocked(target float64) {
	pos := s.currentLocked()
	if (s.moving == state.Up && pos <= target) || (s.moving == state.Down && pos >= target) {
		// already past the new target: run back to it from where we are
		back := state.Up
		if s.moving == state.Up {
			back = state.Down
		}
		s.haltLocked()
		s.reportLocked(s.position)
		if math.Abs(s.position-target) < positionEpsilon {
			s.position = target
			s.movementLocked(state.Stop)
			return
		}
		s.startLocked(back, target, false)
		return
	}
	s.stopTimersLocked()
	s.position = pos
	s.startPos = pos
	s.started = s.now()
	s.target = target
	s.scheduleLocked(math.Abs(target - pos))
}

func (s *Shutter) scheduleLocked(distance float64) {
	s.gen++
	gen := s.gen
	travel := time.Duration(distance / 100 * float64(s.fullClose))
	s.arrival = time.AfterFunc(travel, func() { s.arrive(gen) })
	s.scheduleProgressLocked(gen)
}

func (s *Shutter) scheduleProgressLocked(gen uint64) {
	s.progress = time.AfterFunc(s.fullClose/progressSteps, func() { s.tick(gen) })
}

func (s *Shutter) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.moving == state.Stop {
		return
	}
	s.reportLocked(s.currentLocked())
	s.scheduleProgressLocked(gen)
}

func (s *Shutter) arrive(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.moving == state.Stop {
		return
	}
	s.haltLocked()
	s.position = s.target
	s.reportLocked(s.position)
	s.movementLocked(state.Stop)
}

// haltLocked cuts power and freezes the position estimate.
func (s *Shutter) haltLocked() {
	s.position = s.currentLocked()
	if err := s.power.SetValue(relayOff); err != nil {
		s.log.Error().Msgf("Error releasing power relay: %v", err)
	}
	if err := s.direction.SetValue(directionUp); err != nil {
		s.log.Error().Msgf("Error releasing direction relay: %v", err)
	}
	s.moving = state.Stop
	s.gen++
	s.stopTimersLocked()
}

func (s *Shutter) stopTimersLocked() {
	if s.arrival != nil {
		s.arrival.Stop()
		s.arrival = nil
	}
	if s.progress != nil {
		s.progress.Stop()
		s.progress = nil
	}
}

func (s *Shutter) currentLocked() float64 {
	if s.moving == state.Stop {
		return s.position
	}
	delta := float64(s.now().Sub(s.started)) / float64(s.fullClose) * 100
	if s.moving == state.Up {
		return math.Max(s.startPos-delta, s.target)
	}
	return math.Min(s.startPos+delta, s.target)
}

func (s *Shutter) reportLocked(pos float64) {
	rounded := int(math.Round(pos))
	if rounded == s.reported {
		return
	}
	s.reported = rounded
	if cb := s.onStatus; cb != nil {
		s.notify.notify(func() { cb(rounded) })
	}
}

func (s *Shutter) movementLocked(m state.Movement) {
	if cb := s.onMovement; cb != nil {
		s.notify.notify(func() { cb(m) })
	}
}

func (s *Shutter) switchEdge(e Edge) {
	if e != Falling {
		return
	}
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastPress) < switchDebounce {
		s.mu.Unlock()
		return
	}
	s.lastPress = now
	s.mu.Unlock()
	s.log.Debug().Msg("switch pressed")
	s.Toggle()
}

func directionValue(dir state.Movement) int {
	if dir == state.Down {
		return directionDown
	}
	return directionUp
}
