package device

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
)

const defaultContactInterval = 200 * time.Millisecond

// ContactSensor reports a window contact. The reading is taken once the line
// has been quiet for the interval.
type ContactSensor struct {
	chip     lineRequester
	offset   int
	interval time.Duration
	onChange func(state.Contact)
	log      zerolog.Logger

	mu     sync.Mutex
	line   inputLine
	notify *notifier
	timer  *time.Timer
	last   state.Contact
}

var _ state.ContactSensor = (*ContactSensor)(nil)

func newContact(chip lineRequester, opts state.ContactOptions, log zerolog.Logger) *ContactSensor {
	interval := time.Duration(opts.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultContactInterval
	}
	return &ContactSensor{
		chip:     chip,
		offset:   opts.Gpio,
		interval: interval,
		onChange: opts.OnChange,
		log:      log.With().Str("window", opts.Location).Logger(),
	}
}

// Start requests the line and reports the initial reading.
func (c *ContactSensor) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.line != nil {
		return nil
	}
	c.notify = newNotifier()
	line, err := c.chip.Input(c.offset, c.edge)
	if err != nil {
		c.notify.close()
		return err
	}
	c.line = line
	c.sampleLocked()
	return nil
}

func (c *ContactSensor) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.line == nil {
		return nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	err := c.line.Close()
	c.line = nil
	c.last = ""
	c.notify.close()
	return err
}

func (c *ContactSensor) edge(Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.line == nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.interval, c.sample)
}

func (c *ContactSensor) sample() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.line == nil {
		return
	}
	c.sampleLocked()
}

func (c *ContactSensor) sampleLocked() {
	v, err := c.line.Value()
	if err != nil {
		c.log.Error().Msgf("Error reading contact: %v", err)
		return
	}
	contact := state.Open
	if v == 0 {
		contact = state.Closed
	}
	if contact == c.last {
		return
	}
	c.last = contact
	if cb := c.onChange; cb != nil {
		c.notify.notify(func() { cb(contact) })
	}
}
