package device

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/elijahnyp/shutter_control/state"
)

const defaultButtonInterval = 50 * time.Millisecond

// Button reports presses of a normally open push button.
type Button struct {
	chip     lineRequester
	offset   int
	interval time.Duration
	onClose  func()
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.Mutex
	line   inputLine
	notify *notifier
	last   time.Time
}

var _ state.Button = (*Button)(nil)

func newButton(chip lineRequester, opts state.ButtonOptions, log zerolog.Logger) *Button {
	interval := time.Duration(opts.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultButtonInterval
	}
	return &Button{
		chip:     chip,
		offset:   opts.Gpio,
		interval: interval,
		onClose:  opts.OnClose,
		log:      log.With().Str("button", opts.Location).Logger(),
		now:      time.Now,
	}
}

// Start requests the line. Starting a started button is a no-op.
func (b *Button) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line != nil {
		return nil
	}
	b.notify = newNotifier()
	line, err := b.chip.Input(b.offset, b.edge)
	if err != nil {
		b.notify.close()
		return err
	}
	b.line = line
	b.log.Debug().Msg("started")
	return nil
}

// Stop releases the line; presses are no longer reported.
func (b *Button) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	b.notify.close()
	b.log.Debug().Msg("stopped")
	return err
}

func (b *Button) edge(e Edge) {
	if e != Falling {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return
	}
	now := b.now()
	if now.Sub(b.last) < b.interval {
		return
	}
	b.last = now
	if cb := b.onClose; cb != nil {
		b.notify.notify(cb)
	}
}
