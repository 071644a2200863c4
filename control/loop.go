package control

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Loop runs posted functions one at a time, in order, on a single
// goroutine. A function that runs longer than warnAfter is logged; nothing
// bounds it, so a hanging function stalls everything behind it.
type Loop struct {
	inbox     chan func()
	done      chan struct{}
	warnAfter time.Duration
	log       zerolog.Logger
}

func NewLoop(size int, warnAfter time.Duration, log zerolog.Logger) *Loop {
	return &Loop{
		inbox:     make(chan func(), size),
		done:      make(chan struct{}),
		warnAfter: warnAfter,
		log:       log,
	}
}

// Post queues fn. It blocks while the queue is full and drops fn once the
// loop has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case l.inbox <- fn:
	case <-l.done:
		l.log.Debug().Msg("loop stopped; dropping work")
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	work := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.inbox <- work:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.inbox:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Msgf("handler panic: %v", r)
		}
		if d := time.Since(start); l.warnAfter > 0 && d > l.warnAfter {
			l.log.Warn().Dur("took", d).Msg("slow handler")
		}
	}()
	fn()
}
