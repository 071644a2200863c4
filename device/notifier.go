package device

import "sync"

// notifier runs callbacks in order on its own goroutine.
type notifier struct {
	ch     chan func()
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

func newNotifier() *notifier {
	n := &notifier{ch: make(chan func(), 32)}
	go func() {
		for fn := range n.ch {
			fn()
		}
	}()
	return n
}

func (n *notifier) notify(fn func()) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	n.ch <- fn
}

func (n *notifier) close() {
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.ch)
		n.mu.Unlock()
	})
}
