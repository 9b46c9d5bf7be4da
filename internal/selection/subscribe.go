package selection

import (
	"sync"

	"github.com/sells-group/edmap/internal/view"
)

type subscriber struct {
	ch   chan view.View
	once sync.Once
}

// deliver never blocks. When the buffer is full the oldest pending view is
// dropped so the subscriber always ends on the newest revision.
func (s *subscriber) deliver(v view.View) {
	for {
		select {
		case s.ch <- v:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Subscribe returns a channel receiving the current view followed by every
// new one. buf below 1 is raised to 1. cancel closes the channel.
func (c *Controller) Subscribe(buf int) (<-chan view.View, func()) {
	if buf < 1 {
		buf = 1
	}
	s := &subscriber{ch: make(chan view.View, buf)}

	c.mu.Lock()
	c.subs[s] = struct{}{}
	if c.rev > 0 {
		s.deliver(c.current)
	}
	c.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			c.mu.Lock()
			delete(c.subs, s)
			close(s.ch)
			c.mu.Unlock()
		})
	}
	return s.ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
