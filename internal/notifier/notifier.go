// Package notifier broadcasts render events of a session to subscribers.
package notifier

import (
	"sync"
	"time"
)

// Event describes one finished render of a session view.
type Event struct {
	// Session is the name of the session that rendered.
	Session string
	// Version is the session version the render reflects.
	Version uint64
	// Rows is the number of rows rendered.
	Rows int
	// Err is set when the render failed.
	Err error
	// At is when the render finished.
	At time.Time
}

// Notifier fans render events out to subscribed listeners.
// Each listener holds at most one pending event; a slow listener only ever
// sees the most recent one.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives render events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Broadcast delivers ev to all listeners without blocking.
// A pending event that was not consumed yet is replaced by ev.
func (n *Notifier) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	// Write lock: replacing a pending event must not race another Broadcast.
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
