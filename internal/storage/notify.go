package storage

import "sync"

// Notifier fans committed writes out to subscribers. Delivery is buffered;
// a slow subscriber loses intermediate notifications, never the signal that
// something changed; observers re-read the current state anyway, history
// does not matter.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Change
	next int
}

const subscriberBuffer = 16

// Subscribe registers a new observer channel.
func (n *Notifier) Subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]chan Change)
	}
	id := n.next
	n.next++
	ch := make(chan Change, subscriberBuffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers a change to every subscriber without blocking the writer.
func (n *Notifier) Publish(c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sub := range n.subs {
		select {
		case sub <- c:
		default:
			// Subscriber buffer full; it will catch up from the
			// next notification.
		}
	}
}

// Close closes all subscriber channels.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, sub := range n.subs {
		delete(n.subs, id)
		close(sub)
	}
}
