package ttransport

import "sync"

// Hub fans events out to any number of subscriptions.
//
// Publish never blocks:
// each subscription has its own unbounded queue drained by a goroutine,
// so a slow subscriber delays only itself
// and events reach each subscriber in publish order.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: map[*Subscription]struct{}{}}
}

// Subscribe returns a new subscription receiving every event
// published after this call.
//
// Subscribing to a closed hub returns a subscription
// whose channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event)
	s := &Subscription{
		C: ch,

		hub:    h,
		out:    ch,
		signal: make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		s.closeOnce.Do(func() { close(s.quit) })
		close(s.done)
		close(ch)
		return s
	}

	h.subs[s] = struct{}{}
	go s.pump()
	return s
}

// Publish queues e for every current subscription.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		s.enqueue(e)
	}
}

// Close closes every subscription.
// Events queued but not yet received are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.closed = true
	h.mu.Unlock()

	for s := range subs {
		s.stop()
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, s)
}

// Subscription is a stream of events from a [Hub].
type Subscription struct {
	// C receives events in order.
	// It is closed after Close, or when the transport is torn down.
	C <-chan Event

	hub *Hub
	out chan Event

	mu    sync.Mutex
	queue []Event

	signal chan struct{}

	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// Close stops delivery and closes C.
// It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
	s.stop()
}

func (s *Subscription) stop() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	<-s.done
}

func (s *Subscription) enqueue(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
		// Pump already has a pending wakeup.
	}
}

func (s *Subscription) pump() {
	defer close(s.done)
	defer close(s.out)

	for {
		s.mu.Lock()
		var (
			e  Event
			ok bool
		)
		if len(s.queue) > 0 {
			e, ok = s.queue[0], true
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if !ok {
			select {
			case <-s.quit:
				return
			case <-s.signal:
				continue
			}
		}

		select {
		case <-s.quit:
			return
		case s.out <- e:
		}
	}
}
