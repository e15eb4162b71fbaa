package kvstore

import "sync"

// Subscription delivers changes through C until Close is called.
// Delivery never blocks writers: pending changes are queued per subscription.
type Subscription struct {
	keys map[string]struct{}
	ch   chan Change

	mu     sync.Mutex
	queue  []Change
	notify chan struct{}
	done   chan struct{}

	once   sync.Once
	detach func()
}

func newSubscription(keys []string, detach func()) *Subscription {
	sub := &Subscription{
		ch:     make(chan Change),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		detach: detach,
	}
	if len(keys) > 0 {
		sub.keys = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			sub.keys[k] = struct{}{}
		}
	}
	go sub.pump()
	return sub
}

// C returns the delivery channel. It is closed after Close.
func (s *Subscription) C() <-chan Change {
	return s.ch
}

// Close detaches the subscription. Calling it more than once is a no-op.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.detach()
		close(s.done)
	})
}

func (s *Subscription) wants(key string) bool {
	if s.keys == nil {
		return true
	}
	_, ok := s.keys[key]
	return ok
}

func (s *Subscription) enqueue(c Change) {
	s.mu.Lock()
	s.queue = append(s.queue, c)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.ch)
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			next := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case s.ch <- next:
			case <-s.done:
				return
			}
		}
	}
}
