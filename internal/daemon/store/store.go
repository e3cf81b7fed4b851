package store

import (
	"sync"
)

// subscriberBuffer is the channel depth given to each subscriber.
const subscriberBuffer = 100

// Store is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	stats       Stats
	lastConfig  string
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	return &Store{
		subscribers: make(map[chan Update]struct{}),
	}
}

// ApplyUpdate records u and notifies subscribers.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateTransition:
		s.stats.Transitions++
	case UpdateFeedback:
		s.stats.Feedback++
	case UpdateConfigChanged:
		s.stats.ConfigChanges++
		if file, ok := u.Payload.(string); ok {
			s.lastConfig = file
		}
	}
	if u.At.After(s.stats.LastUpdate) {
		s.stats.LastUpdate = u.At
	}

	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the daemon
			s.stats.Dropped++
		}
	}
}

// Subscribe creates a new subscription channel for updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, subscriberBuffer)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// Stats returns a copy of the counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Subscribers = len(s.subscribers)
	return st
}

// LastConfigChange returns the config file that most recently changed on
// disk, or "" if none has.
func (s *Store) LastConfigChange() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastConfig
}
