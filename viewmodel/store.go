package viewmodel

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"i4.energy/across/cellmon/at"
)

// Store holds the packet log of one trace session and the state decoded
// from it. It is safe for concurrent use.
type Store struct {
	decoder *Decoder
	logger  *slog.Logger

	mu      sync.RWMutex
	session uuid.UUID
	packets []at.Packet
	state   State
	subs    map[int]chan State
	nextSub int
}

// NewStore starts a session decoded by decoder. A nil logger means
// slog.Default().
func NewStore(decoder *Decoder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		decoder: decoder,
		logger:  logger,
		subs:    make(map[int]chan State),
	}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.session = uuid.New()
	s.packets = nil
	s.state = s.decoder.Registry().InitialState()
}

// Append decodes p, logs it and publishes the new state to subscribers.
func (s *Store) Append(p at.Packet) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.packets); n > 0 && p.Timestamp.Before(s.packets[n-1].Timestamp) {
		s.logger.Warn("Packet out of order", "timestamp", p.Timestamp, "last", s.packets[n-1].Timestamp)
	}
	s.packets = append(s.packets, p)
	s.state = s.decoder.Step(s.state, p)

	for id, ch := range s.subs {
		select {
		case ch <- s.state:
		default:
			s.logger.Warn("Subscriber channel full, dropping state", "subscriber", id)
		}
	}
	return s.state
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns the id of the current session.
func (s *Store) Session() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Registry returns the registry the store decodes with.
func (s *Store) Registry() *Registry {
	return s.decoder.Registry()
}

// Packets returns a copy of the packet log.
func (s *Store) Packets() []at.Packet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.packets)
}

// StateAt rewinds the state to time t by replaying every packet logged at
// or before t. The replay runs on a copy of the log without holding the
// lock.
func (s *Store) StateAt(t time.Time) State {
	packets := s.Packets()
	i, _ := slices.BinarySearchFunc(packets, t, func(p at.Packet, t time.Time) int {
		if p.Timestamp.After(t) {
			return 1
		}
		return -1
	})
	return s.decoder.Replay(packets[:i])
}

// Reset discards the log and starts a new session.
func (s *Store) Reset() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.logger.Info("New session", "session", s.session)
	return s.session
}

// Subscribe returns a channel receiving the state after every appended
// packet, and a func to cancel the subscription. States are dropped when
// the channel buffer is full.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, buffer)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}
