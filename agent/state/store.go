package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidAddress  = errors.New("customer address is empty")
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultSweepEvery   = 10 * time.Minute
	defaultRedisKeyPref = "cod:session:"
)

// Store is the session persistence contract used by the orchestrator.
// Implementations are safe for concurrent use; serialization of
// mutations for one address is the orchestrator's job, not the store's.
type Store interface {
	Load(ctx context.Context, address string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, address string) error
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL sets the idle-session retention. Zero disables eviction.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithSweepInterval(every time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if every > 0 {
			s.sweepEvery = every
		}
	}
}

// WithClock overrides the time source. Tests use this to drive
// expiry deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory with idle eviction.
// Abandoned sessions are dropped after the TTL; there is no terminal
// "abandoned" state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl        time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions:   make(map[string]*Session),
		ttl:        defaultSessionTTL,
		sweepEvery: defaultSweepEvery,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.ttl > 0 {
		go s.janitor()
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context, address string) (*Session, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	s.mu.RLock()
	sess, ok := s.sessions[address]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(sess) {
		s.mu.Lock()
		delete(s.sessions, address)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	// The stored session stays private to the store; the sweeper reads
	// it while callers mutate their own copy.
	return sess.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = s.now().UTC()
	}

	s.mu.Lock()
	s.sessions[sess.Address] = sess.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ErrInvalidAddress
	}
	s.mu.Lock()
	delete(s.sessions, address)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the eviction janitor.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *MemoryStore) expired(sess *Session) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(sess.LastActivity) > s.ttl
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for address, sess := range s.sessions {
		if s.now().Sub(sess.LastActivity) > s.ttl {
			delete(s.sessions, address)
		}
	}
}
