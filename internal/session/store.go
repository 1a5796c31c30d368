package session

import (
	"errors"
	"sync"
	"time"

	"CarelineGolang/internal/entity"
	"CarelineGolang/pkg/log"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("session not found")

const DefaultTTL = time.Hour

// IStore keeps per-conversation state between requests. Entries expire
// after the idle TTL so abandoned web widgets do not pile up.
type IStore interface {
	GetOrCreate(id string) (entity.Session, string)
	Get(id string) (entity.Session, error)
	AppendTurn(id string, turn entity.Turn) error
	SetLanguage(id string, lang string) error
	History(id string, lastN int) ([]entity.Turn, error)
	Len() int
	Close()
}

type sessionEntry struct {
	mu   sync.Mutex
	sess *entity.Session
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	logger   *logrus.Logger
	done     chan struct{}
	closed   sync.Once
}

func New(ttl time.Duration, logger *logrus.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go s.janitor()

	return s
}

// GetOrCreate returns a snapshot of the session and its id. An empty id
// allocates a fresh session. An expired or unknown id is recreated under
// the same id so clients keep their reference across idle gaps.
func (s *Store) GetOrCreate(id string) (entity.Session, string) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	e, ok := s.sessions[id]
	if !ok {
		now := time.Now()
		e = &sessionEntry{sess: &entity.Session{
			ID:           id,
			CreatedAt:    now,
			LastActivity: now,
		}}
		s.sessions[id] = e

		s.logger.WithFields(log.Fields{
			"session_id": id,
		}).Debug("Created new session")
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.sess.LastActivity = time.Now()
	snap := snapshot(e.sess)
	e.mu.Unlock()

	return snap, id
}

func (s *Store) Get(id string) (entity.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return entity.Session{}, ErrNotFound
	}

	e.mu.Lock()
	snap := snapshot(e.sess)
	e.mu.Unlock()

	return snap, nil
}

func (s *Store) AppendTurn(id string, turn entity.Turn) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	e.sess.Turns = append(e.sess.Turns, turn)
	e.sess.LastActivity = time.Now()
	e.mu.Unlock()

	return nil
}

func (s *Store) SetLanguage(id string, lang string) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	e.sess.Language = lang
	e.mu.Unlock()

	return nil
}

// History returns up to lastN most recent turns, oldest first. A lastN of
// zero or less returns the full history.
func (s *Store) History(id string, lastN int) ([]entity.Turn, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	turns := e.sess.Turns
	if lastN > 0 && len(turns) > lastN {
		turns = turns[len(turns)-lastN:]
	}

	out := make([]entity.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) Close() {
	s.closed.Do(func() {
		close(s.done)
	})
}

func (s *Store) janitor() {
	interval := s.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired(time.Now())
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.sessions {
		e.mu.Lock()
		expired := now.Sub(e.sess.LastActivity) > s.ttl
		e.mu.Unlock()

		if expired {
			delete(s.sessions, id)
			s.logger.WithFields(log.Fields{
				"session_id": id,
			}).Debug("Evicted idle session")
		}
	}
}

func snapshot(sess *entity.Session) entity.Session {
	snap := *sess
	snap.Turns = make([]entity.Turn, len(sess.Turns))
	copy(snap.Turns, sess.Turns)
	return snap
}
