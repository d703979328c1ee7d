// Package session keeps per-user bot state in memory.
//
// A session moves through three steps: created, key validated, started.
// Jokes can be generated only once a session is started. Reset returns it to
// the validated step and clears its history.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timvw/joke-bot/internal/jokes"
)

var (
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrNotValidated is returned when starting a session without a validated key.
	ErrNotValidated = errors.New("API key not validated")
	// ErrNotStarted is returned when recording a joke before Start.
	ErrNotStarted = errors.New("joke bot not started")
)

// Session is a snapshot of one user's bot state.
type Session struct {
	ID string `json:"session_id"`
	// KeyValid reports whether APIKey passed validation.
	KeyValid bool `json:"key_valid"`
	// Started mirrors the "Start Joke Bot" toggle.
	Started bool `json:"started"`
	// JokeCount is the number of jokes generated since the last reset.
	JokeCount int `json:"joke_count"`
	// LatestJoke is the most recent result, nil after a reset.
	LatestJoke *jokes.Result `json:"latest_joke,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	// APIKey is kept server-side only.
	APIKey string `json:"-"`
}

// Store holds sessions keyed by ID. Idle sessions expire after the TTL;
// a TTL of 0 keeps sessions until deleted. Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new, unvalidated session.
func (s *Store) Create() Session {
	now := s.now()
	sess := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return snapshot(sess)
}

// Get returns the session with id.
func (s *Store) Get(id string) (Session, error) {
	return s.update(id, func(*Session) error { return nil })
}

// SetKey records the outcome of an API key validation. An invalid key clears
// any previously validated one and stops the bot.
func (s *Store) SetKey(id, apiKey string, valid bool) (Session, error) {
	return s.update(id, func(sess *Session) error {
		sess.KeyValid = valid
		if valid {
			sess.APIKey = apiKey
		} else {
			sess.APIKey = ""
			sess.Started = false
		}
		return nil
	})
}

// Start marks the bot started. The key must have been validated first.
func (s *Store) Start(id string) (Session, error) {
	return s.update(id, func(sess *Session) error {
		if !sess.KeyValid {
			return ErrNotValidated
		}
		sess.Started = true
		return nil
	})
}

// Record stores res as the latest joke and increments the counter.
func (s *Store) Record(id string, res jokes.Result) (Session, error) {
	return s.update(id, func(sess *Session) error {
		if !sess.Started {
			return ErrNotStarted
		}
		sess.LatestJoke = &res
		sess.JokeCount++
		return nil
	})
}

// Reset stops the bot and clears the latest joke and the counter. The
// validated key is kept.
func (s *Store) Reset(id string) (Session, error) {
	return s.update(id, func(sess *Session) error {
		sess.Started = false
		sess.LatestJoke = nil
		sess.JokeCount = 0
		return nil
	})
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActive) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included until
// the next Sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// update applies fn to a live session under the lock and touches it. fn's
// error aborts without touching.
func (s *Store) update(id string, fn func(*Session) error) (Session, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	// Expired, treat as gone
	if s.ttl > 0 && now.Sub(sess.LastActive) > s.ttl {
		delete(s.sessions, id)
		return Session{}, ErrNotFound
	}
	if err := fn(sess); err != nil {
		return snapshot(sess), err
	}
	sess.LastActive = now
	return snapshot(sess), nil
}

// snapshot copies sess so callers never alias stored state.
func snapshot(sess *Session) Session {
	out := *sess
	if sess.LatestJoke != nil {
		j := *sess.LatestJoke
		out.LatestJoke = &j
	}
	return out
}
