// Package session manages per-chat conversation state. Sessions are held
// in process memory only: a restart drops them all, and the flow resumes
// cleanly at the start state.
package session

import "sync"

// Session is the mutable record tracked for one chat.
type Session struct {
	ChatID  int64
	State   string
	Data    map[string]any
	Consent bool
	DND     bool
}

// Store owns all session records plus a per-chat mutex that serializes
// message handling within a single chat. Handlers for different chats may
// run concurrently.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
	initial  string
}

// NewStore creates an empty store whose new sessions begin at initialState.
func NewStore(initialState string) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
		initial:  initialState,
	}
}

// GetOrCreate returns the chat's session, lazily creating one with defaults:
// initial state, empty data, consent on, do-not-disturb off.
func (s *Store) GetOrCreate(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}

	sess := &Session{
		ChatID:  chatID,
		State:   s.initial,
		Data:    make(map[string]any),
		Consent: true,
	}
	s.sessions[chatID] = sess
	return sess
}

// Reset discards the chat's session entirely. The next GetOrCreate starts fresh.
func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// WithLock runs fn while holding the chat's mutex. Two updates from the same
// chat are never interleaved against the same session record; the store map
// itself stays safe for concurrent chats via its own lock.
func (s *Store) WithLock(chatID int64, fn func() error) error {
	lock := s.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

func (s *Store) chatLock(chatID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[chatID] = lock
	}
	return lock
}
