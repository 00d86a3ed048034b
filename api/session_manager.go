package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/jedrobots/gridvm/compiler"
	"github.com/jedrobots/gridvm/vm"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyExists is returned when trying to create a session
	// with an existing ID.
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// DefaultMaxSteps bounds a single run request's round-robin step count so
// a non-terminating program can't hang the request indefinitely.
const DefaultMaxSteps = 1_000_000

// Session pairs a compiled image's executor with the bookkeeping the API
// needs to expose it: a stable id and a creation timestamp.
type Session struct {
	ID         string
	Executor   *vm.Executor
	EntryCount int
	ImageBytes int
	CreatedAt  time.Time

	mu sync.Mutex
}

// SessionManager manages multiple concurrent VM sessions.
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	mu          sync.RWMutex
}

// NewSessionManager creates a new session manager.
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
	}
}

// CreateSession compiles the given grid source, loads the resulting image
// into a fresh Executor, and registers the session under a new id.
func (sm *SessionManager) CreateSession(req SessionCreateRequest) (*Session, error) {
	filename := req.Filename
	if filename == "" {
		filename = "session"
	}

	img, err := compiler.CompileSource(req.Source, filename)
	if err != nil {
		return nil, err
	}

	exec, err := vm.Load(img)
	if err != nil {
		return nil, err
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:         sessionID,
		Executor:   exec,
		EntryCount: len(exec.Procs),
		ImageBytes: len(img),
		CreatedAt:  time.Now(),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, ErrSessionAlreadyExists
	}
	sm.sessions[sessionID] = session

	if sm.broadcaster != nil {
		sm.broadcaster.BroadcastProcess(sessionID, -1, "created", map[string]interface{}{
			"entryCount": session.EntryCount,
		})
	}

	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session by ID.
func (sm *SessionManager) DestroySession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}
	delete(sm.sessions, sessionID)
	return nil
}

// ListSessions returns every active session's ID.
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Step advances the session's executor by exactly one round-robin step and
// broadcasts the result. Concurrent Step, Run, and State calls on the same
// session are serialized by the session's own mutex.
func (s *Session) Step(broadcaster *Broadcaster) SessionStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Executor.Step()
	state := s.state()
	if broadcaster != nil {
		broadcaster.BroadcastStep(s.ID, state.Live)
	}
	return state
}

// Run steps the session's executor until every process stops or maxSteps
// round-robin steps have elapsed, whichever comes first.
func (s *Session) Run(broadcaster *Broadcaster, maxSteps int) SessionStateResponse {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxSteps && s.Executor.Live(); i++ {
		s.Executor.Step()
	}
	state := s.state()
	if broadcaster != nil {
		broadcaster.BroadcastStep(s.ID, state.Live)
	}
	return state
}

// State reports the session's current executor state without stepping it.
func (s *Session) State() SessionStateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// state builds the response while the caller already holds s.mu.
func (s *Session) state() SessionStateResponse {
	procs := make([]ProcessState, len(s.Executor.Procs))
	for i, p := range s.Executor.Procs {
		ps := ProcessState{
			ID:      p.ID,
			PC:      p.PC,
			Stack:   append([]int(nil), p.Stack...),
			Stopped: p.Stopped,
		}
		if p.Err != nil {
			ps.Error = p.Err.Error()
		}
		procs[i] = ps
	}
	return SessionStateResponse{
		SessionID: s.ID,
		Live:      s.Executor.Live(),
		Processes: procs,
	}
}

// generateSessionID generates a unique, random session id.
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
