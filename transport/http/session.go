package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slighter12/twinscene-go/logger"
)

// SessionManager tracks RPC clients and their event streams.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	nextID   uint64
}

// Session is one client. Stream is set while the client listens on /events.
type Session struct {
	ID       string
	Created  time.Time
	LastSeen time.Time
	Stream   *EventStream
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession registers a session under a fresh id.
func (sm *SessionManager) CreateSession() string {
	id := uuid.NewString()
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	sm.sessions[id] = &Session{ID: id, Created: now, LastSeen: now}
	return id
}

// TouchSession marks a session as seen. It reports false for unknown ids.
func (sm *SessionManager) TouchSession(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if exists {
		session.LastSeen = time.Now()
	}
	return exists
}

func (sm *SessionManager) HasSession(sessionID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, exists := sm.sessions[sessionID]
	return exists
}

// SetStream binds stream to a session, closing the one it replaces.
func (sm *SessionManager) SetStream(sessionID string, stream *EventStream) bool {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	var previous *EventStream
	if exists {
		previous = session.Stream
		session.Stream = stream
		session.LastSeen = time.Now()
	}
	sm.mu.Unlock()

	if previous != nil && previous != stream {
		previous.Close()
	}
	return exists
}

// ClearStreamIfMatch unbinds stream unless another one replaced it.
func (sm *SessionManager) ClearStreamIfMatch(sessionID string, stream *EventStream) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if session, exists := sm.sessions[sessionID]; exists && session.Stream == stream {
		session.Stream = nil
		session.LastSeen = time.Now()
	}
}

// RemoveSession removes a session
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()

	if exists && session.Stream != nil {
		session.Stream.Close()
	}
}

// CleanupSessions removes sessions idle for longer than timeout. Sessions
// with an open stream are kept.
func (sm *SessionManager) CleanupSessions(timeout time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	removed := 0
	for sessionID, session := range sm.sessions {
		if session.Stream != nil && !session.Stream.IsClosed() {
			continue
		}
		if now.Sub(session.LastSeen) > timeout {
			delete(sm.sessions, sessionID)
			removed++
		}
	}
	return removed
}

// Broadcast queues an event on every open stream.
func (sm *SessionManager) Broadcast(event string, data json.RawMessage) {
	sm.mu.Lock()
	sm.nextID++
	id := sm.nextID
	streams := make([]*EventStream, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		if session.Stream != nil {
			streams = append(streams, session.Stream)
		}
	}
	sm.mu.Unlock()

	for _, stream := range streams {
		if !stream.Enqueue(id, event, data) && !stream.IsClosed() {
			logger.Warn("Event dropped for slow subscriber", "event", event)
		}
	}
}

// Len returns the number of sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CloseAll removes every session and closes its stream.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[string]*Session)
	sm.mu.Unlock()

	for _, session := range sessions {
		if session.Stream != nil {
			session.Stream.Close()
		}
	}
}
