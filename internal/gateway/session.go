package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fpt/cobrowse/internal/connectrpc"
)

// ServiceClient is the part of the co-browsing service the gateway uses.
type ServiceClient interface {
	StartSession(ctx context.Context) (connectrpc.StartSessionResponse, error)
	SendMessage(ctx context.Context, in connectrpc.SendMessageRequest) (connectrpc.SendMessageResponse, error)
	ClearSession(ctx context.Context, sessionID string) error
	CloseSession(ctx context.Context, sessionID string) error
}

// SessionKey uniquely identifies a conversation context.
type SessionKey struct {
	ChannelType string
	ChannelID   string
	PeerID      string
}

// Session holds per-peer state.
type Session struct {
	Key          SessionKey
	RemoteID     string // service session ID
	QuickActions []connectrpc.QuickAction
	LastActivity time.Time
	mu           sync.Mutex
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.LastActivity = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.LastActivity)
}

// SessionManager maps peers to service sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[SessionKey]*Session
	client   ServiceClient
	now      func() time.Time
}

// NewSessionManager creates a session manager.
func NewSessionManager(client ServiceClient) *SessionManager {
	return &SessionManager{
		sessions: make(map[SessionKey]*Session),
		client:   client,
		now:      time.Now,
	}
}

// GetOrCreateSession returns the peer's session, starting one on the service
// when needed. greeting is non-empty only for a new session.
func (sm *SessionManager) GetOrCreateSession(ctx context.Context, key SessionKey) (session *Session, greeting string, err error) {
	sm.mu.RLock()
	if s, ok := sm.sessions[key]; ok {
		sm.mu.RUnlock()
		s.touch(sm.now())
		return s, "", nil
	}
	sm.mu.RUnlock()

	resp, err := sm.client.StartSession(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start session: %w", err)
	}

	session = &Session{
		Key:          key,
		RemoteID:     resp.SessionID,
		QuickActions: resp.QuickActions,
		LastActivity: sm.now(),
	}

	sm.mu.Lock()
	if existing, ok := sm.sessions[key]; ok {
		// lost a race with another message from the same peer
		sm.mu.Unlock()
		_ = sm.client.CloseSession(ctx, resp.SessionID)
		existing.touch(sm.now())
		return existing, "", nil
	}
	sm.sessions[key] = session
	sm.mu.Unlock()

	return session, resp.Greeting, nil
}

// ClearSession empties the peer's conversation but keeps the session.
func (sm *SessionManager) ClearSession(ctx context.Context, key SessionKey) error {
	sm.mu.RLock()
	session, ok := sm.sessions[key]
	sm.mu.RUnlock()
	if !ok {
		return nil
	}
	return sm.client.ClearSession(ctx, session.RemoteID)
}

// ExpireIdle closes sessions idle for longer than timeout and returns how
// many were closed.
func (sm *SessionManager) ExpireIdle(ctx context.Context, timeout time.Duration) int {
	now := sm.now()
	var expired []*Session

	sm.mu.Lock()
	for key, s := range sm.sessions {
		if s.idleSince(now) > timeout {
			expired = append(expired, s)
			delete(sm.sessions, key)
		}
	}
	sm.mu.Unlock()

	for _, s := range expired {
		_ = sm.client.CloseSession(ctx, s.RemoteID)
	}
	return len(expired)
}

// CloseAll ends every session on the service.
func (sm *SessionManager) CloseAll(ctx context.Context) {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[SessionKey]*Session)
	sm.mu.Unlock()
	for _, s := range sessions {
		_ = sm.client.CloseSession(ctx, s.RemoteID)
	}
}

// Len reports the number of tracked sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
