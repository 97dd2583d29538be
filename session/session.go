package session

import (
	"sync"
	"time"

	"github.com/wfunc/thirteen/network"
)

// Session binds one transport connection to a player. The connection id is
// ephemeral; PlayerID is the client-supplied persistent token that survives
// reconnects within a match.
type Session struct {
	ID         string
	Conn       network.Connection
	PlayerID   string
	RoomCode   string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

// Touch records activity on the session. Heartbeats and broadcast sends
// both update LastActive, so the write always goes through the mutex.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

// IdleSince reads the last activity time under the lock.
func (s *Session) IdleSince() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.LastActive
}

// Bind attaches the player identity and room once the first room action
// arrives on this connection.
func (s *Session) Bind(playerID, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.PlayerID = playerID
	s.RoomCode = roomCode
}

func (s *Session) Bound() (playerID, roomCode string) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.PlayerID, s.RoomCode
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager indexes live sessions by connection id and by player id.
type Manager struct {
	sessions map[string]*Session
	byPlayer map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, exists := m.sessions[sessionID]; exists {
		playerID, _ := s.Bound()
		if playerID != "" && m.byPlayer[playerID] == s {
			delete(m.byPlayer, playerID)
		}
		delete(m.sessions, sessionID)
	}
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// BindPlayer rebinds a player id to a session. A reconnect overwrites the
// previous (dead) session for the same player.
func (m *Manager) BindPlayer(playerID string, session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.byPlayer[playerID] = session
}

func (m *Manager) GetByPlayerID(playerID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.byPlayer[playerID]
	return session, exists
}
