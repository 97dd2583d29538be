package room

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Manager owns the registry of live rooms, keyed by room code. All timers
// are registered against room identity, so deleting a room deterministically
// cancels them.
type Manager struct {
	rooms     map[string]*Room
	usedCodes map[string]bool
	deps      Deps
	rng       *rand.Rand
	mutex     sync.RWMutex
}

// CreateParams is everything the create-room event carries.
type CreateParams struct {
	HostID         string
	HostName       string
	HostAvatar     string
	RoomName       string
	Visible        bool
	TurnDurationMs int
}

// RoomSummary is one row of the public discovery list.
type RoomSummary struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	HostName  string `json:"host_name"`
	Occupancy int    `json:"occupancy"`
	MaxSeats  int    `json:"max_seats"`
	Status    Status `json:"status"`
}

func NewManager(deps Deps) *Manager {
	if deps.MaxSeats <= 0 {
		deps.MaxSeats = 4
	}
	if deps.Settler == nil {
		deps.Settler = NopSettler{}
	}
	return &Manager{
		rooms:     make(map[string]*Room),
		usedCodes: make(map[string]bool),
		deps:      deps,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Manager) CreateRoom(params CreateParams) (*Room, error) {
	if strings.TrimSpace(params.HostID) == "" {
		return nil, ErrSessionExpired
	}

	m.mutex.Lock()
	code := generateRoomCode(m.rng, m.usedCodes)
	m.usedCodes[code] = true

	name := strings.TrimSpace(params.RoomName)
	if name == "" {
		name = params.HostName + "'s room"
	}

	room := &Room{
		Code:         code,
		Name:         name,
		Visible:      params.Visible,
		Status:       StatusLobby,
		TurnDuration: time.Duration(params.TurnDurationMs) * time.Millisecond,
		graceTimers:  make(map[string]int64),
		deps:         &m.deps,
		manager:      m,
		rng:          rand.New(rand.NewSource(m.rng.Int63())),
	}
	room.Players = append(room.Players, &Player{
		ID:     params.HostID,
		Name:   params.HostName,
		Avatar: params.HostAvatar,
		IsHost: true,
	})

	m.rooms[code] = room
	m.mutex.Unlock()

	room.broadcastState()
	return room, nil
}

func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	room, exists := m.rooms[strings.ToUpper(code)]
	return room, exists
}

// RemoveRoom tears the room down and frees its code.
func (m *Manager) RemoveRoom(code string) {
	m.mutex.Lock()
	room, exists := m.rooms[code]
	if exists {
		delete(m.rooms, code)
		delete(m.usedCodes, code)
	}
	m.mutex.Unlock()

	if exists {
		room.mutex.Lock()
		room.teardownLocked()
		room.mutex.Unlock()
	}
}

// removeRoomAsync is used from inside room handlers which already hold the
// room mutex; the manager map is cleaned up off the hot path.
func (m *Manager) removeRoomAsync(code string) {
	go func() {
		m.mutex.Lock()
		delete(m.rooms, code)
		delete(m.usedCodes, code)
		m.mutex.Unlock()
	}()
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CountPlaying reports how many rooms currently have a match in progress.
func (m *Manager) CountPlaying() int {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	count := 0
	for _, room := range rooms {
		room.mutex.Lock()
		if room.Status == StatusPlaying {
			count++
		}
		room.mutex.Unlock()
	}
	return count
}

// PublicRooms lists visible lobbies for discovery.
func (m *Manager) PublicRooms() []RoomSummary {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	var out []RoomSummary
	for _, room := range rooms {
		room.mutex.Lock()
		if room.Visible && !room.closed {
			hostName := ""
			if idx := room.hostIndex(); idx >= 0 {
				hostName = room.Players[idx].Name
			}
			out = append(out, RoomSummary{
				Code:      room.Code,
				Name:      room.Name,
				HostName:  hostName,
				Occupancy: len(room.Players),
				MaxSeats:  m.deps.MaxSeats,
				Status:    room.Status,
			})
		}
		room.mutex.Unlock()
	}
	return out
}
