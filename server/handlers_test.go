package server

import (
	"encoding/json"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/thirteen/config"
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/network"
	"github.com/wfunc/thirteen/session"
)

func TestMain(m *testing.M) {
	logger.InitDevelopment()
	os.Exit(m.Run())
}

// stubConn records every frame written to it.
type stubConn struct {
	mu      sync.Mutex
	packets []network.Packet
}

func (c *stubConn) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	c.packets = append(c.packets, network.Packet{MsgID: msgID, Data: data})
	c.mu.Unlock()
	return nil
}
func (c *stubConn) Close() error                         { return nil }
func (c *stubConn) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (c *stubConn) SetHeartbeat(interval time.Duration)  {}
func (c *stubConn) ReadPacket() (*network.Packet, error) { return nil, nil }

// lastOf returns the most recent frame with the given message id.
func (c *stubConn) lastOf(msgID uint16) (network.Packet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.packets) - 1; i >= 0; i-- {
		if c.packets[i].MsgID == msgID {
			return c.packets[i], true
		}
	}
	return network.Packet{}, false
}

func newTestServer() *GameServer {
	cfg := &config.Config{
		Server: config.ServerConfig{HTTPAddress: ":0"},
		Game: config.GameConfig{
			DefaultTurnMs: 30000,
			GraceMs:       60000,
			BotMinDelayMs: 1,
			BotMaxDelayMs: 2,
			MaxSeats:      4,
		},
	}
	return NewGameServer(cfg, nil, nil, nil)
}

func newTestSession(s *GameServer, id string) (*session.Session, *stubConn) {
	conn := &stubConn{}
	sess := session.NewSession(id, conn)
	s.sessionManager.Add(sess)
	return sess, conn
}

func packetOf(t *testing.T, msgID uint16, v interface{}) *network.Packet {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return &network.Packet{MsgID: msgID, Data: data}
}

func createdRoomCode(t *testing.T, conn *stubConn) string {
	t.Helper()
	p, ok := conn.lastOf(network.MsgTypeRoomCreated)
	if !ok {
		t.Fatal("no room-created response")
	}
	var resp roomCreatedResponse
	if err := json.Unmarshal(p.Data, &resp); err != nil {
		t.Fatalf("unmarshal room-created: %v", err)
	}
	return resp.Code
}

func TestCreateRoomTurnDuration(t *testing.T) {
	s := newTestServer()

	// An absent turn_duration_ms takes the configured default.
	sess, conn := newTestSession(s, "s1")
	s.handleCreateRoom(sess, packetOf(t, network.MsgTypeCreateRoom, map[string]interface{}{
		"player_id": "p1", "name": "host", "visible": true,
	}))
	r, exists := s.roomManager.GetRoom(createdRoomCode(t, conn))
	if !exists {
		t.Fatal("room not registered")
	}
	if r.TurnDuration != 30*time.Second {
		t.Errorf("TurnDuration = %v, want 30s default", r.TurnDuration)
	}

	// An explicit zero disables the turn clock instead of being swallowed
	// by the default.
	sess2, conn2 := newTestSession(s, "s2")
	s.handleCreateRoom(sess2, packetOf(t, network.MsgTypeCreateRoom, map[string]interface{}{
		"player_id": "p2", "name": "host", "visible": true, "turn_duration_ms": 0,
	}))
	r2, exists := s.roomManager.GetRoom(createdRoomCode(t, conn2))
	if !exists {
		t.Fatal("room not registered")
	}
	if r2.TurnDuration != 0 {
		t.Errorf("TurnDuration = %v, want 0 (timer disabled)", r2.TurnDuration)
	}
}

func TestJoinRoomBindsOnlyOnSuccess(t *testing.T) {
	s := newTestServer()

	host, hostConn := newTestSession(s, "s1")
	s.handleCreateRoom(host, packetOf(t, network.MsgTypeCreateRoom, map[string]interface{}{
		"player_id": "p0", "name": "host", "visible": true,
	}))
	code := createdRoomCode(t, hostConn)

	r, _ := s.roomManager.GetRoom(code)
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := r.Join(id, "player "+id, ""); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}

	// The room is full: the join must be rejected and the session must
	// stay unbound, with no delivery binding registered for the player.
	late, lateConn := newTestSession(s, "s2")
	s.handleJoinRoom(late, packetOf(t, network.MsgTypeJoinRoom, map[string]interface{}{
		"player_id": "p9", "name": "late", "code": code,
	}))

	if _, ok := lateConn.lastOf(network.MsgTypeError); !ok {
		t.Error("rejected join sent no error")
	}
	if playerID, roomCode := late.Bound(); playerID != "" || roomCode != "" {
		t.Errorf("rejected join bound the session: %q %q", playerID, roomCode)
	}
	if _, exists := s.sessionManager.GetByPlayerID("p9"); exists {
		t.Error("rejected join registered a delivery binding")
	}
}

func TestJoinRoomRejectedKeepsLiveBinding(t *testing.T) {
	s := newTestServer()

	host, hostConn := newTestSession(s, "s1")
	s.handleCreateRoom(host, packetOf(t, network.MsgTypeCreateRoom, map[string]interface{}{
		"player_id": "p0", "name": "host", "visible": true,
	}))
	code := createdRoomCode(t, hostConn)

	r, _ := s.roomManager.GetRoom(code)
	mate, _ := newTestSession(s, "s2")
	s.handleJoinRoom(mate, packetOf(t, network.MsgTypeJoinRoom, map[string]interface{}{
		"player_id": "p1", "name": "mate", "code": code,
	}))
	if err := r.Start("p0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A second socket claiming an unknown id against the running match is
	// rejected and must not disturb the seated player's binding.
	intruder, _ := newTestSession(s, "s3")
	s.handleJoinRoom(intruder, packetOf(t, network.MsgTypeJoinRoom, map[string]interface{}{
		"player_id": "p7", "name": "intruder", "code": code,
	}))

	current, exists := s.sessionManager.GetByPlayerID("p1")
	if !exists || current != mate {
		t.Error("seated player's delivery binding was disturbed")
	}
	if _, exists := s.sessionManager.GetByPlayerID("p7"); exists {
		t.Error("rejected mid-match join registered a binding")
	}
}
