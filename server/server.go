package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/thirteen/broadcast"
	"github.com/wfunc/thirteen/config"
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/monitor"
	"github.com/wfunc/thirteen/network"
	"github.com/wfunc/thirteen/persistence"
	"github.com/wfunc/thirteen/room"
	thirteenrpc "github.com/wfunc/thirteen/rpc"
	"github.com/wfunc/thirteen/services"
	"github.com/wfunc/thirteen/session"
	"github.com/wfunc/thirteen/timer"
)

type GameServer struct {
	addr           string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	scheduler      *timer.Scheduler
	monitor        *monitor.Monitor
	rpcServer      *thirteenrpc.Server
	gameConfig     config.GameConfig
	mutex          sync.Mutex
	shutdownChan   chan struct{}
}

// NewGameServer wires the full serving stack. db, archive and mon may each
// be nil; the matching feature is then disabled.
func NewGameServer(cfg *config.Config, db persistence.Database, archive *persistence.Archive, mon *monitor.Monitor) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		sessionManager: session.NewManager(),
		scheduler:      timer.NewScheduler(),
		monitor:        mon,
		gameConfig:     cfg.Game,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	var settler room.Settler = room.NopSettler{}
	if db != nil {
		settlement := services.NewSettlementService(db, archive)
		settler = settlement

		if cfg.Server.RPCAddress != "" {
			rpcServer, err := thirteenrpc.NewServer(cfg.Server.RPCAddress)
			if err != nil {
				logger.Log.Fatalf("Failed to create RPC server: %v", err)
			}
			s.rpcServer = rpcServer
			if err := thirteenrpc.NewPlayerService(settlement).Register(); err != nil {
				logger.Log.Fatalf("Failed to register RPC service: %v", err)
			}
		}
	}

	deps := room.Deps{
		Broadcaster: broadcast.NewBroadcaster(s.sessionManager, mon),
		Scheduler:   s.scheduler,
		Settler:     settler,
		Grace:       cfg.Game.Grace(),
		BotMinDelay: cfg.Game.BotMinDelay(),
		BotMaxDelay: cfg.Game.BotMaxDelay(),
		MaxSeats:    cfg.Game.MaxSeats,
	}
	if mon != nil {
		deps.OnTurnTimeout = mon.IncTurnTimeouts
	}
	s.roomManager = room.NewManager(deps)

	if mon != nil {
		s.scheduler.ScheduleEvery(10*time.Second, 10*time.Second, func() {
			mon.SetActiveRooms(s.roomManager.Count())
			mon.SetActiveMatches(s.roomManager.CountPlaying())
		})
	}

	return s
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	s.scheduler.Stop()
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

// heartbeatInterval is the expected client heartbeat cadence; a connection
// silent for twice this long is dropped by its read deadline.
const heartbeatInterval = 30 * time.Second

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	if s.monitor != nil {
		s.monitor.IncOnlinePlayers()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		if s.monitor != nil {
			s.monitor.DecOnlinePlayers()
		}
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

// handleDisconnect routes a dropped transport into the room layer. Only a
// session that was still the player's live binding counts as a disconnect;
// a reconnect on another socket has already replaced it.
func (s *GameServer) handleDisconnect(sess *session.Session) {
	playerID, roomCode := sess.Bound()
	if playerID == "" || roomCode == "" {
		return
	}
	if current, exists := s.sessionManager.GetByPlayerID(playerID); !exists || current != sess {
		return
	}
	if r, exists := s.roomManager.GetRoom(roomCode); exists {
		r.Disconnect(playerID)
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if s.monitor != nil {
		s.monitor.IncMessagesReceived()
		defer func() {
			s.monitor.ObserveMessageLatency(time.Since(start))
		}()
	}

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeAddBot:
		s.handleAddBot(sess, packet)
	case network.MsgTypeRemoveBot:
		s.handleRemoveBot(sess, packet)
	case network.MsgTypeSetBotDifficulty:
		s.handleSetBotDifficulty(sess, packet)
	case network.MsgTypeStartMatch:
		s.handleStartMatch(sess, packet)
	case network.MsgTypePlayCards:
		s.handlePlayCards(sess, packet)
	case network.MsgTypePassTurn:
		s.handlePassTurn(sess, packet)
	case network.MsgTypeResync:
		s.handleResync(sess, packet)
	case network.MsgTypeReconnect:
		s.handleReconnect(sess, packet)
	case network.MsgTypeListRooms:
		s.handleListRooms(sess, packet)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}
