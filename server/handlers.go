package server

import (
	"encoding/json"

	"github.com/wfunc/thirteen/bot"
	"github.com/wfunc/thirteen/game"
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/network"
	"github.com/wfunc/thirteen/room"
	"github.com/wfunc/thirteen/session"
)

// Request payloads. Identity fields appear only on the binding messages
// (create, join, reconnect); every later message acts as the bound player.
// TurnDurationMs is a pointer so an explicit 0, which disables the turn
// clock, is distinguishable from an absent field, which takes the default.
type createRoomRequest struct {
	PlayerID       string `json:"player_id"`
	Name           string `json:"name"`
	Avatar         string `json:"avatar,omitempty"`
	RoomName       string `json:"room_name,omitempty"`
	Visible        bool   `json:"visible"`
	TurnDurationMs *int   `json:"turn_duration_ms,omitempty"`
}

type joinRoomRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Code     string `json:"code"`
}

type reconnectRequest struct {
	PlayerID string `json:"player_id"`
	Code     string `json:"code"`
}

type botRequest struct {
	BotID      string `json:"bot_id,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type playCardsRequest struct {
	Cards []game.Card `json:"cards"`
}

type roomCreatedResponse struct {
	Code string `json:"code"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type roomListResponse struct {
	Rooms []room.RoomSummary `json:"rooms"`
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	data, marshalErr := json.Marshal(errorResponse{Message: err.Error()})
	if marshalErr != nil {
		return
	}
	if err == room.ErrSessionExpired {
		sess.Send(network.MsgTypeSessionExpired, data)
		return
	}
	sess.Send(network.MsgTypeError, data)
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req createRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	turnMs := s.gameConfig.DefaultTurnMs
	if req.TurnDurationMs != nil {
		turnMs = *req.TurnDurationMs
	}

	r, err := s.roomManager.CreateRoom(room.CreateParams{
		HostID:         req.PlayerID,
		HostName:       req.Name,
		HostAvatar:     req.Avatar,
		RoomName:       req.RoomName,
		Visible:        req.Visible,
		TurnDurationMs: turnMs,
	})
	if err != nil {
		s.sendError(sess, err)
		return
	}

	s.bind(sess, req.PlayerID, r.Code)
	logger.Log.Infow("room created", "code", r.Code, "host", req.PlayerID)

	data, _ := json.Marshal(roomCreatedResponse{Code: r.Code})
	sess.Send(network.MsgTypeRoomCreated, data)
	r.Resync(req.PlayerID)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req joinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.Code)
	if !exists {
		s.sendError(sess, room.ErrRoomNotFound)
		return
	}

	// Bind only after the seat is granted; a rejected join must not steal
	// the player's live delivery session.
	if err := r.Join(req.PlayerID, req.Name, req.Avatar); err != nil {
		s.sendError(sess, err)
		return
	}
	s.bind(sess, req.PlayerID, r.Code)
	r.Resync(req.PlayerID)
}

func (s *GameServer) handleReconnect(sess *session.Session, packet *network.Packet) {
	var req reconnectRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}

	r, exists := s.roomManager.GetRoom(req.Code)
	if !exists {
		s.sendError(sess, room.ErrSessionExpired)
		return
	}

	if err := r.Reconnect(req.PlayerID); err != nil {
		s.sendError(sess, err)
		return
	}
	s.bind(sess, req.PlayerID, r.Code)
	r.Resync(req.PlayerID)
}

// bind attaches player identity to the session and makes it the player's
// live delivery target.
func (s *GameServer) bind(sess *session.Session, playerID, roomCode string) {
	sess.Bind(playerID, roomCode)
	s.sessionManager.BindPlayer(playerID, sess)
}

// boundRoom resolves the acting player and their room from the session.
func (s *GameServer) boundRoom(sess *session.Session) (string, *room.Room, error) {
	playerID, roomCode := sess.Bound()
	if playerID == "" || roomCode == "" {
		return "", nil, room.ErrNotInRoom
	}
	r, exists := s.roomManager.GetRoom(roomCode)
	if !exists {
		return "", nil, room.ErrRoomNotFound
	}
	return playerID, r, nil
}

func (s *GameServer) handleAddBot(sess *session.Session, _ *network.Packet) {
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.AddBot(playerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleRemoveBot(sess *session.Session, packet *network.Packet) {
	var req botRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.RemoveBot(playerID, req.BotID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleSetBotDifficulty(sess *session.Session, packet *network.Packet) {
	var req botRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	difficulty, err := bot.ParseDifficulty(req.Difficulty)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.SetBotDifficulty(playerID, req.BotID, difficulty); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleStartMatch(sess *session.Session, _ *network.Packet) {
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.Start(playerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handlePlayCards(sess *session.Session, packet *network.Packet) {
	var req playCardsRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil {
		return
	}
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.Play(playerID, req.Cards); err != nil {
		s.sendError(sess, err)
		return
	}
	if s.monitor != nil {
		s.monitor.IncMovesPlayed()
	}
}

func (s *GameServer) handlePassTurn(sess *session.Session, _ *network.Packet) {
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.Pass(playerID); err != nil {
		s.sendError(sess, err)
		return
	}
	if s.monitor != nil {
		s.monitor.IncMovesPlayed()
	}
}

func (s *GameServer) handleResync(sess *session.Session, _ *network.Packet) {
	playerID, r, err := s.boundRoom(sess)
	if err != nil {
		s.sendError(sess, err)
		return
	}
	if err := r.Resync(playerID); err != nil {
		s.sendError(sess, err)
	}
}

func (s *GameServer) handleListRooms(sess *session.Session, _ *network.Packet) {
	data, err := json.Marshal(roomListResponse{Rooms: s.roomManager.PublicRooms()})
	if err != nil {
		logger.Log.Errorw("marshal room list", "error", err)
		return
	}
	sess.Send(network.MsgTypeRoomList, data)
}
