package room

import (
	"encoding/json"
	"time"

	"github.com/wfunc/thirteen/game"
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/network"
)

// SeatView is the public face of one seat. Hands are reduced to a count;
// private cards only ever travel in a HandSnapshot to their owner.
type SeatView struct {
	PlayerID     string `json:"player_id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	CardCount    int    `json:"card_count"`
	IsHost       bool   `json:"is_host"`
	IsBot        bool   `json:"is_bot"`
	Difficulty   string `json:"difficulty,omitempty"`
	HasPassed    bool   `json:"has_passed"`
	IsOffline    bool   `json:"is_offline"`
	FinishedRank int    `json:"finished_rank,omitempty"`
}

// Snapshot is the full observable room state, safe to send to any member.
type Snapshot struct {
	Code            string      `json:"code"`
	Name            string      `json:"name"`
	Status          string      `json:"status"`
	Seats           []SeatView  `json:"seats"`
	CurrentPlayerID string      `json:"current_player_id,omitempty"`
	Pile            []game.Play `json:"pile"`
	FirstPlay       bool        `json:"first_play"`
	Opener          *game.Card  `json:"opener,omitempty"`
	TurnDeadlineMs  int64       `json:"turn_deadline_ms,omitempty"`
	FinishedOrder   []string    `json:"finished_order,omitempty"`
}

// HandSnapshot carries one player's private cards.
type HandSnapshot struct {
	Code  string      `json:"code"`
	Cards []game.Card `json:"cards"`
}

func (r *Room) snapshotLocked() Snapshot {
	snap := Snapshot{
		Code:          r.Code,
		Name:          r.Name,
		Status:        string(r.Status),
		Pile:          r.Pile,
		FirstPlay:     r.FirstPlay,
		FinishedOrder: r.FinishedOrder,
	}
	if r.FirstPlay && r.Status == StatusPlaying {
		opener := r.Opener
		snap.Opener = &opener
	}
	if r.Status == StatusPlaying && r.CurrentSeat < len(r.Players) {
		snap.CurrentPlayerID = r.Players[r.CurrentSeat].ID
	}
	if !r.TurnDeadline.IsZero() {
		if remaining := time.Until(r.TurnDeadline); remaining > 0 {
			snap.TurnDeadlineMs = remaining.Milliseconds()
		}
	}
	for _, p := range r.Players {
		view := SeatView{
			PlayerID:     p.ID,
			Name:         p.Name,
			Avatar:       p.Avatar,
			CardCount:    len(p.Hand),
			IsHost:       p.IsHost,
			IsBot:        p.IsBot,
			HasPassed:    p.HasPassed,
			IsOffline:    p.IsOffline,
			FinishedRank: p.FinishedRank,
		}
		if p.IsBot {
			view.Difficulty = string(p.Difficulty)
		}
		snap.Seats = append(snap.Seats, view)
	}
	return snap
}

// Snapshot returns the observable state. Exposed for handlers and tests.
func (r *Room) Snapshot() Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.snapshotLocked()
}

func (r *Room) humanIDsLocked() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		if !p.IsBot {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (r *Room) broadcastStateLocked() {
	data, err := json.Marshal(r.snapshotLocked())
	if err != nil {
		logger.Log.Errorw("marshal snapshot", "room", r.Code, "error", err)
		return
	}
	r.deps.Broadcaster.SendToPlayers(r.humanIDsLocked(), network.MsgTypeRoomSnapshot, data)
}

// broadcastState is the unlocked entry point used right after creation.
func (r *Room) broadcastState() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.broadcastStateLocked()
}

func (r *Room) sendStateToLocked(p *Player) {
	data, err := json.Marshal(r.snapshotLocked())
	if err != nil {
		logger.Log.Errorw("marshal snapshot", "room", r.Code, "error", err)
		return
	}
	r.deps.Broadcaster.SendToPlayer(p.ID, network.MsgTypeRoomSnapshot, data)
}

func (r *Room) sendHandLocked(p *Player) {
	if p.IsBot {
		return
	}
	data, err := json.Marshal(HandSnapshot{Code: r.Code, Cards: p.Hand})
	if err != nil {
		logger.Log.Errorw("marshal hand", "room", r.Code, "error", err)
		return
	}
	r.deps.Broadcaster.SendToPlayer(p.ID, network.MsgTypeHandSnapshot, data)
}
