package room

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/thirteen/bot"
	"github.com/wfunc/thirteen/game"
)

// Status is the lifecycle stage of a room.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrSessionExpired = errors.New("session expired")
	ErrRoomFull       = errors.New("room is full")
	ErrMatchStarted   = errors.New("match already started")
	ErrMatchNotLive   = errors.New("match is not in progress")
	ErrNotHost        = errors.New("only the host may do that")
	ErrNotInRoom      = errors.New("player is not in this room")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrNotABot        = errors.New("seat is not a bot")
	ErrTooFewPlayers  = errors.New("need at least two players to start")
	ErrLeaderMustPlay = errors.New("round leader must play, not pass")
	ErrCardsNotInHand = errors.New("cards are not in your hand")
)

// Player is one seat in a room. ID is the client-supplied persistent token,
// durable across reconnects within the match.
type Player struct {
	ID           string
	Name         string
	Avatar       string
	Hand         []game.Card
	IsHost       bool
	HasPassed    bool
	FinishedRank int // 0 until the hand empties
	IsBot        bool
	Difficulty   bot.Difficulty
	IsOffline    bool
}

func (p *Player) active() bool {
	return p.FinishedRank == 0
}

// Deps carries everything a room needs from the outside world.
type Deps struct {
	Broadcaster Broadcaster
	Scheduler   Scheduler
	Settler     Settler

	Grace       time.Duration
	BotMinDelay time.Duration
	BotMaxDelay time.Duration
	MaxSeats    int

	// OnTurnTimeout is an optional counter hook fired once per forced move.
	OnTurnTimeout func()
}

// Room holds one match. Every mutation runs under the room mutex; that is
// the serialization guarantee for concurrent player actions and timer
// fires. turnEpoch increments on each accepted mutation, and every
// scheduled callback carries the epoch it was armed against so stale fires
// no-op instead of racing.
type Room struct {
	Code    string
	Name    string
	Visible bool

	Status             Status
	Players            []*Player
	CurrentSeat        int
	Pile               []game.Play
	History            [][]game.Play
	LastPlayerToPlayID string
	FinishedOrder      []string
	FirstPlay          bool
	Opener             game.Card
	TurnDeadline       time.Time
	TurnDuration       time.Duration

	turnEpoch   uint64
	turnTimerID int64
	botTimerID  int64
	graceTimers map[string]int64

	deps      *Deps
	manager   *Manager
	rng       *rand.Rand
	startedAt time.Time
	closed    bool
	mutex     sync.Mutex
}

// Epoch exposes the current turn epoch for tests.
func (r *Room) Epoch() uint64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.turnEpoch
}

func (r *Room) seatIndexOf(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) findPlayer(playerID string) *Player {
	if i := r.seatIndexOf(playerID); i >= 0 {
		return r.Players[i]
	}
	return nil
}

func (r *Room) humanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

func (r *Room) unrankedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.active() {
			n++
		}
	}
	return n
}

// hostIndex returns the current host seat or -1.
func (r *Room) hostIndex() int {
	for i, p := range r.Players {
		if p.IsHost {
			return i
		}
	}
	return -1
}

// promoteHostLocked keeps exactly one human host while any human remains.
func (r *Room) promoteHostLocked() {
	if idx := r.hostIndex(); idx >= 0 && !r.Players[idx].IsBot {
		return
	}
	for _, p := range r.Players {
		p.IsHost = false
	}
	for _, p := range r.Players {
		if !p.IsBot {
			p.IsHost = true
			return
		}
	}
}

// bumpEpochLocked invalidates every outstanding turn-scoped timer.
func (r *Room) bumpEpochLocked() {
	r.turnEpoch++
}

// cancelTurnTimersLocked clears the turn and bot timers. Cancellation can
// race an in-flight fire; the epoch check in the callbacks covers that.
func (r *Room) cancelTurnTimersLocked() {
	if r.turnTimerID != 0 {
		r.deps.Scheduler.Cancel(r.turnTimerID)
		r.turnTimerID = 0
	}
	if r.botTimerID != 0 {
		r.deps.Scheduler.Cancel(r.botTimerID)
		r.botTimerID = 0
	}
}

func (r *Room) cancelGraceTimersLocked() {
	for id, timerID := range r.graceTimers {
		r.deps.Scheduler.Cancel(timerID)
		delete(r.graceTimers, id)
	}
}

// teardownLocked cancels every timer and marks the room dead so late
// callbacks no-op. The manager removes the room from its map.
func (r *Room) teardownLocked() {
	r.closed = true
	r.cancelTurnTimersLocked()
	r.cancelGraceTimersLocked()
}
