package room

import (
	"time"
)

// Broadcaster delivers outbound messages. Defined here so room never
// imports the transport packages; the broadcast package provides the real
// implementation over the session manager.
type Broadcaster interface {
	SendToPlayer(playerID string, msgID uint16, data []byte)
	SendToPlayers(playerIDs []string, msgID uint16, data []byte)
}

// Scheduler is the slice of the timer manager the room needs. Fired
// callbacks run concurrently with everything else, so every callback
// re-checks room state before acting.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) int64
	Cancel(id int64) bool
}

// PlayerRanking is one row of a finished match.
type PlayerRanking struct {
	PlayerID string
	Name     string
	Rank     int
	IsBot    bool
}

// MatchResult is handed to the settlement collaborator when a match
// finishes.
type MatchResult struct {
	RoomCode  string
	RoomName  string
	StartedAt time.Time
	EndedAt   time.Time
	Rankings  []PlayerRanking
}

// Settler is the external reward/profile settlement collaborator. The room
// calls it exactly once per finished match and never waits on it.
type Settler interface {
	Settle(result MatchResult)
}

// NopSettler is used when no settlement backend is configured.
type NopSettler struct{}

func (NopSettler) Settle(MatchResult) {}
