package models

import (
	"time"
)

// PlayerProfile is the wire-facing view of a persistent player account.
type PlayerProfile struct {
	PlayerID      string    `json:"player_id"`
	Name          string    `json:"name"`
	Level         int       `json:"level"`
	Experience    int       `json:"experience"`
	Coins         int64     `json:"coins"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	MatchesPlayed int       `json:"matches_played"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RankingEntry is one seat's final standing in a recorded match.
type RankingEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	IsBot    bool   `json:"is_bot"`
}

// MatchRecord is the archival form of a finished match.
type MatchRecord struct {
	RoomCode    string         `json:"room_code"`
	RoomName    string         `json:"room_name"`
	DurationSec int            `json:"duration_sec"`
	Rankings    []RankingEntry `json:"rankings"`
	CreatedAt   time.Time      `json:"created_at"`
}

// PlayerStats summarizes a player's match history.
type PlayerStats struct {
	TotalMatches int   `json:"total_matches"`
	Wins         int   `json:"wins"`
	Losses       int   `json:"losses"`
	TotalCoins   int64 `json:"total_coins"`
}
