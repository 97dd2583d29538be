package models

import (
	"gorm.io/gorm"
)

// GormProfile is the persistent player account row.
type GormProfile struct {
	gorm.Model
	PlayerID      string `gorm:"uniqueIndex;not null"`
	Name          string `gorm:"not null"`
	Level         int    `gorm:"default:1"`
	Experience    int    `gorm:"default:0"`
	Coins         int64  `gorm:"default:1000"`
	Wins          int    `gorm:"default:0"`
	Losses        int    `gorm:"default:0"`
	MatchesPlayed int    `gorm:"default:0"`
}

// GormMatchRecord stores one finished match. Rankings holds the serialized
// []RankingEntry.
type GormMatchRecord struct {
	gorm.Model
	RoomCode    string `gorm:"index;not null"`
	RoomName    string
	DurationSec int    `gorm:"default:0"`
	Rankings    []byte `gorm:"type:jsonb;not null"`
}

// Profile converts the row to its wire form.
func (p *GormProfile) Profile() PlayerProfile {
	return PlayerProfile{
		PlayerID:      p.PlayerID,
		Name:          p.Name,
		Level:         p.Level,
		Experience:    p.Experience,
		Coins:         p.Coins,
		Wins:          p.Wins,
		Losses:        p.Losses,
		MatchesPlayed: p.MatchesPlayed,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
