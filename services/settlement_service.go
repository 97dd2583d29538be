package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/models"
	"github.com/wfunc/thirteen/persistence"
	"github.com/wfunc/thirteen/room"
)

// Reward deltas by finishing rank. Ranks past the table earn nothing.
var (
	coinRewards = []int64{100, 40, 0, -20}
	xpRewards   = []int{50, 25, 10, 5}
)

// SettlementService applies match outcomes to player accounts. It satisfies
// the room package's Settler interface.
type SettlementService struct {
	db      persistence.Database
	archive *persistence.Archive
}

// NewSettlementService wires the settlement path. archive may be nil.
func NewSettlementService(db persistence.Database, archive *persistence.Archive) *SettlementService {
	return &SettlementService{db: db, archive: archive}
}

// Settle records the match and credits every human seat. Bots hold no
// accounts and are skipped. Called off the room's lock; failures are logged
// and never fed back into the match.
func (s *SettlementService) Settle(result room.MatchResult) {
	record := s.buildRecord(result)

	if err := s.db.RecordMatch(record); err != nil {
		logger.Log.Errorw("record match", "room", result.RoomCode, "error", err)
	}

	for _, ranking := range result.Rankings {
		if ranking.IsBot {
			continue
		}
		if err := s.creditPlayer(ranking); err != nil {
			logger.Log.Errorw("credit player", "room", result.RoomCode,
				"player", ranking.PlayerID, "error", err)
		}
	}

	if s.archive != nil {
		rec := s.wireRecord(result)
		if err := s.archive.AppendMatch(&rec); err != nil {
			logger.Log.Errorw("archive match", "room", result.RoomCode, "error", err)
		}
	}
}

func (s *SettlementService) buildRecord(result room.MatchResult) *models.GormMatchRecord {
	rec := s.wireRecord(result)
	rankings, err := json.Marshal(rec.Rankings)
	if err != nil {
		rankings = []byte("[]")
	}
	return &models.GormMatchRecord{
		RoomCode:    rec.RoomCode,
		RoomName:    rec.RoomName,
		DurationSec: rec.DurationSec,
		Rankings:    rankings,
	}
}

func (s *SettlementService) wireRecord(result room.MatchResult) models.MatchRecord {
	rec := models.MatchRecord{
		RoomCode:    result.RoomCode,
		RoomName:    result.RoomName,
		DurationSec: int(result.EndedAt.Sub(result.StartedAt).Seconds()),
	}
	for _, ranking := range result.Rankings {
		rec.Rankings = append(rec.Rankings, models.RankingEntry{
			PlayerID: ranking.PlayerID,
			Name:     ranking.Name,
			Rank:     ranking.Rank,
			IsBot:    ranking.IsBot,
		})
	}
	return rec
}

// creditPlayer applies coin and experience deltas atomically, creating the
// account on first sight. Coins never go below zero.
func (s *SettlementService) creditPlayer(ranking room.PlayerRanking) error {
	coins, xp := rewardsForRank(ranking.Rank)

	return s.db.Transaction(func(tx *gorm.DB) error {
		var profile models.GormProfile
		err := tx.Where("player_id = ?", ranking.PlayerID).First(&profile).Error
		if err == gorm.ErrRecordNotFound {
			profile = models.GormProfile{
				PlayerID: ranking.PlayerID,
				Name:     ranking.Name,
				Level:    1,
				Coins:    1000,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		profile.Coins += coins
		if profile.Coins < 0 {
			profile.Coins = 0
		}
		profile.Experience += xp
		profile.Level = levelForExperience(profile.Experience)
		profile.MatchesPlayed++
		if ranking.Rank == 1 {
			profile.Wins++
		} else {
			profile.Losses++
		}
		profile.Name = ranking.Name

		return tx.Save(&profile).Error
	})
}

func rewardsForRank(rank int) (coins int64, xp int) {
	if rank < 1 {
		return 0, 0
	}
	if rank <= len(coinRewards) {
		coins = coinRewards[rank-1]
	}
	if rank <= len(xpRewards) {
		xp = xpRewards[rank-1]
	} else {
		xp = 5
	}
	return coins, xp
}

// levelForExperience is a flat curve: 100 xp per level.
func levelForExperience(xp int) int {
	return 1 + xp/100
}

// GetPlayerWithStats returns a player's profile alongside aggregate match
// statistics. Used by the admin RPC surface.
func (s *SettlementService) GetPlayerWithStats(playerID string) (*models.PlayerProfile, *models.PlayerStats, error) {
	gormProfile, err := s.db.LoadProfile(playerID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := s.db.GetPlayerStats(playerID)
	if err != nil {
		return nil, nil, err
	}
	profile := gormProfile.Profile()
	return &profile, stats, nil
}
