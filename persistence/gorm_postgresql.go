package persistence

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/thirteen/models"
)

// GormPostgreSQL is the Database implementation over GORM.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormProfile{}, &models.GormMatchRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveProfile upserts by player id.
func (p *GormPostgreSQL) SaveProfile(profile *models.GormProfile) error {
	var existing models.GormProfile
	result := p.db.Where("player_id = ?", profile.PlayerID).First(&existing)

	if result.Error == gorm.ErrRecordNotFound {
		return p.db.Create(profile).Error
	} else if result.Error != nil {
		return result.Error
	}

	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	return p.db.Save(profile).Error
}

func (p *GormPostgreSQL) LoadProfile(playerID string) (*models.GormProfile, error) {
	var profile models.GormProfile
	if err := p.db.Where("player_id = ?", playerID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (p *GormPostgreSQL) RecordMatch(record *models.GormMatchRecord) error {
	return p.db.Create(record).Error
}

// GetPlayerStats aggregates over recorded matches. A win is rank 1; any
// other rank counts as a loss.
func (p *GormPostgreSQL) GetPlayerStats(playerID string) (*models.PlayerStats, error) {
	var records []models.GormMatchRecord
	err := p.db.
		Where("rankings @> ?", fmt.Sprintf(`[{"player_id": %q}]`, playerID)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	stats := &models.PlayerStats{}
	for _, rec := range records {
		var rankings []models.RankingEntry
		if err := json.Unmarshal(rec.Rankings, &rankings); err != nil {
			continue
		}
		for _, entry := range rankings {
			if entry.PlayerID != playerID {
				continue
			}
			stats.TotalMatches++
			if entry.Rank == 1 {
				stats.Wins++
			} else {
				stats.Losses++
			}
		}
	}

	if profile, err := p.LoadProfile(playerID); err == nil {
		stats.TotalCoins = profile.Coins
	}
	return stats, nil
}

func (p *GormPostgreSQL) Transaction(fn func(tx *gorm.DB) error) error {
	return p.db.Transaction(fn)
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
