package persistence

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wfunc/thirteen/models"
)

// Database is the profile and match-record store.
type Database interface {
	SaveProfile(profile *models.GormProfile) error
	LoadProfile(playerID string) (*models.GormProfile, error)
	RecordMatch(record *models.GormMatchRecord) error
	GetPlayerStats(playerID string) (*models.PlayerStats, error)
	Transaction(fn func(tx *gorm.DB) error) error
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
