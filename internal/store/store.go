// Package store holds the gorm repositories of the billing engine. All
// writes are upserts or deletes keyed by the tables' unique indexes.
package store

import (
	"time"

	"gorm.io/gorm"

	"gestioncalc/internal/models"
)

// Store bundles every repository over one connection.
type Store struct {
	LiveValues *LiveValueRepository
	Frozen     *FrozenPlatformRepository
	History    *HistoryRepository
	Closures   *ClosureStatusRepository
	Totals     *TotalsRepository
	Configs    *CalculatorConfigRepository
	Platforms  *PlatformRepository
	Rates      *RateRepository
}

// New builds all repositories on db.
func New(db *gorm.DB) *Store {
	return &Store{
		LiveValues: NewLiveValueRepository(db),
		Frozen:     NewFrozenPlatformRepository(db),
		History:    NewHistoryRepository(db),
		Closures:   NewClosureStatusRepository(db),
		Totals:     NewTotalsRepository(db),
		Configs:    NewCalculatorConfigRepository(db),
		Platforms:  NewPlatformRepository(db),
		Rates:      NewRateRepository(db),
	}
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
