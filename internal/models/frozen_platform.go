package models

import "time"

const (
	FreezeSourceAuto   = "auto"
	FreezeSourceManual = "manual"
)

// FrozenPlatform marks a platform whose live value may not change again
// within the period.
type FrozenPlatform struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	PeriodDate string    `gorm:"column:period_date;size:10;not null;uniqueIndex:ux_frozen_platforms_key,priority:1" json:"period_date"`
	ModelID    string    `gorm:"column:model_id;size:64;not null;uniqueIndex:ux_frozen_platforms_key,priority:2" json:"model_id"`
	PlatformID string    `gorm:"column:platform_id;size:64;not null;uniqueIndex:ux_frozen_platforms_key,priority:3" json:"platform_id"`
	Source     string    `gorm:"column:source;size:16;default:'manual'" json:"source"`
	FrozenAt   time.Time `gorm:"column:frozen_at;not null" json:"frozen_at"`
}

func (FrozenPlatform) TableName() string {
	return "calculator_early_frozen_platforms"
}
