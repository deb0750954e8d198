package models

import "time"

// LiveValue is a raw per-platform input for the open period. PeriodDate is
// the bucket date (YYYY-MM-DD, day 01 or 16).
type LiveValue struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ModelID    string    `gorm:"column:model_id;size:64;not null;uniqueIndex:ux_model_values_key,priority:1" json:"model_id"`
	PlatformID string    `gorm:"column:platform_id;size:64;not null;uniqueIndex:ux_model_values_key,priority:2" json:"platform_id"`
	PeriodDate string    `gorm:"column:period_date;size:10;not null;uniqueIndex:ux_model_values_key,priority:3;index" json:"period_date"`
	Value      float64   `gorm:"column:value;not null" json:"value"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (LiveValue) TableName() string {
	return "model_values"
}
