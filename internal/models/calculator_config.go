package models

import (
	"time"

	"gorm.io/datatypes"
)

// CalculatorConfig is a model's calculator configuration.
type CalculatorConfig struct {
	ID                 uint                        `gorm:"primarykey" json:"id"`
	ModelID            string                      `gorm:"column:model_id;size:64;not null;index" json:"model_id"`
	GroupID            string                      `gorm:"column:group_id;size:64" json:"group_id"`
	Active             bool                        `gorm:"column:active;default:true" json:"active"`
	EnabledPlatforms   datatypes.JSONSlice[string] `gorm:"column:enabled_platforms" json:"enabled_platforms"`
	PercentageOverride *float64                    `gorm:"column:percentage_override" json:"percentage_override"`
	GroupPercentage    *float64                    `gorm:"column:group_percentage" json:"group_percentage"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time                   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (CalculatorConfig) TableName() string {
	return "calculator_config"
}
