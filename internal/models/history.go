package models

import "time"

// HistoryRecord is an archived live value. Rows are insert-only.
type HistoryRecord struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	ModelID            string    `gorm:"column:model_id;size:64;not null;uniqueIndex:ux_history_key,priority:1" json:"model_id"`
	PlatformID         string    `gorm:"column:platform_id;size:64;not null;uniqueIndex:ux_history_key,priority:2" json:"platform_id"`
	PeriodDate         string    `gorm:"column:period_date;size:10;not null;uniqueIndex:ux_history_key,priority:3" json:"period_date"`
	PeriodType         string    `gorm:"column:period_type;size:8;not null;uniqueIndex:ux_history_key,priority:4" json:"period_type"`
	Value              float64   `gorm:"column:value;not null" json:"value"`
	ValueUSDBruto      float64   `gorm:"column:value_usd_bruto" json:"value_usd_bruto"`
	ValueUSDModelo     float64   `gorm:"column:value_usd_modelo" json:"value_usd_modelo"`
	ValueCOPModelo     float64   `gorm:"column:value_cop_modelo" json:"value_cop_modelo"`
	PlatformPercentage float64   `gorm:"column:platform_percentage" json:"platform_percentage"`
	RateEURUSD         float64   `gorm:"column:rate_eur_usd" json:"rate_eur_usd"`
	RateGBPUSD         float64   `gorm:"column:rate_gbp_usd" json:"rate_gbp_usd"`
	RateUSDCOP         float64   `gorm:"column:rate_usd_cop" json:"rate_usd_cop"`
	ArchivedAt         time.Time `gorm:"column:archived_at;not null" json:"archived_at"`
	OriginalUpdatedAt  time.Time `gorm:"column:original_updated_at" json:"original_updated_at"`
}

func (HistoryRecord) TableName() string {
	return "calculator_history"
}
