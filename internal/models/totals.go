package models

import "time"

// ConsolidatedTotals caches the calculator output for a model and period.
// It can always be rebuilt from live values, rules and rates.
type ConsolidatedTotals struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	ModelID        string    `gorm:"column:model_id;size:64;not null;uniqueIndex:ux_totals_key,priority:1" json:"model_id"`
	PeriodDate     string    `gorm:"column:period_date;size:10;not null;uniqueIndex:ux_totals_key,priority:2" json:"period_date"`
	TotalUSDBruto  float64   `gorm:"column:total_usd_bruto" json:"total_usd_bruto"`
	TotalUSDModelo float64   `gorm:"column:total_usd_modelo" json:"total_usd_modelo"`
	TotalCOPModelo float64   `gorm:"column:total_cop_modelo" json:"total_cop_modelo"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ConsolidatedTotals) TableName() string {
	return "calculator_totals"
}
