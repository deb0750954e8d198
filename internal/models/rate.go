package models

import "time"

// RateKind identifies a conversion pair.
type RateKind string

const (
	RateUSDCOP RateKind = "USD_COP"
	RateEURUSD RateKind = "EUR_USD"
	RateGBPUSD RateKind = "GBP_USD"
)

// RateKinds lists every kind the calculator needs.
var RateKinds = []RateKind{RateUSDCOP, RateEURUSD, RateGBPUSD}

// Rate is a conversion rate snapshot. The current snapshot of a kind is the
// active one with no ValidTo.
type Rate struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	Kind      RateKind   `gorm:"column:kind;size:16;not null;index:idx_rates_kind_valid_from,priority:1" json:"kind"`
	Value     float64    `gorm:"column:value;not null" json:"value"`
	ValidFrom time.Time  `gorm:"column:valid_from;not null;index:idx_rates_kind_valid_from,priority:2" json:"valid_from"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to"`
	Active    bool       `gorm:"column:active;default:true" json:"active"`
	Source    string     `gorm:"column:source;size:64" json:"source"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Rate) TableName() string {
	return "rates"
}
