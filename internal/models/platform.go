package models

import "time"

// Settlement currencies a platform can pay out in.
const (
	CurrencyUSD    = "USD"
	CurrencyEUR    = "EUR"
	CurrencyGBP    = "GBP"
	CurrencyTokens = "TOKENS"
)

// Platform is an admin-curated earnings rule for one streaming platform.
type Platform struct {
	ID             string    `gorm:"column:id;primaryKey;size:64" json:"id"`
	Name           string    `gorm:"column:name;size:128;not null" json:"name"`
	Currency       string    `gorm:"column:currency;size:10;not null" json:"currency"`
	TokenRate      *float64  `gorm:"column:token_rate" json:"token_rate,omitempty"`
	DiscountFactor *float64  `gorm:"column:discount_factor" json:"discount_factor,omitempty"`
	TaxFactor      *float64  `gorm:"column:tax_factor" json:"tax_factor,omitempty"`
	DirectPayout   bool      `gorm:"column:direct_payout;default:false" json:"direct_payout"`
	Active         bool      `gorm:"column:active;default:true" json:"active"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Platform) TableName() string {
	return "calculator_platforms"
}
