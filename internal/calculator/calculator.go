// Package calculator turns raw per-platform inputs into gross and model
// earnings. It is the single implementation of the platform formulas; every
// read path goes through ComputeTotals.
package calculator

import (
	"github.com/shopspring/decimal"

	"gestioncalc/internal/models"
)

// DefaultPercentage is the model share when neither the model nor its group
// configures one.
const DefaultPercentage = 80.0

// Hardcoded rates used when no snapshot is available.
const (
	DefaultUSDCOP = 3900.0
	DefaultEURUSD = 1.01
	DefaultGBPUSD = 1.20
)

// Rates holds the conversion rates the calculator needs.
type Rates struct {
	USDCOP float64 `json:"usd_cop"`
	EURUSD float64 `json:"eur_usd"`
	GBPUSD float64 `json:"gbp_usd"`
}

// DefaultRates returns the hardcoded fallback rates.
func DefaultRates() Rates {
	return Rates{USDCOP: DefaultUSDCOP, EURUSD: DefaultEURUSD, GBPUSD: DefaultGBPUSD}
}

// WithDefaults replaces unusable rates with the hardcoded defaults.
func (r Rates) WithDefaults() Rates {
	if r.USDCOP <= 0 {
		r.USDCOP = DefaultUSDCOP
	}
	if r.EURUSD <= 0 {
		r.EURUSD = DefaultEURUSD
	}
	if r.GBPUSD <= 0 {
		r.GBPUSD = DefaultGBPUSD
	}
	return r
}

// Input is a raw value typed by the model for one platform.
type Input struct {
	PlatformID string  `json:"platform_id"`
	Value      float64 `json:"value"`
}

// ModelConfig is the part of a model's configuration the formulas read.
type ModelConfig struct {
	EnabledPlatforms   []string `json:"enabled_platforms"`
	PercentageOverride *float64 `json:"percentage_override"`
	GroupPercentage    *float64 `json:"group_percentage"`
}

// PlatformResult is the per-platform breakdown.
type PlatformResult struct {
	PlatformID string  `json:"platform_id"`
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	Value      float64 `json:"value"`
	USDBruto   float64 `json:"usd_bruto"`
	USDModelo  float64 `json:"usd_modelo"`
	COPModelo  float64 `json:"cop_modelo"`
	Percentage float64 `json:"percentage"`
}

// Result is the calculator output.
type Result struct {
	TotalUSDBruto  float64          `json:"total_usd_bruto"`
	TotalUSDModelo float64          `json:"total_usd_modelo"`
	TotalCOPModelo float64          `json:"total_cop_modelo"`
	Rates          Rates            `json:"rates"`
	Platforms      []PlatformResult `json:"platforms"`
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func factor(v *float64) decimal.Decimal {
	if v == nil {
		return one
	}
	return dec(*v)
}

// Percentage resolves the model share for a platform: the platform's direct
// payout flag, then the model override, then the group default, then
// DefaultPercentage. An override or group value outside (0,100], zero
// included, is ignored and resolution falls through to the next source.
func Percentage(rule Rule, cfg ModelConfig) float64 {
	if rule.DirectPayout {
		return 100
	}
	if p := cfg.PercentageOverride; p != nil && *p > 0 && *p <= 100 {
		return *p
	}
	if p := cfg.GroupPercentage; p != nil && *p > 0 && *p <= 100 {
		return *p
	}
	return DefaultPercentage
}

// USDBruto converts one raw value to gross USD:
// value × currency rate × token rate × discount factor × tax factor,
// floored at zero.
func USDBruto(rule Rule, value float64, rates Rates) float64 {
	return usdBruto(rule, dec(value), rates.WithDefaults()).InexactFloat64()
}

func usdBruto(rule Rule, value decimal.Decimal, rates Rates) decimal.Decimal {
	base := value
	switch rule.Currency {
	case models.CurrencyEUR:
		base = base.Mul(dec(rates.EURUSD))
	case models.CurrencyGBP:
		base = base.Mul(dec(rates.GBPUSD))
	}
	if rule.TokenRate != nil {
		base = base.Mul(dec(*rule.TokenRate))
	}
	result := base.Mul(factor(rule.DiscountFactor)).Mul(factor(rule.TaxFactor))
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

// ComputeTotals applies the platform rules to the inputs. It has no side
// effects and is fully deterministic: rules are visited in id order and all
// arithmetic is decimal. Duplicate inputs for a platform keep the last one.
// Rules that fail Validate contribute nothing.
func ComputeTotals(rules []Rule, inputs []Input, rates Rates, cfg ModelConfig) Result {
	rates = rates.WithDefaults()

	values := make(map[string]decimal.Decimal, len(inputs))
	for _, in := range inputs {
		values[in.PlatformID] = dec(in.Value)
	}

	var enabled map[string]bool
	if len(cfg.EnabledPlatforms) > 0 {
		enabled = make(map[string]bool, len(cfg.EnabledPlatforms))
		for _, id := range cfg.EnabledPlatforms {
			enabled[id] = true
		}
	}

	usdCOP := dec(rates.USDCOP)
	totalBruto := decimal.Zero
	totalModelo := decimal.Zero
	result := Result{Rates: rates, Platforms: []PlatformResult{}}

	for _, rule := range sortedRules(rules) {
		if !rule.Active || rule.Validate() != nil {
			continue
		}
		if enabled != nil && !enabled[rule.ID] {
			continue
		}
		value, ok := values[rule.ID]
		if !ok || value.IsZero() {
			continue
		}

		bruto := usdBruto(rule, value, rates)
		pct := Percentage(rule, cfg)
		modelo := bruto.Mul(dec(pct)).Div(hundred)

		totalBruto = totalBruto.Add(bruto)
		totalModelo = totalModelo.Add(modelo)

		result.Platforms = append(result.Platforms, PlatformResult{
			PlatformID: rule.ID,
			Name:       rule.Name,
			Currency:   rule.Currency,
			Value:      value.InexactFloat64(),
			USDBruto:   bruto.InexactFloat64(),
			USDModelo:  modelo.InexactFloat64(),
			COPModelo:  modelo.Mul(usdCOP).Round(0).InexactFloat64(),
			Percentage: pct,
		})
	}

	result.TotalUSDBruto = totalBruto.InexactFloat64()
	result.TotalUSDModelo = totalModelo.InexactFloat64()
	result.TotalCOPModelo = totalModelo.Mul(usdCOP).Round(0).InexactFloat64()
	return result
}
