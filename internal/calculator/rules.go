package calculator

import (
	"fmt"
	"sort"

	"gestioncalc/internal/models"
)

// Rule is the calculator view of a platform. Nil factors count as 1.
type Rule struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Currency       string   `json:"currency"`
	TokenRate      *float64 `json:"token_rate,omitempty"`
	DiscountFactor *float64 `json:"discount_factor,omitempty"`
	TaxFactor      *float64 `json:"tax_factor,omitempty"`
	DirectPayout   bool     `json:"direct_payout"`
	Active         bool     `json:"active"`
}

func f(v float64) *float64 { return &v }

// DefaultRules is the built-in platform table used to seed
// calculator_platforms and as a fallback when the table is empty.
var DefaultRules = []Rule{
	{ID: "chaturbate", Name: "Chaturbate", Currency: models.CurrencyTokens, TokenRate: f(0.05), Active: true},
	{ID: "myfreecams", Name: "MyFreeCams", Currency: models.CurrencyTokens, TokenRate: f(0.05), Active: true},
	{ID: "stripchat", Name: "Stripchat", Currency: models.CurrencyTokens, TokenRate: f(0.05), Active: true},
	{ID: "dxlive", Name: "DX Live", Currency: models.CurrencyTokens, TokenRate: f(0.60), Active: true},
	{ID: "cmd", Name: "CMD", Currency: models.CurrencyUSD, DiscountFactor: f(0.75), Active: true},
	{ID: "camlust", Name: "Camlust", Currency: models.CurrencyUSD, DiscountFactor: f(0.75), Active: true},
	{ID: "skypvt", Name: "SkyPrivate", Currency: models.CurrencyUSD, DiscountFactor: f(0.75), Active: true},
	{ID: "secretfriends", Name: "Secret Friends", Currency: models.CurrencyUSD, DiscountFactor: f(0.5), Active: true},
	{ID: "livejasmin", Name: "LiveJasmin", Currency: models.CurrencyUSD, Active: true},
	{ID: "imlive", Name: "IMLive", Currency: models.CurrencyUSD, Active: true},
	{ID: "xmodels", Name: "XModels", Currency: models.CurrencyUSD, Active: true},
	{ID: "dirtyfans", Name: "DirtyFans", Currency: models.CurrencyUSD, Active: true},
	{ID: "big7", Name: "Big7", Currency: models.CurrencyEUR, TaxFactor: f(0.84), Active: true},
	{ID: "mondo", Name: "Mondo", Currency: models.CurrencyEUR, DiscountFactor: f(0.78), Active: true},
	{ID: "superfoon", Name: "Superfoon", Currency: models.CurrencyEUR, DirectPayout: true, Active: true},
	{ID: "livecreator", Name: "LiveCreator", Currency: models.CurrencyEUR, Active: true},
	{ID: "mdh", Name: "MyDirtyHobby", Currency: models.CurrencyEUR, Active: true},
	{ID: "vx", Name: "VX", Currency: models.CurrencyEUR, Active: true},
	{ID: "777", Name: "777", Currency: models.CurrencyEUR, Active: true},
	{ID: "aw", Name: "AdultWork", Currency: models.CurrencyGBP, DiscountFactor: f(0.677), Active: true},
	{ID: "babestation", Name: "Babestation", Currency: models.CurrencyGBP, Active: true},
}

// DefaultEarlyFreezePlatforms settle against the foreign business day and
// freeze at foreign midnight.
var DefaultEarlyFreezePlatforms = []string{
	"superfoon", "livecreator", "mdh", "777", "xmodels",
	"big7", "mondo", "vx", "babestation", "dirtyfans",
}

// RuleFromModel converts a stored platform into a calculator rule.
func RuleFromModel(p models.Platform) Rule {
	return Rule{
		ID:             p.ID,
		Name:           p.Name,
		Currency:       p.Currency,
		TokenRate:      p.TokenRate,
		DiscountFactor: p.DiscountFactor,
		TaxFactor:      p.TaxFactor,
		DirectPayout:   p.DirectPayout,
		Active:         p.Active,
	}
}

// ToModel converts a rule into its stored form.
func (r Rule) ToModel() models.Platform {
	return models.Platform{
		ID:             r.ID,
		Name:           r.Name,
		Currency:       r.Currency,
		TokenRate:      r.TokenRate,
		DiscountFactor: r.DiscountFactor,
		TaxFactor:      r.TaxFactor,
		DirectPayout:   r.DirectPayout,
		Active:         r.Active,
	}
}

// RulesFromModels converts stored platforms, falling back to DefaultRules
// when none are stored. Platforms that break the rule invariants are left
// out and reported.
func RulesFromModels(platforms []models.Platform) ([]Rule, []error) {
	if len(platforms) == 0 {
		return DefaultRules, nil
	}
	rules := make([]Rule, 0, len(platforms))
	var invalid []error
	for _, p := range platforms {
		r := RuleFromModel(p)
		if err := r.Validate(); err != nil {
			invalid = append(invalid, err)
			continue
		}
		rules = append(rules, r)
	}
	return rules, invalid
}

// sortedRules returns a copy of rules ordered by id.
func sortedRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ValidFactor reports whether a multiplicative factor is in (0,1].
func ValidFactor(v *float64) bool {
	return v == nil || (*v > 0 && *v <= 1)
}

// ValidCurrency reports whether c is a supported settlement currency.
func ValidCurrency(c string) bool {
	switch c {
	case models.CurrencyUSD, models.CurrencyEUR, models.CurrencyGBP, models.CurrencyTokens:
		return true
	}
	return false
}

// Validate checks the currency and that every factor is in (0,1]. Token
// rates must be positive and are required for token platforms.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("platform rule without id")
	}
	if !ValidCurrency(r.Currency) {
		return fmt.Errorf("platform %s: unsupported currency %q", r.ID, r.Currency)
	}
	if !ValidFactor(r.DiscountFactor) {
		return fmt.Errorf("platform %s: discount factor %v outside (0,1]", r.ID, *r.DiscountFactor)
	}
	if !ValidFactor(r.TaxFactor) {
		return fmt.Errorf("platform %s: tax factor %v outside (0,1]", r.ID, *r.TaxFactor)
	}
	if r.TokenRate != nil && *r.TokenRate <= 0 {
		return fmt.Errorf("platform %s: token rate must be positive", r.ID)
	}
	if r.Currency == models.CurrencyTokens && r.TokenRate == nil {
		return fmt.Errorf("platform %s: token platform needs a token rate", r.ID)
	}
	return nil
}
