package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestioncalc/internal/models"
)

func ruleByID(t *testing.T, id string) Rule {
	t.Helper()
	for _, r := range DefaultRules {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %s not found", id)
	return Rule{}
}

func pct(v float64) *float64 { return &v }

var testRates = Rates{USDCOP: 4000, EURUSD: 1.01, GBPUSD: 1.25}

func TestTokenPlatformScenario(t *testing.T) {
	res := ComputeTotals(DefaultRules, []Input{{PlatformID: "chaturbate", Value: 1000}}, testRates, ModelConfig{PercentageOverride: pct(80)})

	require.Len(t, res.Platforms, 1)
	assert.Equal(t, 50.0, res.TotalUSDBruto)
	assert.Equal(t, 40.0, res.TotalUSDModelo)
	assert.Equal(t, 160000.0, res.TotalCOPModelo)
	assert.Equal(t, 80.0, res.Platforms[0].Percentage)
}

func TestEURPlatformWithTaxFactorScenario(t *testing.T) {
	res := ComputeTotals(DefaultRules, []Input{{PlatformID: "big7", Value: 100}}, Rates{USDCOP: 3900, EURUSD: 1.01, GBPUSD: 1.2}, ModelConfig{PercentageOverride: pct(80)})

	assert.Equal(t, 84.84, res.TotalUSDBruto)
	assert.Equal(t, 67.872, res.TotalUSDModelo)
	// 67.872 × 3900 = 264700.8
	assert.Equal(t, 264701.0, res.TotalCOPModelo)
}

func TestForeignCurrencyFormula(t *testing.T) {
	cases := []struct {
		rule  Rule
		value float64
		want  float64
	}{
		{Rule{ID: "e1", Currency: "EUR", Active: true}, 200, 202},
		{Rule{ID: "e2", Currency: "EUR", DiscountFactor: pct(0.5), TaxFactor: pct(0.8), Active: true}, 100, 40.4},
		{Rule{ID: "g1", Currency: "GBP", Active: true}, 80, 100},
		{Rule{ID: "g2", Currency: "GBP", DiscountFactor: pct(0.677), Active: true}, 100, 84.625},
		{Rule{ID: "g3", Currency: "GBP", TaxFactor: pct(0.9), Active: true}, -50, 0},
	}

	for _, c := range cases {
		t.Run(c.rule.ID, func(t *testing.T) {
			assert.Equal(t, c.want, USDBruto(c.rule, c.value, testRates))
		})
	}
}

func TestFactorOrderIsConsistent(t *testing.T) {
	a := Rule{ID: "x", Currency: "EUR", DiscountFactor: pct(0.78), TaxFactor: pct(0.84), Active: true}
	b := Rule{ID: "x", Currency: "EUR", DiscountFactor: pct(0.84), TaxFactor: pct(0.78), Active: true}
	assert.Equal(t, USDBruto(a, 123.45, testRates), USDBruto(b, 123.45, testRates))
}

func TestDirectPayoutIgnoresModelPercentage(t *testing.T) {
	cfg := ModelConfig{PercentageOverride: pct(60), GroupPercentage: pct(70)}
	res := ComputeTotals(DefaultRules, []Input{{PlatformID: "superfoon", Value: 10}}, testRates, cfg)

	require.Len(t, res.Platforms, 1)
	assert.Equal(t, 100.0, res.Platforms[0].Percentage)
	assert.Equal(t, res.TotalUSDBruto, res.TotalUSDModelo)
	assert.Equal(t, 10.1, res.TotalUSDModelo)
}

func TestPercentagePrecedence(t *testing.T) {
	rule := Rule{ID: "livejasmin", Currency: "USD", Active: true}

	assert.Equal(t, 65.0, Percentage(rule, ModelConfig{PercentageOverride: pct(65), GroupPercentage: pct(70)}))
	assert.Equal(t, 70.0, Percentage(rule, ModelConfig{GroupPercentage: pct(70)}))
	assert.Equal(t, DefaultPercentage, Percentage(rule, ModelConfig{}))
	assert.Equal(t, 70.0, Percentage(rule, ModelConfig{PercentageOverride: pct(0), GroupPercentage: pct(70)}))
	assert.Equal(t, 70.0, Percentage(rule, ModelConfig{PercentageOverride: pct(120), GroupPercentage: pct(70)}))
	assert.Equal(t, DefaultPercentage, Percentage(rule, ModelConfig{PercentageOverride: pct(-5), GroupPercentage: pct(0)}))
}

func TestDefaultPercentageIsEighty(t *testing.T) {
	res := ComputeTotals(DefaultRules, []Input{{PlatformID: "livejasmin", Value: 100}}, testRates, ModelConfig{})
	assert.Equal(t, 80.0, res.TotalUSDModelo)
}

func TestComputeTotalsIsDeterministic(t *testing.T) {
	inputs := []Input{
		{PlatformID: "big7", Value: 133.37},
		{PlatformID: "aw", Value: 77.7},
		{PlatformID: "chaturbate", Value: 12345},
		{PlatformID: "mondo", Value: 0.1},
		{PlatformID: "cmd", Value: 0.2},
		{PlatformID: "skypvt", Value: 0.3},
	}
	reversed := make([]Input, len(inputs))
	for i := range inputs {
		reversed[len(inputs)-1-i] = inputs[i]
	}
	rulesReversed := make([]Rule, len(DefaultRules))
	for i := range DefaultRules {
		rulesReversed[len(DefaultRules)-1-i] = DefaultRules[i]
	}

	cfg := ModelConfig{GroupPercentage: pct(75)}
	first := ComputeTotals(DefaultRules, inputs, testRates, cfg)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, ComputeTotals(DefaultRules, inputs, testRates, cfg))
	}
	assert.Equal(t, first, ComputeTotals(rulesReversed, reversed, testRates, cfg))
}

func TestSkipsDisabledInactiveUnknownAndZero(t *testing.T) {
	rules := append([]Rule{}, DefaultRules...)
	rules = append(rules, Rule{ID: "retired", Currency: "USD", Active: false})

	inputs := []Input{
		{PlatformID: "livejasmin", Value: 100},
		{PlatformID: "imlive", Value: 100},
		{PlatformID: "retired", Value: 100},
		{PlatformID: "unknown", Value: 100},
		{PlatformID: "xmodels", Value: 0},
	}
	cfg := ModelConfig{EnabledPlatforms: []string{"livejasmin", "retired", "xmodels"}}

	res := ComputeTotals(rules, inputs, testRates, cfg)
	require.Len(t, res.Platforms, 1)
	assert.Equal(t, "livejasmin", res.Platforms[0].PlatformID)
	assert.Equal(t, 100.0, res.TotalUSDBruto)
}

func TestMissingRatesFallBackToDefaults(t *testing.T) {
	res := ComputeTotals(DefaultRules, []Input{{PlatformID: "big7", Value: 100}}, Rates{}, ModelConfig{})

	assert.Equal(t, DefaultRates(), res.Rates)
	assert.Equal(t, 84.84, res.TotalUSDBruto)
	assert.Equal(t, 264701.0, res.TotalCOPModelo)
}

func TestEmptyInputsYieldZeroResult(t *testing.T) {
	res := ComputeTotals(DefaultRules, nil, testRates, ModelConfig{})
	assert.Zero(t, res.TotalUSDBruto)
	assert.Zero(t, res.TotalUSDModelo)
	assert.Zero(t, res.TotalCOPModelo)
	assert.Empty(t, res.Platforms)
}

func TestDefaultRulesAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range DefaultRules {
		assert.False(t, seen[r.ID], "duplicate rule %s", r.ID)
		seen[r.ID] = true
		assert.NoError(t, r.Validate())
	}
	for _, id := range DefaultEarlyFreezePlatforms {
		assert.True(t, seen[id], "early freeze platform %s has no rule", id)
	}
}

func TestInvalidRulesNeverContribute(t *testing.T) {
	over, zero := 1.5, 0.0
	cases := []Rule{
		{ID: "overdiscount", Currency: "USD", DiscountFactor: &over, Active: true},
		{ID: "zerotax", Currency: "EUR", TaxFactor: &zero, Active: true},
		{ID: "yen", Currency: "JPY", Active: true},
		{ID: "notokenrate", Currency: "TOKENS", Active: true},
	}
	for _, bad := range cases {
		t.Run(bad.ID, func(t *testing.T) {
			assert.Error(t, bad.Validate())

			inputs := []Input{{PlatformID: "livejasmin", Value: 100}, {PlatformID: bad.ID, Value: 100}}
			res := ComputeTotals(append([]Rule{bad}, DefaultRules...), inputs, testRates, ModelConfig{})
			require.Len(t, res.Platforms, 1)
			assert.Equal(t, "livejasmin", res.Platforms[0].PlatformID)
			assert.Equal(t, 100.0, res.TotalUSDBruto)
		})
	}
}

func TestRulesFromModelsDropsInvalidPlatforms(t *testing.T) {
	over := 1.5
	rules, invalid := RulesFromModels(nil)
	assert.Equal(t, DefaultRules, rules)
	assert.Empty(t, invalid)

	rules, invalid = RulesFromModels([]models.Platform{
		{ID: "livejasmin", Currency: models.CurrencyUSD, Active: true},
		{ID: "bad", Currency: models.CurrencyUSD, DiscountFactor: &over, Active: true},
		{ID: "yen", Currency: "JPY", Active: true},
	})
	require.Len(t, rules, 1)
	assert.Equal(t, "livejasmin", rules[0].ID)
	assert.Len(t, invalid, 2)
}
