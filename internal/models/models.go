package models

// All returns every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Platform{},
		&Rate{},
		&CalculatorConfig{},
		&LiveValue{},
		&FrozenPlatform{},
		&PeriodClosureStatus{},
		&HistoryRecord{},
		&ConsolidatedTotals{},
	}
}
