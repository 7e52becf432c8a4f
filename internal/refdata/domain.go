// Package refdata holds the reference timelines the calculation core
// reads: refinancing rates (normal and moratorium variants), excluded
// periods, and the tariff schedules feeding auto-accrual.
package refdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateKind selects one of the two refinancing-rate timelines.
type RateKind string

const (
	RateNormal     RateKind = "NORMAL"
	RateMoratorium RateKind = "MORATORIUM"
)

// RefinancingRate is a percent rate effective from a date until superseded.
type RefinancingRate struct {
	ID   int64
	Kind RateKind
	From time.Time
	Rate decimal.Decimal
}

// ExcludedPeriod is a date range during which penalty does not accrue.
type ExcludedPeriod struct {
	ID        int64
	AbonentID int64
	From      time.Time
	To        time.Time
	Reason    string
}

// Tariff is a per-square-meter rate pair effective from a date.
type Tariff struct {
	ID      int64
	From    time.Time
	Content decimal.Decimal
	Repair  decimal.Decimal
}

// Sum is the combined per-square-meter rate.
func (t Tariff) Sum() decimal.Decimal { return t.Content.Add(t.Repair) }

// FixedChargeRate is one point of a fixed monthly add-on's rate timeline.
type FixedChargeRate struct {
	From  time.Time
	Value decimal.Decimal
}

// FixedCharge is a fixed monthly add-on independent of area.
type FixedCharge struct {
	ID     int64
	Title  string
	Active bool
	Rates  []FixedChargeRate
}
