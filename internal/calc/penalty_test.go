package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func unpaidObligation(amount string, year int, month time.Month) *Obligation {
	return &Obligation{
		Key:     MonthKey(year, month),
		Amount:  dec(amount),
		DueDate: DueDate(year, month),
	}
}

func TestPenaltyZeroUpToDueDate(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January) // due 2025-02-10
	got := PenaltyForObligation(ob, ob.DueDate, nil, flatRate("10"))
	require.True(t, got.IsZero())
	got = PenaltyForObligation(ob, AddDays(ob.DueDate, -5), nil, flatRate("10"))
	require.True(t, got.IsZero())
}

// Penalty as of due+30 is exactly zero; due+31 is strictly positive.
func TestPenaltyGracePeriod(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January)
	atGraceEnd := PenaltyForObligation(ob, AddDays(ob.DueDate, 30), nil, flatRate("10"))
	require.True(t, atGraceEnd.IsZero())

	afterGrace := PenaltyForObligation(ob, AddDays(ob.DueDate, 31), nil, flatRate("10"))
	require.True(t, afterGrace.Sign() > 0)
	// Day 31 in the first tier: 100 * 9.5% / 300 (10% capped to 9.5 before 2027).
	require.True(t, Round2(afterGrace).Equal(dec("0.03")), "got %s", afterGrace)
}

func TestPenaltyTierSwitchAtDay90(t *testing.T) {
	ob := unpaidObligation("300", 2025, time.January)
	rates := flatRate("9.5")

	at90 := PenaltyForObligation(ob, AddDays(ob.DueDate, 90), nil, rates)
	at91 := PenaltyForObligation(ob, AddDays(ob.DueDate, 91), nil, rates)

	// Day 91 accrues 300 * 9.5% / 130 instead of /300.
	day91 := at91.Sub(at90)
	require.True(t, Round2(day91).Equal(Round2(dec("300").Mul(dec("9.5")).Div(dec("100")).Div(dec("130")))),
		"day 91 increment %s", day91)
}

func TestPenaltyRateCapBefore2027(t *testing.T) {
	// 16% on 2026-06-01 is capped to 9.5; on 2027-06-01 it applies as is.
	require.True(t, CapRate(Day(2026, time.June, 1), dec("16")).Equal(dec("9.5")))
	require.True(t, CapRate(Day(2027, time.June, 1), dec("16")).Equal(dec("16")))
	require.True(t, CapRate(Day(2026, time.June, 1), dec("8")).Equal(dec("8")))
}

func TestPenaltyExcludedDaysSuspendAccrual(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January)
	asOf := AddDays(ob.DueDate, 60)
	base := PenaltyForObligation(ob, asOf, nil, flatRate("9.5"))

	// A one-day exclusion inside the penalized window strictly decreases
	// the penalty: the day accrues nothing, and because excluded days do
	// not advance the overdue index the walk ends one index earlier.
	excl := []Period{{From: AddDays(ob.DueDate, 40), To: AddDays(ob.DueDate, 40)}}
	withExcl := PenaltyForObligation(ob, asOf, excl, flatRate("9.5"))
	require.True(t, withExcl.LessThan(base))
}

// Excluded days must not consume grace-period slots: with the first 10
// days after due excluded, the 30 grace days cover calendar days 11..40,
// so nothing accrues until day 41.
func TestPenaltyExclusionDoesNotEatGrace(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January)
	excl := []Period{{From: AddDays(ob.DueDate, 1), To: AddDays(ob.DueDate, 10)}}

	got := PenaltyForObligation(ob, AddDays(ob.DueDate, 40), excl, flatRate("9.5"))
	require.True(t, got.IsZero())

	got = PenaltyForObligation(ob, AddDays(ob.DueDate, 41), excl, flatRate("9.5"))
	require.True(t, got.Sign() > 0)
}

func TestPenaltyStopsWhenPrincipalPaid(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January)
	payDay := AddDays(ob.DueDate, 45)
	ob.Applications = []Application{{Date: payDay, Amount: dec("100"), RowID: 9}}

	atPay := PenaltyForObligation(ob, payDay, nil, flatRate("9.5"))
	later := PenaltyForObligation(ob, AddDays(payDay, 200), nil, flatRate("9.5"))
	require.True(t, later.Sub(atPay).Abs().LessThan(dec("0.005")),
		"penalty kept accruing after full payment: %s -> %s", atPay, later)
}

func TestPenaltyPartialPaymentReducesBase(t *testing.T) {
	full := unpaidObligation("200", 2025, time.January)
	half := unpaidObligation("200", 2025, time.January)
	half.Applications = []Application{{Date: AddDays(half.DueDate, 1), Amount: dec("100"), RowID: 1}}

	asOf := AddDays(full.DueDate, 60)
	require.True(t, PenaltyForObligation(half, asOf, nil, flatRate("9.5")).
		LessThan(PenaltyForObligation(full, asOf, nil, flatRate("9.5"))))
}

func TestPenaltyTenYearCap(t *testing.T) {
	ob := unpaidObligation("100", 2010, time.January)
	at10y := PenaltyForObligation(ob, AddDays(ob.DueDate, 3650), nil, flatRate("9.5"))
	at20y := PenaltyForObligation(ob, AddDays(ob.DueDate, 7300), nil, flatRate("9.5"))
	require.True(t, at10y.Equal(at20y))
}

func TestPenaltyNoRateTimeline(t *testing.T) {
	ob := unpaidObligation("100", 2025, time.January)
	require.True(t, PenaltyForObligation(ob, AddDays(ob.DueDate, 120), nil, nil).IsZero())
}

func TestPenaltyMissingDueDatePanics(t *testing.T) {
	ob := &Obligation{Key: "2025-01", Amount: dec("100")}
	require.Panics(t, func() {
		PenaltyForObligation(ob, Day(2025, time.June, 1), nil, flatRate("9.5"))
	})
}

func TestRateOnDate(t *testing.T) {
	rates := []Rate{
		{From: Day(2025, time.January, 1), Rate: dec("16")},
		{From: Day(2025, time.June, 1), Rate: dec("18")},
	}
	r, ok := RateOnDate(Day(2025, time.March, 1), rates)
	require.True(t, ok)
	require.True(t, r.Equal(dec("16")))

	r, ok = RateOnDate(Day(2025, time.June, 1), rates)
	require.True(t, ok)
	require.True(t, r.Equal(dec("18")))

	_, ok = RateOnDate(Day(2024, time.December, 31), rates)
	require.False(t, ok)
}
