package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTotalsIdempotent(t *testing.T) {
	in := Input{
		Rows: []Row{
			accrualRow(1, 2025, 1, "200"),
			paymentRow(2, 2025, 2, "150", Day(2025, time.February, 20)),
		},
		AsOf:    Day(2025, time.June, 1),
		Rates:   flatRate("9.5"),
		Options: Options{ApplyAdvanceOffset: true, AllowNegativePrincipal: true},
	}
	first := TotalsAdjusted(in)
	second := TotalsAdjusted(in)
	require.True(t, first.Principal.Equal(second.Principal))
	require.True(t, first.PenaltyDebt.Equal(second.PenaltyDebt))
	require.True(t, first.Total.Equal(second.Total))
	require.True(t, first.AdvanceUpTo.Equal(second.AdvanceUpTo))
}

// Overpayment covers the penalty before it shows as credit: one
// obligation of 100, one payment of 150 made long past the due date and
// not eligible for the obligation's month, with a would-be penalty of
// about 5 — the 50 surplus zeroes the penalty first.
func TestAdvanceOffsetsPenaltyFirst(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "100"), // due 2025-02-10
		paymentRow(2, 2025, 8, "150", Day(2025, time.August, 1)),
	}
	asOf := Day(2025, time.August, 1)
	in := Input{Rows: rows, AsOf: asOf, Rates: flatRate("9.5"),
		Options: Options{ApplyAdvanceOffset: true, AllowNegativePrincipal: true}}

	core := TotalsCore(in)
	require.True(t, core.AdvanceUpTo.Equal(dec("150")))
	require.True(t, core.PrincipalAdj.Equal(dec("-50")))
	require.True(t, core.PenaltyAccruedTotal.Sign() > 0)

	adj := TotalsAdjusted(in)
	require.True(t, adj.PenaltyDebt.IsZero(), "advance must absorb penalty, got %s", adj.PenaltyDebt)
	wantPrincipal := dec("-50").Add(core.PenaltyAccruedTotal)
	require.True(t, adj.Principal.Equal(wantPrincipal), "got %s want %s", adj.Principal, wantPrincipal)

	in.Options.AllowNegativePrincipal = false
	clamped := TotalsAdjusted(in)
	require.True(t, clamped.Principal.IsZero())
	require.True(t, clamped.PenaltyDebt.IsZero())
	require.True(t, clamped.Total.IsZero())
}

// Regression scenario from the demo dataset: obligations Jan/Feb 2025 of
// 200 each, a single undesignated payment of 3870 on 2025-02-10. Only the
// February obligation is eligible, the rest becomes advance.
func TestTotalsRegressionScenario(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "200"),
		accrualRow(2, 2025, 2, "200"),
		paymentRow(3, 2025, 2, "3870", Day(2025, time.February, 10)),
	}
	asOf := Day(2025, time.February, 10)

	in := Input{Rows: rows, AsOf: asOf, Rates: flatRate("9.5"),
		Options: Options{ApplyAdvanceOffset: true, AllowNegativePrincipal: true}}
	core := TotalsCore(in)
	require.True(t, core.AdvanceUpTo.Equal(dec("3670")), "advance %s", core.AdvanceUpTo)
	require.True(t, core.PenaltyAccruedTotal.IsZero())

	adj := TotalsAdjusted(in)
	require.True(t, adj.PenaltyDebt.IsZero())
	require.True(t, adj.Principal.Equal(dec("-3470")), "principal %s", adj.Principal)

	in.Options.AllowNegativePrincipal = false
	require.True(t, TotalsAdjusted(in).Principal.IsZero())
}

func TestTotalsResponsibilityRangeFiltersMonths(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2024, 6, "500"), // before responsibility
		accrualRow(2, 2025, 1, "200"),
	}
	in := Input{
		Rows:  rows,
		AsOf:  Day(2025, time.March, 1),
		Range: &Range{From: Day(2025, time.January, 1)},
		Rates: flatRate("9.5"),
	}
	core := TotalsCore(in)
	require.True(t, core.PrincipalAdj.Equal(dec("200")))
}

func TestTotalsMissingRangeConsidersAllMonths(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2024, 6, "500"),
		accrualRow(2, 2025, 1, "200"),
	}
	in := Input{Rows: rows, AsOf: Day(2025, time.March, 1), Rates: flatRate("9.5")}
	core := TotalsCore(in)
	require.True(t, core.PrincipalAdj.Equal(dec("700")))
}

func TestTotalsIgnoresFutureObligationsAndPayments(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "200"),
		accrualRow(2, 2025, 5, "200"), // after as-of month
		paymentRow(3, 2025, 1, "50", Day(2025, time.April, 1)), // after as-of day
	}
	in := Input{Rows: rows, AsOf: Day(2025, time.February, 1), Rates: flatRate("9.5")}
	core := TotalsCore(in)
	require.True(t, core.PrincipalAdj.Equal(dec("200")))
	require.True(t, core.AdvanceUpTo.IsZero())
}

func TestExclusionNeutralPrincipal(t *testing.T) {
	rows := []Row{accrualRow(1, 2025, 1, "100")}
	asOf := Day(2025, time.June, 1)
	base := Input{Rows: rows, AsOf: asOf, Rates: flatRate("9.5")}
	withExcl := base
	withExcl.Exclusions = []Period{{From: Day(2025, time.April, 1), To: Day(2025, time.April, 30)}}

	coreBase := TotalsCore(base)
	coreExcl := TotalsCore(withExcl)
	require.True(t, coreBase.PrincipalAdj.Equal(coreExcl.PrincipalAdj), "exclusions must not affect principal")
	require.True(t, coreExcl.PenaltyAccruedTotal.LessThan(coreBase.PenaltyAccruedTotal))
}

func TestPenaltyBySourceMonth(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "100"),
		accrualRow(2, 2025, 2, "100"),
	}
	in := Input{Rows: rows, AsOf: Day(2025, time.August, 1), Rates: flatRate("9.5")}
	breakdown := PenaltyBySourceMonth(in)
	require.Len(t, breakdown, 2)
	require.True(t, breakdown["2025-01"].Sign() > 0)
	require.True(t, breakdown["2025-02"].Sign() > 0)
	// The older debt has accrued strictly more penalty days.
	require.True(t, breakdown["2025-02"].LessThan(breakdown["2025-01"]))

	// The per-month attribution sums to the aggregate penalty.
	core := TotalsCore(in)
	sum := breakdown["2025-01"].Add(breakdown["2025-02"])
	require.True(t, sum.Sub(core.PenaltyAccruedTotal).Abs().LessThanOrEqual(dec("0.01")),
		"breakdown sum %s vs total %s", sum, core.PenaltyAccruedTotal)
}

func TestBuildCourtViewRows(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "200"),
		paymentRow(2, 2025, 1, "80", Day(2025, time.February, 3)),
		paymentRow(3, 2025, 1, "40", Day(2025, time.February, 20)),
		accrualRow(4, 2025, 2, "200"),
	}
	view := BuildCourtViewRows(rows, Day(2025, time.January, 1), Day(2025, time.March, 31))
	require.Len(t, view, 4) // Jan merged + extra Jan payment + Feb + empty Mar

	require.Equal(t, 1, view[0].Month)
	require.True(t, view[0].Accrued.Equal(dec("200")))
	require.True(t, view[0].Paid.Equal(dec("80")))
	require.Equal(t, "2025-02-03", view[0].PaidDate)

	require.Equal(t, 1, view[1].Month)
	require.True(t, view[1].Accrued.IsZero())
	require.True(t, view[1].Paid.Equal(dec("40")))

	require.Equal(t, 2, view[2].Month)
	require.True(t, view[2].Accrued.Equal(dec("200")))
	require.True(t, view[2].Paid.IsZero())

	require.Equal(t, 3, view[3].Month)
	require.True(t, view[3].Accrued.IsZero())
	require.Equal(t, "", view[3].PaidDate)
}
