package calc

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBuildObligations(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2025, 1, "150.50"),
		accrualRow(2, 2025, 1, "49.50"), // same month, summed
		accrualRow(3, 2025, 2, "200"),
		accrualRow(4, 2025, 3, "0"),    // non-positive sum dropped
		accrualRow(5, 0, 13, "100"),    // malformed period dropped
		paymentRow(6, 2025, 1, "50", Day(2025, time.February, 1)),
	}
	obs := BuildObligations(rows, nil)
	require.Len(t, obs, 2)
	require.Equal(t, "2025-01", obs[0].Key)
	require.True(t, obs[0].Amount.Equal(dec("200")))
	require.True(t, obs[0].DueDate.Equal(Day(2025, time.February, 10)))
	require.Equal(t, "2025-02", obs[1].Key)
	require.True(t, obs[1].DueDate.Equal(Day(2025, time.March, 10)))
}

func TestBuildObligationsAllowedMonths(t *testing.T) {
	rows := []Row{
		accrualRow(1, 2024, 12, "100"),
		accrualRow(2, 2025, 1, "100"),
	}
	allowed := map[string]struct{}{"2025-01": {}}
	obs := BuildObligations(rows, allowed)
	require.Len(t, obs, 1)
	require.Equal(t, "2025-01", obs[0].Key)
}

func TestBuildPaymentEventsDefaultWindow(t *testing.T) {
	rows := []Row{paymentRow(1, 2025, 2, "150", Day(2025, time.February, 15))}
	events := BuildPaymentEvents(rows, Options{})
	require.Len(t, events, 1)
	require.Equal(t, "2025-02", events[0].MinKey)
	require.Equal(t, "2025-02", events[0].MaxKey)
}

func TestBuildPaymentEventsExplicitPeriod(t *testing.T) {
	row := paymentRow(1, 2025, 2, "150", Day(2025, time.February, 15))
	row.UsePeriod = true
	row.PeriodFrom = "2025-01"
	row.PeriodTo = "2025-02"
	events := BuildPaymentEvents([]Row{row}, Options{})
	require.Len(t, events, 1)
	require.Equal(t, "2025-01", events[0].MinKey)
	require.Equal(t, "2025-02", events[0].MaxKey)
}

func TestBuildPaymentEventsGlobalCalcPeriod(t *testing.T) {
	rows := []Row{paymentRow(1, 2025, 3, "80", Day(2025, time.March, 5))}
	events := BuildPaymentEvents(rows, Options{CalcPeriodFrom: "2024-11", CalcPeriodTo: "2025-03"})
	require.Len(t, events, 1)
	require.Equal(t, "2024-11", events[0].MinKey)
	require.Equal(t, "2025-03", events[0].MaxKey)
}

func TestBuildPaymentEventsSkipsUnparseable(t *testing.T) {
	rows := []Row{
		{ID: 1, Year: 2025, Month: 1, Paid: dec("100")}, // no date
		{ID: 2, Year: 2025, Month: 1, Paid: decimal.Zero, PaidDate: Day(2025, time.January, 20)},
	}
	require.Empty(t, BuildPaymentEvents(rows, Options{}))
}

func TestBuildPaymentEventsOrdering(t *testing.T) {
	d := Day(2025, time.February, 15)
	rows := []Row{
		paymentRow(7, 2025, 2, "10", d),
		paymentRow(3, 2025, 2, "20", d),
		paymentRow(5, 2025, 2, "30", Day(2025, time.February, 1)),
	}
	events := BuildPaymentEvents(rows, Options{})
	require.Equal(t, []int64{5, 3, 7}, []int64{events[0].RowID, events[1].RowID, events[2].RowID})
}

// An undesignated payment must not satisfy another month's obligation;
// a pay-for-period designation unlocks the window.
func TestAllocateFIFOWindowRules(t *testing.T) {
	newObs := func() []*Obligation {
		return BuildObligations([]Row{
			accrualRow(1, 2025, 1, "100"),
			accrualRow(2, 2025, 2, "100"),
		}, nil)
	}

	// Undesignated payment in February: January stays untouched.
	obs := newObs()
	advances := AllocateFIFO(obs, BuildPaymentEvents(
		[]Row{paymentRow(3, 2025, 2, "150", Day(2025, time.February, 15))}, Options{}))
	require.True(t, obs[0].Remaining().Equal(dec("100")), "january must not be satisfied")
	require.True(t, obs[1].Remaining().IsZero())
	require.Len(t, advances, 1)
	require.True(t, advances[0].Amount.Equal(dec("50")))

	// Same payment designated for 2025-01..2025-02 pays January first.
	obs = newObs()
	row := paymentRow(3, 2025, 2, "150", Day(2025, time.February, 15))
	row.UsePeriod = true
	row.PeriodFrom = "2025-01"
	row.PeriodTo = "2025-02"
	advances = AllocateFIFO(obs, BuildPaymentEvents([]Row{row}, Options{}))
	require.Empty(t, advances)
	require.True(t, obs[0].Remaining().IsZero())
	require.True(t, obs[1].Remaining().Equal(dec("50")))
}

func TestAllocateFIFOConservation(t *testing.T) {
	obs := BuildObligations([]Row{accrualRow(1, 2025, 1, "100")}, nil)
	row := paymentRow(2, 2025, 1, "70", Day(2025, time.January, 20))
	row2 := paymentRow(3, 2025, 1, "70", Day(2025, time.January, 25))
	AllocateFIFO(obs, BuildPaymentEvents([]Row{row, row2}, Options{}))

	applied := decimal.Zero
	for _, a := range obs[0].Applications {
		applied = applied.Add(a.Amount)
	}
	require.True(t, applied.LessThanOrEqual(obs[0].Amount),
		"applications exceeded obligation amount: %s", applied)
	require.True(t, obs[0].Remaining().IsZero())
}

func TestAllocateFIFOPartialAcrossMonths(t *testing.T) {
	obs := BuildObligations([]Row{
		accrualRow(1, 2025, 1, "60"),
		accrualRow(2, 2025, 2, "60"),
		accrualRow(3, 2025, 3, "60"),
	}, nil)
	row := paymentRow(4, 2025, 3, "150", Day(2025, time.March, 12))
	row.UsePeriod = true
	row.PeriodFrom = "2025-01"
	row.PeriodTo = "2025-03"
	advances := AllocateFIFO(obs, BuildPaymentEvents([]Row{row}, Options{}))
	require.Empty(t, advances)
	require.True(t, obs[0].Remaining().IsZero())
	require.True(t, obs[1].Remaining().IsZero())
	require.True(t, obs[2].Remaining().Equal(dec("30")))
}
