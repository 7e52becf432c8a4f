package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/abonbill/abonbill/internal/calc"
)

func TestParsePeriodLabel(t *testing.T) {
	cases := []struct {
		in    string
		year  int
		month time.Month
		ok    bool
	}{
		{"2025-08", 2025, time.August, true},
		{"08.2025", 2025, time.August, true},
		{"АВГУСТ 2025", 2025, time.August, true},
		{"август 2025", 2025, time.August, true},
		{"ЯНВАРЬ 2024", 2024, time.January, true},
		{"2025-08-15", 2025, time.August, true},
		{"", 0, 0, false},
		{"НЕМЕСЯЦ 2025", 0, 0, false},
		{"АВГУСТ", 0, 0, false},
	}
	for _, tc := range cases {
		year, month, ok := ParsePeriodLabel(tc.in)
		require.Equal(t, tc.ok, ok, "label %q", tc.in)
		if tc.ok {
			require.Equal(t, tc.year, year, "label %q", tc.in)
			require.Equal(t, tc.month, month, "label %q", tc.in)
		}
	}
}

func TestNormalizeRecordRussianColumns(t *testing.T) {
	in, ok := NormalizeRecord(3, map[string]string{
		"Период":      "АВГУСТ 2025",
		"Начислено":   "1 543,20",
		"Оплачено":    "1000,00",
		"Дата оплаты": "15.09.2025",
	})
	require.True(t, ok)
	require.Equal(t, int64(3), in.AbonentID)
	require.Equal(t, 2025, in.Year)
	require.Equal(t, 8, in.Month)
	require.True(t, in.Accrued.Equal(decimal.RequireFromString("1543.20")))
	require.True(t, in.Paid.Equal(decimal.RequireFromString("1000")))
	require.True(t, in.PaidDate.Equal(calc.Day(2025, time.September, 15)))
	require.Equal(t, SourceImport, in.Source)
	require.True(t, in.Locked)
}

func TestNormalizeRecordExplicitYearMonth(t *testing.T) {
	in, ok := NormalizeRecord(3, map[string]string{
		"year":    "2025",
		"month":   "2",
		"accrued": "200.50",
	})
	require.True(t, ok)
	require.Equal(t, 2025, in.Year)
	require.Equal(t, 2, in.Month)
	require.True(t, in.Accrued.Equal(decimal.RequireFromString("200.50")))
}

func TestNormalizeRecordAppliesPaymentPeriod(t *testing.T) {
	in, ok := NormalizeRecord(3, map[string]string{
		"период":    "02.2025",
		"оплачено":  "500",
		"дата":      "2025-02-10",
		"период с":  "11.2024",
		"период по": "2025-01",
	})
	require.True(t, ok)
	require.True(t, in.UsePeriod)
	require.Equal(t, "2024-11", in.PeriodFrom)
	require.Equal(t, "2025-01", in.PeriodTo)
}

func TestNormalizeRecordSerialPaidDate(t *testing.T) {
	in, ok := NormalizeRecord(3, map[string]string{
		"период":      "01.2025",
		"оплачено":    "100",
		"дата оплаты": "45658",
	})
	require.True(t, ok)
	require.True(t, in.PaidDate.Equal(calc.Day(2025, time.January, 1)))
}

func TestNormalizeRecordDropsUnresolvableMonth(t *testing.T) {
	_, ok := NormalizeRecord(3, map[string]string{
		"начислено": "100",
	})
	require.False(t, ok)

	_, ok = NormalizeRecord(3, map[string]string{
		"year":  "2025",
		"month": "0",
	})
	require.False(t, ok)
}
