package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/abonbill/abonbill/internal/calc"
)

// fieldAliases maps column spellings seen in imported files to canonical
// field names. Aliasing lives only at this boundary: the repository and
// the calculation core never see the variants.
var fieldAliases = map[string]string{
	"год":         "year",
	"year":        "year",
	"месяц":       "month",
	"month":       "month",
	"период":      "period",
	"period":      "period",
	"начислено":   "accrued",
	"начисление":  "accrued",
	"accrued":     "accrued",
	"оплачено":    "paid",
	"оплата":      "paid",
	"paid":        "paid",
	"дата оплаты": "paid_date",
	"дата":        "paid_date",
	"paid_date":   "paid_date",
	"период с":    "period_from",
	"с":           "period_from",
	"period_from": "period_from",
	"период по":   "period_to",
	"по":          "period_to",
	"period_to":   "period_to",
	"примечание":  "note",
	"note":        "note",
}

var ruMonths = map[string]time.Month{
	"ЯНВАРЬ":   time.January,
	"ФЕВРАЛЬ":  time.February,
	"МАРТ":     time.March,
	"АПРЕЛЬ":   time.April,
	"МАЙ":      time.May,
	"ИЮНЬ":     time.June,
	"ИЮЛЬ":     time.July,
	"АВГУСТ":   time.August,
	"СЕНТЯБРЬ": time.September,
	"ОКТЯБРЬ":  time.October,
	"НОЯБРЬ":   time.November,
	"ДЕКАБРЬ":  time.December,
}

// ParsePeriodLabel reads a service-month label in any of the spellings
// the source files use: "2025-08", "08.2025", an ISO date, or a spelled
// Russian month like "АВГУСТ 2025".
func ParsePeriodLabel(s string) (int, time.Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	if key := calc.ParseMonthKey(s); key != "" {
		return calc.SplitMonthKey(key)
	}
	fields := strings.Fields(strings.ToUpper(s))
	if len(fields) != 2 {
		return 0, 0, false
	}
	mo, ok := ruMonths[fields[0]]
	if !ok {
		return 0, 0, false
	}
	year, err := strconv.Atoi(strings.TrimSuffix(fields[1], "Г."))
	if err != nil || year < 1990 || year > 2100 {
		return 0, 0, false
	}
	return year, mo, true
}

// NormalizeRecord maps one imported record onto a canonical row input.
// Records without a resolvable service month are dropped, not errors:
// import keeps going and reports the skip count.
func NormalizeRecord(abonentID int64, rec map[string]string) (RowInput, bool) {
	fields := make(map[string]string, len(rec))
	for k, v := range rec {
		if name, ok := fieldAliases[strings.ToLower(strings.TrimSpace(k))]; ok {
			fields[name] = strings.TrimSpace(v)
		}
	}

	year, month, ok := resolveMonth(fields)
	if !ok {
		return RowInput{}, false
	}

	in := RowInput{
		AbonentID: abonentID,
		Year:      year,
		Month:     int(month),
		Accrued:   calc.ParseAmount(fields["accrued"]),
		Paid:      calc.ParseAmount(fields["paid"]),
		Note:      fields["note"],
		Source:    SourceImport,
		Locked:    true,
	}
	if d, ok := calc.ParseDateAny(fields["paid_date"]); ok {
		in.PaidDate = d
	}
	if key := calc.ParseMonthKey(fields["period_from"]); key != "" {
		in.PeriodFrom = key
		in.UsePeriod = true
	}
	if key := calc.ParseMonthKey(fields["period_to"]); key != "" {
		in.PeriodTo = key
		in.UsePeriod = true
	}
	return in, true
}

func resolveMonth(fields map[string]string) (int, time.Month, bool) {
	if label, ok := fields["period"]; ok {
		if y, mo, ok := ParsePeriodLabel(label); ok {
			return y, mo, true
		}
	}
	year, errY := strconv.Atoi(fields["year"])
	month, errM := strconv.Atoi(fields["month"])
	if errY != nil || errM != nil || month < 1 || month > 12 || year < 1990 || year > 2100 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}
