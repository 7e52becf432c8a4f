// Package calc implements the debt and penalty calculation core.
//
// Every entry point is a pure function over an explicit Input snapshot:
// ledger rows, an as-of date, the responsibility range and the reference
// timelines (refinancing rates, excluded periods). The account card, the
// court certificate and the auto-accrual recalculation all call this
// package, which keeps their numbers identical by construction.
package calc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Spreadsheet serial dates use the 1899-12-30 epoch. Serial 25569 is
// 1970-01-01, which anchors the conversion to Unix time.
const (
	serialUnixOffset = 25569
	serialMin        = 20000
	serialMax        = 90000
)

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	ruDateRe    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
	serialRe    = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	monthKeyRe  = regexp.MustCompile(`^(\d{4})-(\d{2})`)
	monthYearRe = regexp.MustCompile(`^(\d{1,2})\.(\d{4})$`)
)

// Day builds the canonical representation of a calendar date: noon UTC.
// Noon keeps date arithmetic immune to DST and timezone shifts.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// ParseDateAny parses a date in ISO YYYY-MM-DD, DD.MM.YYYY or spreadsheet
// serial form into a canonical date. The zero time and false are returned
// for anything unparseable; callers treat such values as absent.
func ParseDateAny(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	if serialRe.MatchString(s) {
		n, err := strconv.ParseFloat(s, 64)
		if err == nil && n >= serialMin && n <= serialMax {
			return dateFromSerial(n), true
		}
		// Bare numbers outside the serial window are not dates.
		return time.Time{}, false
	}

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[1], m[2], m[3])
	}
	if m := ruDateRe.FindStringSubmatch(s); m != nil {
		return dateFromParts(m[3], m[2], m[1])
	}
	return time.Time{}, false
}

func dateFromParts(year, month, day string) (time.Time, bool) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if y == 0 || mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	out := Day(y, time.Month(mo), d)
	// Reject normalized overflow such as 31.02.2025.
	if out.Day() != d || out.Month() != time.Month(mo) {
		return time.Time{}, false
	}
	return out, true
}

func dateFromSerial(n float64) time.Time {
	secs := math.Round((n - serialUnixOffset) * 86400)
	t := time.Unix(int64(secs), 0).UTC()
	return Day(t.Year(), t.Month(), t.Day())
}

// FormatISO renders a canonical date as YYYY-MM-DD.
// ParseDateAny(FormatISO(d)) round-trips for every valid date.
func FormatISO(d time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), int(d.Month()), d.Day())
}

// MonthKey renders a (year, month) pair as "YYYY-MM". Keys in this form
// order chronologically under plain string comparison.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// MonthKeyOf returns the month key of a date.
func MonthKeyOf(d time.Time) string {
	return MonthKey(d.Year(), d.Month())
}

// ParseMonthKey extracts a "YYYY-MM" key from an ISO date, a bare month
// key, or the legacy "MM.YYYY" spelling. Empty string when none matches.
func ParseMonthKey(s string) string {
	v := strings.TrimSpace(s)
	if v == "" {
		return ""
	}
	if m := monthKeyRe.FindStringSubmatch(v); m != nil {
		return m[1] + "-" + m[2]
	}
	if m := monthYearRe.FindStringSubmatch(v); m != nil {
		mo, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[2])
		if mo >= 1 && mo <= 12 {
			return MonthKey(y, time.Month(mo))
		}
	}
	return ""
}

// SplitMonthKey parses a "YYYY-MM" key back into year and month.
func SplitMonthKey(key string) (int, time.Month, bool) {
	m := monthKeyRe.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	if y == 0 || mo < 1 || mo > 12 {
		return 0, 0, false
	}
	return y, time.Month(mo), true
}

// MonthKeys lists the inclusive month-key sequence covering [from, to].
func MonthKeys(from, to time.Time) []string {
	if from.IsZero() || to.IsZero() {
		return nil
	}
	var out []string
	y, mo := from.Year(), from.Month()
	endY, endMo := to.Year(), to.Month()
	for y < endY || (y == endY && mo <= endMo) {
		out = append(out, MonthKey(y, mo))
		mo++
		if mo > time.December {
			mo = time.January
			y++
		}
	}
	return out
}

// DueDate is the statutory payment deadline for a service month: the 10th
// of the following month.
func DueDate(year int, month time.Month) time.Time {
	return Day(year, month, 1).AddDate(0, 1, 9)
}

// AddDays shifts a canonical date by whole days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// SameOrBefore reports d <= other at day granularity.
func SameOrBefore(d, other time.Time) bool {
	return !DayStart(d).After(DayStart(other))
}

// DayStart truncates a timestamp to its calendar day (noon canonical form).
func DayStart(d time.Time) time.Time {
	return Day(d.Year(), d.Month(), d.Day())
}

// EndOfMonth returns the last day of the month containing d.
func EndOfMonth(d time.Time) time.Time {
	first := Day(d.Year(), d.Month(), 1)
	return first.AddDate(0, 1, -1)
}

// DaysInMonth counts calendar days of a (year, month).
func DaysInMonth(year int, month time.Month) int {
	return Day(year, month, 1).AddDate(0, 1, -1).Day()
}

// ParseAmount parses a decimal money amount accepting both comma and dot
// separators and ignoring embedded spaces. Unparseable input yields zero.
func ParseAmount(value string) decimal.Decimal {
	s := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
