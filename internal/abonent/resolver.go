package abonent

import (
	"sort"
	"time"

	"github.com/abonbill/abonbill/internal/calc"
)

// ResolveRange determines the inclusive date range during which the
// account is financially responsible for its premise.
//
// The primary source is the account's ownership links: the latest
// open-ended link wins, otherwise the latest link by start date. The
// account-level CalcStart/CalcEnd overrides may clamp the result but
// never widen it, with one exception: an open-ended link means "to
// present" and must not be cut short by a stored end override.
//
// A nil result means no range could be determined; the caller treats
// that as "no month filter" and reports a warning rather than failing.
func ResolveRange(a Abonent, links []OwnershipLink, now time.Time) *calc.Range {
	link := pickLink(a.ID, links)

	from := a.CalcStart
	openEnded := false
	var to time.Time
	if link != nil {
		if !link.From.IsZero() {
			from = link.From
		}
		if link.Open() {
			openEnded = true
		} else {
			to = link.To
		}
	}
	if from.IsZero() {
		return nil
	}

	if !openEnded {
		if to.IsZero() {
			to = a.CalcEnd
		} else if !a.CalcEnd.IsZero() && a.CalcEnd.Before(to) {
			to = a.CalcEnd
		}
	}
	if !a.CalcStart.IsZero() && a.CalcStart.After(from) {
		from = a.CalcStart
	}
	if to.IsZero() {
		to = calc.DayStart(now)
	}
	if to.Before(from) {
		return nil
	}
	return &calc.Range{From: calc.DayStart(from), To: calc.DayStart(to)}
}

// pickLink selects the account's governing ownership link: the latest
// open link if any, else the latest by start date.
func pickLink(abonentID int64, links []OwnershipLink) *OwnershipLink {
	var own []OwnershipLink
	for _, l := range links {
		if l.AbonentID == abonentID && !l.From.IsZero() {
			own = append(own, l)
		}
	}
	if len(own) == 0 {
		return nil
	}
	sort.Slice(own, func(i, j int) bool { return own[i].From.Before(own[j].From) })
	for i := len(own) - 1; i >= 0; i-- {
		if own[i].Open() {
			return &own[i]
		}
	}
	return &own[len(own)-1]
}

// OwnershipHistory returns the premise's links ordered by start date,
// the shape the auto-accrual splitter consumes.
func OwnershipHistory(regnum string, links []OwnershipLink) []OwnershipLink {
	var out []OwnershipLink
	for _, l := range links {
		if l.Regnum == regnum && !l.From.IsZero() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}
