// Package abonent is the account registry: subscribers, premises and the
// ownership links that bound each account's financial responsibility.
package abonent

import (
	"time"

	"github.com/shopspring/decimal"
)

// Abonent is one personal account.
type Abonent struct {
	ID            int64
	Account       string
	FIO           string
	Address       string
	Square        decimal.Decimal
	Rooms         int
	Share         string
	PremiseRegnum string
	Moratorium    bool
	// CalcStart/CalcEnd are account-level overrides that clamp the
	// responsibility range derived from ownership links.
	CalcStart time.Time
	CalcEnd   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Premise is a housing unit identified by its cadastral registration number.
type Premise struct {
	Regnum  string
	Address string
	Square  decimal.Decimal
}

// OwnershipLink ties an account to a premise for a date interval.
// A zero To means open-ended ("to present").
type OwnershipLink struct {
	ID        int64
	AbonentID int64
	Regnum    string
	From      time.Time
	To        time.Time
}

// Open reports whether the link has no end date.
func (l OwnershipLink) Open() bool { return l.To.IsZero() }

// AbonentInput carries the mutable fields for create/update.
type AbonentInput struct {
	Account       string `validate:"required"`
	FIO           string `validate:"required"`
	Address       string
	Square        decimal.Decimal
	Rooms         int
	Share         string
	PremiseRegnum string
	Moratorium    bool
	CalcStart     time.Time
	CalcEnd       time.Time
}

// LinkInput carries the mutable fields of an ownership link.
type LinkInput struct {
	AbonentID int64
	Regnum    string `validate:"required"`
	From      time.Time
	To        time.Time
}
