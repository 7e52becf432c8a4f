package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/abonbill/abonbill/internal/calc"
)

// TotalsPort is the slice of the debt façade the CLI drives.
type TotalsPort interface {
	Totals(ctx context.Context, abonentID int64, asOf time.Time, opts calc.Options) (calc.AdjustedTotals, error)
}

// TotalsCLI prints the adjusted debt totals for one account.
type TotalsCLI struct {
	service TotalsPort
}

// NewTotalsCLI constructs the totals subcommand.
func NewTotalsCLI(service TotalsPort) *TotalsCLI {
	return &TotalsCLI{service: service}
}

// TotalsOutput is the JSON shape printed by the totals subcommand.
type TotalsOutput struct {
	AbonentID           int64  `json:"abonent_id"`
	AsOf                string `json:"as_of"`
	Principal           string `json:"principal"`
	PenaltyDebt         string `json:"penalty_debt"`
	Total               string `json:"total"`
	PenaltyAccruedTotal string `json:"penalty_accrued_total"`
	AdvanceUpTo         string `json:"advance_up_to"`
}

// Command executes `totals <abonent-id> [--as-of YYYY-MM-DD] [--allow-negative]`.
func (c *TotalsCLI) Command(ctx context.Context, args []string, out io.Writer) error {
	if c == nil || c.service == nil {
		return fmt.Errorf("totals: service not configured")
	}
	if len(args) == 0 {
		return fmt.Errorf("totals: expected an abonent id")
	}
	var id int64
	if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil || id <= 0 {
		return fmt.Errorf("totals: invalid abonent id %q", args[0])
	}
	asOf := calc.DayStart(time.Now())
	opts := calc.Options{ApplyAdvanceOffset: true}
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--as-of":
			if i+1 >= len(args) {
				return fmt.Errorf("totals: --as-of needs a date")
			}
			i++
			parsed, ok := calc.ParseDateAny(args[i])
			if !ok {
				return fmt.Errorf("totals: invalid --as-of date %q", args[i])
			}
			asOf = parsed
		case "--allow-negative":
			opts.AllowNegativePrincipal = true
		default:
			return fmt.Errorf("totals: unknown flag %q", args[i])
		}
	}
	totals, err := c.service.Totals(ctx, id, asOf, opts)
	if err != nil {
		return fmt.Errorf("totals for abonent %d: %w", id, err)
	}
	return json.NewEncoder(out).Encode(TotalsOutput{
		AbonentID:           id,
		AsOf:                calc.FormatISO(asOf),
		Principal:           totals.Principal.StringFixed(2),
		PenaltyDebt:         totals.PenaltyDebt.StringFixed(2),
		Total:               totals.Total.StringFixed(2),
		PenaltyAccruedTotal: totals.PenaltyAccruedTotal.StringFixed(2),
		AdvanceUpTo:         totals.AdvanceUpTo.StringFixed(2),
	})
}
