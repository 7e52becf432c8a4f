package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/abonbill/abonbill/internal/accrual"
)

// RecalcPort is the slice of the accrual engine the CLI drives.
type RecalcPort interface {
	RecalcAbonent(ctx context.Context, abonentID int64) (accrual.Result, error)
	RecalcAll(ctx context.Context) ([]accrual.Result, error)
}

// RecalcCLI runs the auto-accrual engine synchronously from the shell.
type RecalcCLI struct {
	service RecalcPort
	logger  *slog.Logger
}

// NewRecalcCLI constructs the recalc subcommand.
func NewRecalcCLI(service RecalcPort, logger *slog.Logger) *RecalcCLI {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecalcCLI{service: service, logger: logger}
}

// Command executes `recalc --all` or `recalc <abonent-id>` and prints
// one JSON result per line.
func (c *RecalcCLI) Command(ctx context.Context, args []string, out io.Writer) error {
	if c == nil || c.service == nil {
		return fmt.Errorf("recalc: service not configured")
	}
	if len(args) == 0 {
		return fmt.Errorf("recalc: expected an abonent id or --all")
	}
	enc := json.NewEncoder(out)
	if args[0] == "--all" {
		results, err := c.service.RecalcAll(ctx)
		if err != nil {
			return fmt.Errorf("recalc all: %w", err)
		}
		changed := 0
		for _, res := range results {
			if res.Changed {
				changed++
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
		c.logger.Info("recalc finished",
			slog.Int("accounts", len(results)),
			slog.Int("changed", changed))
		return nil
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("recalc: invalid abonent id %q", args[0])
	}
	res, err := c.service.RecalcAbonent(ctx, id)
	if err != nil {
		return fmt.Errorf("recalc abonent %d: %w", id, err)
	}
	return enc.Encode(res)
}
