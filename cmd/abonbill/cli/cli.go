// Package cli implements the operator subcommands of the abonbill binary.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Deps carries the services the subcommands operate on.
type Deps struct {
	Logger    *slog.Logger
	Debt      TotalsPort
	Accrual   RecalcPort
	RedisAddr string
	Out       io.Writer
}

// Run dispatches an operator subcommand. The first argument selects the
// command, the rest are its flags.
func Run(ctx context.Context, args []string, deps Deps) error {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if len(args) == 0 {
		return fmt.Errorf("cli: no command given (expected recalc, totals or jobs)")
	}
	switch args[0] {
	case "recalc":
		return NewRecalcCLI(deps.Accrual, deps.Logger).Command(ctx, args[1:], deps.Out)
	case "totals":
		return NewTotalsCLI(deps.Debt).Command(ctx, args[1:], deps.Out)
	case "jobs":
		jc, err := NewJobsCLI(deps.RedisAddr)
		if err != nil {
			return err
		}
		defer jc.Close()
		return jc.Command(ctx, args[1:], deps.Out)
	default:
		return fmt.Errorf("cli: unknown command %q", args[0])
	}
}
