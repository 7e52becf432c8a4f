package report

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// WriteCSV serialises the certificate table as windows-1251 CSV with a
// semicolon separator, the dialect Russian Excel opens without prompts.
func WriteCSV(w io.Writer, cert Certificate) error {
	enc := transform.NewWriter(w, charmap.Windows1251.NewEncoder())
	writer := csv.NewWriter(enc)
	writer.Comma = ';'
	defer writer.Flush()

	if err := writer.Write([]string{
		"Период", "Начислено", "Оплачено", "Дата оплаты",
		"Долг за месяц", "Пеня", "Итого за месяц",
	}); err != nil {
		return err
	}
	for _, row := range cert.Rows {
		if err := writer.Write([]string{
			row.PeriodLabel,
			money(row.Accrued),
			money(row.Paid),
			row.PaidDate,
			money(row.MonthDebtMain),
			money(row.MonthDebtPenalty),
			money(row.MonthDebtTotal),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{
		"Итого",
		money(cert.SumAccrued),
		money(cert.SumPaid),
		"",
		money(cert.Totals.Principal),
		money(cert.Totals.PenaltyDebt),
		money(cert.Totals.Total),
	}); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return enc.Close()
}
