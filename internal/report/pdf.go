package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// RenderPDF renders the certificate as an A4 PDF. Text goes through the
// cp1251 translator so Cyrillic survives the core-font encoding.
func RenderPDF(cert Certificate) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1251")
	pdf.AddPage()

	pdf.SetFont("Arial", "", 9)
	for _, line := range headerLines(cert.Requisites) {
		pdf.CellFormat(0, 4.5, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 7, tr("СПРАВКА о задолженности"), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("за период с %s по %s", FormatDateRU(cert.PeriodFrom), FormatDateRU(cert.PeriodTo))), "", 1, "C", false, 0, "")
	pdf.Ln(3)

	writeField := func(label, value string) {
		if value == "" {
			return
		}
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s: %s", label, value)), "", 1, "L", false, 0, "")
	}
	writeField("Лицевой счёт", cert.Account)
	writeField("ФИО", cert.FIO)
	writeField("Адрес", cert.Address)
	writeField("Площадь, кв.м", cert.Square)
	if cert.Rooms > 0 {
		writeField("Комнат", fmt.Sprintf("%d", cert.Rooms))
	}
	writeField("Доля", cert.Share)
	pdf.Ln(3)

	widths := []float64{32, 24, 24, 24, 28, 28, 30}
	headers := []string{"Период", "Начислено", "Оплачено", "Дата оплаты", "Долг за месяц", "Пеня", "Итого за месяц"}
	pdf.SetFont("Arial", "B", 8)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 6, tr(h), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range cert.Rows {
		cells := []string{
			row.PeriodLabel,
			money(row.Accrued),
			money(row.Paid),
			row.PaidDate,
			money(row.MonthDebtMain),
			money(row.MonthDebtPenalty),
			money(row.MonthDebtTotal),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 || i == 3 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 5.5, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(widths[0], 6, tr("Итого"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 6, money(cert.SumAccrued), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[2], 6, money(cert.SumPaid), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 6, "", "1", 0, "L", false, 0, "")
	pdf.CellFormat(widths[4], 6, money(cert.Totals.Principal), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[5], 6, money(cert.Totals.PenaltyDebt), "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[6], 6, money(cert.Totals.Total), "1", 0, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("По состоянию на %s:", FormatDateRU(cert.StateDate))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("основной долг %s руб., пеня %s руб., всего %s руб.",
		money(cert.Totals.Principal), money(cert.Totals.PenaltyDebt), money(cert.Totals.Total))), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	signerLine := cert.Signer.Position
	if cert.Signer.FIO != "" {
		signerLine += "   " + cert.Signer.FIO
	}
	pdf.CellFormat(0, 5, tr(signerLine), "", 1, "L", false, 0, "")
	if cert.Signer.Basis != "" {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 4.5, tr(fmt.Sprintf("действует на основании: %s", cert.Signer.Basis)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
	}
	pdf.CellFormat(0, 5, tr(FormatDateRU(cert.DocDate)), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// headerLines builds the organization header, skipping empty fields the
// way the printed form hides empty rows.
func headerLines(req Requisites) []string {
	var lines []string
	name := req.FullName
	if name == "" {
		name = strings.TrimSpace(req.Form + " " + req.ShortName)
	}
	if strings.TrimSpace(name) != "" {
		lines = append(lines, name)
	}
	var ids []string
	if req.INN != "" {
		ids = append(ids, "ИНН "+req.INN)
	}
	if req.OGRN != "" {
		ids = append(ids, "ОГРН "+req.OGRN)
	}
	if len(ids) > 0 {
		lines = append(lines, strings.Join(ids, ", "))
	}
	if req.LegalAddress != "" {
		lines = append(lines, "Юридический адрес: "+req.LegalAddress)
	}
	if req.PostalAddress != "" {
		lines = append(lines, "Почтовый адрес: "+req.PostalAddress)
	}
	var contacts []string
	if req.Phone != "" {
		contacts = append(contacts, "тел. "+req.Phone)
	}
	if req.Email != "" {
		contacts = append(contacts, req.Email)
	}
	if len(contacts) > 0 {
		lines = append(lines, strings.Join(contacts, ", "))
	}
	return lines
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
