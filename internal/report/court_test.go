package report

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/abonbill/abonbill/internal/abonent"
	"github.com/abonbill/abonbill/internal/calc"
)

type fakeCalc struct {
	rows    []calc.Row
	gotFrom time.Time
	gotTo   time.Time
	gotOpts calc.Options
}

func (f *fakeCalc) PeriodInput(_ context.Context, _ int64, from, to time.Time, opts calc.Options) (calc.Input, error) {
	f.gotFrom, f.gotTo, f.gotOpts = from, to, opts
	return calc.Input{Rows: f.rows, AsOf: calc.EndOfMonth(to), Options: opts}, nil
}

type fakeRegistry struct {
	abonent abonent.Abonent
	rng     *calc.Range
}

func (f *fakeRegistry) GetAbonent(_ context.Context, id int64) (abonent.Abonent, error) {
	if id != f.abonent.ID {
		return abonent.Abonent{}, abonent.ErrNotFound
	}
	return f.abonent, nil
}

func (f *fakeRegistry) ResponsibilityRange(_ context.Context, _ int64) (*calc.Range, error) {
	return f.rng, nil
}

type fakeHeader struct {
	requisites Requisites
	signer     Signer
}

func (f *fakeHeader) Requisites(_ context.Context) (Requisites, error) { return f.requisites, nil }
func (f *fakeHeader) DefaultSigner(_ context.Context) (Signer, error)  { return f.signer, nil }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newCourtFixture() (*Builder, *fakeCalc) {
	fc := &fakeCalc{rows: []calc.Row{
		{ID: 1, Year: 2025, Month: 1, Accrued: dec("1000")},
		{ID: 2, Year: 2025, Month: 1, Paid: dec("600"), PaidDate: calc.Day(2025, time.January, 20)},
		{ID: 3, Year: 2025, Month: 1, Paid: dec("200"), PaidDate: calc.Day(2025, time.January, 25)},
		{ID: 4, Year: 2025, Month: 2, Accrued: dec("1000")},
	}}
	registry := &fakeRegistry{
		abonent: abonent.Abonent{ID: 7, Account: "000007", FIO: "Иванов И.И.", Address: "ул. Ленина, 1", Square: dec("40"), Rooms: 2, Share: "1/1"},
		rng:     &calc.Range{From: calc.Day(2025, time.January, 1)},
	}
	header := &fakeHeader{
		requisites: Requisites{FullName: "ТСЖ «Заря»", INN: "7700000000"},
		signer:     Signer{FIO: "Петров П.П.", Position: "Председатель правления", IsDefault: true, Active: true},
	}
	builder := NewBuilder(fc, registry, header)
	builder.now = func() time.Time { return calc.Day(2025, time.April, 15) }
	return builder, fc
}

func TestBuildCertificate(t *testing.T) {
	builder, fc := newCourtFixture()

	cert, err := builder.Build(context.Background(), 7, calc.Day(2025, time.January, 1), calc.Day(2025, time.March, 31))
	require.NoError(t, err)

	require.True(t, fc.gotOpts.ApplyAdvanceOffset)
	require.True(t, fc.gotOpts.AllowNegativePrincipal)
	require.Equal(t, calc.EndOfMonth(calc.Day(2025, time.March, 1)), cert.StateDate)

	// January merged with its first payment, the second payment on its
	// own line, February and empty March follow.
	require.Len(t, cert.Rows, 4)
	require.Equal(t, "2025 январь", cert.Rows[0].PeriodLabel)
	require.Equal(t, "1000.00", cert.Rows[0].Accrued.StringFixed(2))
	require.Equal(t, "600.00", cert.Rows[0].Paid.StringFixed(2))
	require.Equal(t, "20.01.2025", cert.Rows[0].PaidDate)
	require.Equal(t, "400.00", cert.Rows[0].MonthDebtMain.StringFixed(2))

	require.Equal(t, "200.00", cert.Rows[1].Paid.StringFixed(2))
	require.Equal(t, "0.00", cert.Rows[1].Accrued.StringFixed(2))
	require.Equal(t, "200.00", cert.Rows[1].MonthDebtMain.StringFixed(2))

	require.Equal(t, "2025 февраль", cert.Rows[2].PeriodLabel)
	require.Equal(t, "1000.00", cert.Rows[2].MonthDebtMain.StringFixed(2))

	require.Equal(t, "2025 март", cert.Rows[3].PeriodLabel)
	require.Equal(t, "0.00", cert.Rows[3].MonthDebtMain.StringFixed(2))

	require.Equal(t, "2000.00", cert.SumAccrued.StringFixed(2))
	require.Equal(t, "800.00", cert.SumPaid.StringFixed(2))
	require.Equal(t, "1200.00", cert.Totals.Principal.StringFixed(2))
	require.Equal(t, "1200.00", cert.Totals.Total.StringFixed(2))

	require.Equal(t, "Иванов И.И.", cert.FIO)
	require.Equal(t, "Петров П.П.", cert.Signer.FIO)
}

func TestBuildCertificateDefaultPeriod(t *testing.T) {
	builder, fc := newCourtFixture()

	_, err := builder.Build(context.Background(), 7, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Equal(t, calc.Day(2025, time.January, 1), fc.gotFrom)
	require.Equal(t, calc.DayStart(calc.Day(2025, time.April, 15)), fc.gotTo)
}

func TestFormatDateRU(t *testing.T) {
	require.Equal(t, "2 марта 2025 года", FormatDateRU(calc.Day(2025, time.March, 2)))
	require.Equal(t, "", FormatDateRU(time.Time{}))
}

func TestPickSigner(t *testing.T) {
	signers := []Signer{
		{FIO: "Первый", Active: true},
		{FIO: "Второй", Position: "Бухгалтер", IsDefault: true, Active: true},
		{FIO: "Третий", IsDefault: true, Active: false},
	}
	picked := PickSigner(signers)
	require.Equal(t, "Второй", picked.FIO)
	require.Equal(t, "Бухгалтер", picked.Position)

	// Without a default the first active wins and the empty position
	// falls back to the chairman title.
	picked = PickSigner([]Signer{{FIO: "Первый", Active: true}})
	require.Equal(t, "Первый", picked.FIO)
	require.Equal(t, "Председатель правления", picked.Position)

	require.Equal(t, "Председатель правления", PickSigner(nil).Position)
}

func TestNormalizeSigners(t *testing.T) {
	out := NormalizeSigners([]Signer{
		{},
		{FIO: "А", IsDefault: true},
		{FIO: "Б", IsDefault: true},
	})
	require.Len(t, out, 2)
	require.True(t, out[0].IsDefault)
	require.False(t, out[1].IsDefault)

	out = NormalizeSigners([]Signer{{FIO: "А"}, {FIO: "Б"}})
	require.True(t, out[0].IsDefault)
}

func TestWriteCSVWindows1251(t *testing.T) {
	builder, _ := newCourtFixture()
	cert, err := builder.Build(context.Background(), 7, calc.Day(2025, time.January, 1), calc.Day(2025, time.February, 28))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, cert))

	decoded, err := io.ReadAll(transform.NewReader(&buf, charmap.Windows1251.NewDecoder()))
	require.NoError(t, err)
	require.Contains(t, string(decoded), "Период;Начислено;Оплачено")
	require.Contains(t, string(decoded), "2025 январь")
	require.Contains(t, string(decoded), "Итого")
}

func TestRenderPDF(t *testing.T) {
	builder, _ := newCourtFixture()
	cert, err := builder.Build(context.Background(), 7, calc.Day(2025, time.January, 1), calc.Day(2025, time.February, 28))
	require.NoError(t, err)

	data, err := RenderPDF(cert)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
