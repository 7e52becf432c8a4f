package ledger

import (
	"errors"
	"io"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	BatchID  string `json:"batch_id"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// ParseXLSX reads the first sheet of an uploaded workbook into row
// inputs. The first row is the header; columns are matched through the
// same aliases as any other import, so serial dates and spelled month
// labels come through. Rows without a resolvable service month are
// skipped, not errors.
func ParseXLSX(abonentID int64, r io.Reader) ([]RowInput, ImportResult, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ImportResult{}, err
	}
	defer func() { _ = book.Close() }()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ImportResult{}, errors.New("ledger: workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, ImportResult{}, err
	}
	if len(rows) < 2 {
		return nil, ImportResult{}, nil
	}

	header := rows[0]
	var (
		inputs []RowInput
		result ImportResult
	)
	for _, cells := range rows[1:] {
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(cells) {
				rec[name] = cells[i]
			}
		}
		in, ok := NormalizeRecord(abonentID, rec)
		if !ok {
			result.Skipped++
			continue
		}
		inputs = append(inputs, in)
		result.Imported++
	}
	return inputs, result, nil
}
