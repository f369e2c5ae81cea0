// Package excel turns spreadsheet and CSV uploads into raw import records.
// The first row is the header; each following row becomes one record keyed by the
// lower-cased header name.
package excel

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

var ErrNoHeader = errors.New("excel: header row is missing")

// ReadXLSX reads sheet, or the first sheet when sheet is empty.
func ReadXLSX(r io.Reader, sheet string) ([]reconcile.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("excel: open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("excel: read sheet %q: %w", sheet, err)
	}
	return rowsToRecords(rows)
}

func ReadCSV(r io.Reader) ([]reconcile.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("excel: read csv: %w", err)
	}
	return rowsToRecords(rows)
}

func rowsToRecords(rows [][]string) ([]reconcile.RawRecord, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	records := make([]reconcile.RawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := reconcile.RawRecord{}
		for i, cell := range row {
			if i >= len(header) || header[i] == "" || strings.TrimSpace(cell) == "" {
				continue
			}
			rec[header[i]] = cell
		}
		if len(rec) == 0 {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
