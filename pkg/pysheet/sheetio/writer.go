package sheetio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/isthisthat/Pysheet/pkg/pysheet"
)

// Stdout is the output path that writes to standard output.
const Stdout = "stdout"

// WriteOptions configures table serialization.
type WriteOptions struct {
	// Delimiter separates output fields. Zero means a comma.
	Delimiter rune
	// NoHeader suppresses the header row.
	NoHeader bool
	// ReplaceHeaders substitutes the header row. Its length must match the
	// number of output columns.
	ReplaceHeaders []string
	// Transpose writes the table transposed.
	Transpose bool
}

// Write serializes a sheet in its current header and row order. Header names
// are written in stored form, lock prefix included. The synthetic auto-ID
// column is suppressed. "stdout" writes to standard output; a .xlsx path is
// written through excelize.
func Write(s *pysheet.Sheet, path string, opts WriteOptions) error {
	if path == "" {
		return pysheet.ErrNoSaveTarget
	}
	records, err := outputRecords(s, opts)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return writeXLSX(records, path)
	}
	if path == Stdout || path == "-" {
		return WriteTo(os.Stdout, records, opts.Delimiter)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	if err := WriteTo(f, records, opts.Delimiter); err != nil {
		return err
	}
	return f.Close()
}

// WriteTo writes pre-built records as delimited text.
func WriteTo(w io.Writer, records [][]string, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func outputRecords(s *pysheet.Sheet, opts WriteOptions) ([][]string, error) {
	headers := s.Headers()
	start := 0
	if s.AutoID() {
		start = 1 // never serialize generated IDs
	}

	var records [][]string
	if !opts.NoHeader {
		row := make([]string, 0, len(headers)-start)
		for _, h := range headers[start:] {
			row = append(row, h.Stored())
		}
		if opts.ReplaceHeaders != nil {
			if len(opts.ReplaceHeaders) != len(row) {
				return nil, fmt.Errorf("replacement headers: got %d, output has %d columns",
					len(opts.ReplaceHeaders), len(row))
			}
			row = opts.ReplaceHeaders
		}
		records = append(records, row)
	}
	for _, id := range s.RowIDs() {
		values, _ := s.RowValues(id)
		records = append(records, values[start:])
	}
	if opts.Transpose {
		records = transposeRecords(records)
	}
	return records, nil
}

// writeXLSX streams the records into the first worksheet of a new workbook.
func writeXLSX(records [][]string, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetList()[0]
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("xlsx stream writer: %w", err)
	}
	for i, rec := range records {
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("xlsx flush: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx save: %w", err)
	}
	return nil
}
