// Package sheetio reads and writes sheets as delimited text or xlsx files.
package sheetio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/isthisthat/Pysheet/pkg/pysheet"
)

// CommentChar marks input lines to be discarded.
const CommentChar = '#'

// Stdin is the input path that reads from standard input.
const Stdin = "stdin"

// ReadOptions configures table loading.
type ReadOptions struct {
	// Delimiter separates fields. Zero means detect from the file, falling
	// back to a comma.
	Delimiter rune
	// IDColumn designates the input column holding row IDs. -1 auto-generates
	// sequential IDs.
	IDColumn int
	// NoHeader synthesizes positional header names instead of consuming the
	// first row.
	NoHeader bool
	// Skip drops this many lines from the top of the input.
	Skip int
	// Transpose reads the table transposed.
	Transpose bool
}

// Read loads a sheet from path. "stdin" reads standard input; a .xlsx path is
// read through excelize, everything else as delimited text.
func Read(path string, opts ReadOptions) (*pysheet.Sheet, error) {
	if path == Stdin || path == "-" {
		return ReadFrom(os.Stdin, Stdin, opts)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path, opts)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return ReadFrom(f, filepath.Base(path), opts)
}

// ReadFrom loads a sheet from delimited text. name labels the source in
// errors.
func ReadFrom(r io.Reader, name string, opts ReadOptions) (*pysheet.Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = Sniff(data)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.Comment = CommentChar
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = false
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return build(records, name, opts)
}

func build(records [][]string, name string, opts ReadOptions) (*pysheet.Sheet, error) {
	if opts.Skip > 0 {
		if opts.Skip >= len(records) {
			records = nil
		} else {
			records = records[opts.Skip:]
		}
	}

	// a line must carry an ID and at least one value to count as data
	minLen := 2
	if opts.IDColumn < 0 {
		minLen = 1
	}
	kept := records[:0]
	for _, rec := range records {
		if len(rec) < minLen {
			continue
		}
		kept = append(kept, rec)
	}
	records = kept

	if opts.Transpose {
		records = transposeRecords(records)
	}
	return pysheet.FromRows(records, opts.IDColumn, opts.NoHeader, name)
}

// transposeRecords pads the table square and flips rows and columns.
func transposeRecords(records [][]string) [][]string {
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	out := make([][]string, width)
	for i := range out {
		out[i] = make([]string, len(records))
		for j, rec := range records {
			if i < len(rec) {
				out[i][j] = rec[i]
			}
		}
	}
	return out
}

// Sniff detects the field delimiter from a sample of the input: the
// candidate that splits the first lines into the most fields, consistently,
// wins. Falls back to a comma.
func Sniff(data []byte) rune {
	candidates := []rune{',', '\t', ';', '|'}
	lines := strings.Split(string(data), "\n")
	best, bestFields := ',', 1
	for _, c := range candidates {
		fields := -1
		consistent := true
		checked := 0
		for _, line := range lines {
			if checked >= 10 {
				break
			}
			line = strings.TrimRight(line, "\r")
			if line == "" || line[0] == CommentChar {
				continue
			}
			n := strings.Count(line, string(c)) + 1
			if fields == -1 {
				fields = n
			} else if n != fields {
				consistent = false
				break
			}
			checked++
		}
		if consistent && fields > bestFields {
			best, bestFields = c, fields
		}
	}
	return best
}

// readXLSX loads the first worksheet of an xlsx file.
func readXLSX(path string, opts ReadOptions) (*pysheet.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return pysheet.New(), nil
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	var records [][]string
	for rows.Next() {
		rec, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read xlsx row: %w", err)
		}
		records = append(records, rec)
	}
	// excelize trims trailing empty cells per row; pad back to a rectangle
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	for i, rec := range records {
		for len(rec) < width {
			rec = append(rec, "")
		}
		records[i] = rec
	}
	return build(records, filepath.Base(path), opts)
}
