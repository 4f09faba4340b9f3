package pysheet

import (
	"errors"
	"fmt"
)

// ErrLockTimeout indicates a lock could not be acquired within its budget.
var ErrLockTimeout = errors.New("lock timeout")

// ErrNoSaveTarget indicates a save was requested without a destination.
var ErrNoSaveTarget = errors.New("no save target given")

// UnknownHeaderError indicates a header reference that resolves to no column.
type UnknownHeaderError struct {
	Header string
}

func (e *UnknownHeaderError) Error() string {
	return fmt.Sprintf("unknown header %q", e.Header)
}

// UnknownRowError indicates a row ID that is not present in the sheet.
type UnknownRowError struct {
	ID string
}

func (e *UnknownRowError) Error() string {
	return fmt.Sprintf("unknown row %q", e.ID)
}

// IndexOutOfRangeError indicates a numeric column reference outside the
// sheet's header range.
type IndexOutOfRangeError struct {
	Index int
	Max   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("column index %d out of range [0-%d]", e.Index, e.Max)
}

// NumericParseError indicates a value that was required to be numeric but
// could not be parsed as a number.
type NumericParseError struct {
	Value  string
	Header string // column being combined or compared, if known
	ID     string // row being combined, if known
	Err    error
}

func (e *NumericParseError) Error() string {
	if e.ID != "" || e.Header != "" {
		return fmt.Sprintf("value %q at (%s, %s) is not numeric", e.Value, e.ID, e.Header)
	}
	return fmt.Sprintf("value %q is not numeric", e.Value)
}

func (e *NumericParseError) Unwrap() error {
	return e.Err
}

// DuplicateHeaderError indicates two headers that normalize to the same
// display name.
type DuplicateHeaderError struct {
	Name string
}

func (e *DuplicateHeaderError) Error() string {
	return fmt.Sprintf("duplicate header %q", e.Name)
}

// MalformedTableError indicates an input row that does not fit the table's
// header row.
type MalformedTableError struct {
	Source string // file name or reader label
	Line   int    // 1-based data line
	Want   int    // header width
	Got    int    // row width
}

func (e *MalformedTableError) Error() string {
	return fmt.Sprintf("malformed table %s: line %d has %d columns, header has %d",
		e.Source, e.Line, e.Got, e.Want)
}
