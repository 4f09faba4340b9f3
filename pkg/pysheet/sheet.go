// Package pysheet implements an in-memory delimited spreadsheet: ordered
// named columns, rows keyed by unique ID, and the merge, consolidation and
// query operations over them.
package pysheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultIDHeader names the identifier column of a sheet built without an
// explicit header row for it.
const DefaultIDHeader = "ID"

type cellKey struct {
	id  string // canonical row ID
	col string // canonical header display name
}

// Sheet is an ordered set of headers, an ordered sequence of row IDs and the
// cell mapping between them. The first header is always the identifier
// column. Header and row lookups are case-insensitive and trimmed; display
// forms keep their original spelling.
type Sheet struct {
	headers  []Header
	colIndex map[string]int // canonical display name -> header position
	rowIDs   []string       // display IDs, insertion order
	rowIndex map[string]int // canonical ID -> row position
	cells    map[cellKey]string

	autoID   bool
	nextAuto int // next auto-generated row ordinal, never reused
}

// New returns an empty sheet with a default "ID" identifier column.
func New() *Sheet {
	s := &Sheet{
		colIndex: make(map[string]int),
		rowIndex: make(map[string]int),
		cells:    make(map[cellKey]string),
		nextAuto: 1,
	}
	s.headers = []Header{NewHeader(DefaultIDHeader)}
	s.colIndex[canonical(DefaultIDHeader)] = 0
	return s
}

// NewAutoID returns an empty sheet whose row IDs are generated automatically.
// The synthetic identifier column is created locked and is suppressed on
// serialization.
func NewAutoID() *Sheet {
	s := New()
	s.headers[0] = Header{name: AutoIDHeader, locked: true}
	delete(s.colIndex, canonical(DefaultIDHeader))
	s.colIndex[canonical(AutoIDHeader)] = 0
	s.autoID = true
	return s
}

// FromRows builds a sheet from parsed table rows. idColumn designates which
// input column supplies row IDs (-1 auto-generates them), noHeader
// synthesizes positional header names. The identifier column is moved to
// position 0; all other columns keep their relative order. Rows wider than
// the header row fail with a *MalformedTableError; narrower rows are
// blank-padded. A duplicate row ID replaces the earlier row's cells but keeps
// its position.
func FromRows(rows [][]string, idColumn int, noHeader bool, source string) (*Sheet, error) {
	if len(rows) == 0 {
		return New(), nil
	}
	width := len(rows[0])
	if idColumn >= width {
		return nil, &IndexOutOfRangeError{Index: idColumn, Max: width - 1}
	}

	var names []string
	data := rows
	if noHeader {
		names = make([]string, width)
		for i := range names {
			names[i] = fmt.Sprintf("C%03d", i+1)
		}
	} else {
		names = rows[0]
		data = rows[1:]
	}

	var s *Sheet
	if idColumn < 0 {
		s = NewAutoID()
	} else {
		s = New()
		s.headers[0] = NewHeader(names[idColumn])
		delete(s.colIndex, canonical(DefaultIDHeader))
		s.colIndex[canonical(s.headers[0].Name())] = 0
	}
	for i, name := range names {
		if i == idColumn {
			continue
		}
		h := NewHeader(name)
		if _, ok := s.colIndex[canonical(h.Name())]; ok {
			return nil, &DuplicateHeaderError{Name: h.Name()}
		}
		s.colIndex[canonical(h.Name())] = len(s.headers)
		s.headers = append(s.headers, h)
	}

	for n, row := range data {
		if len(row) == 0 {
			continue
		}
		if len(row) > width {
			line := n + 1
			if !noHeader {
				line++
			}
			return nil, &MalformedTableError{Source: source, Line: line, Want: width, Got: len(row)}
		}
		var id string
		if idColumn < 0 {
			id = s.NextID()
		} else {
			id = strings.TrimSpace(row[idColumn])
		}
		s.ensureRow(id)
		for i, v := range row {
			if i == idColumn {
				continue
			}
			h := NewHeader(names[i])
			s.cells[cellKey{id: canonical(id), col: canonical(h.Name())}] = v
		}
	}
	return s, nil
}

// Width returns the number of columns, the identifier column included.
func (s *Sheet) Width() int { return len(s.headers) }

// Height returns the number of rows.
func (s *Sheet) Height() int { return len(s.rowIDs) }

// IsEmpty reports whether the sheet has no rows and no columns beyond the
// identifier.
func (s *Sheet) IsEmpty() bool { return s.Width() <= 1 && s.Height() == 0 }

// Headers returns a copy of the header sequence.
func (s *Sheet) Headers() []Header {
	out := make([]Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// HeaderNames returns the display names in column order.
func (s *Sheet) HeaderNames() []string {
	out := make([]string, len(s.headers))
	for i, h := range s.headers {
		out[i] = h.Name()
	}
	return out
}

// IDHeader returns the identifier column's header.
func (s *Sheet) IDHeader() Header { return s.headers[0] }

// AutoID reports whether row IDs are auto-generated.
func (s *Sheet) AutoID() bool { return s.autoID }

// RowIDs returns a copy of the row ID sequence, in row order.
func (s *Sheet) RowIDs() []string {
	out := make([]string, len(s.rowIDs))
	copy(out, s.rowIDs)
	return out
}

// NextID reserves and returns the next auto-generated row ID. IDs are never
// reused, even after row removal.
func (s *Sheet) NextID() string {
	id := fmt.Sprintf("R%05d", s.nextAuto)
	s.nextAuto++
	return id
}

// HasRow reports whether a row exists under the given ID.
func (s *Sheet) HasRow(id string) bool {
	_, ok := s.rowIndex[canonical(id)]
	return ok
}

// HasColumn reports whether a header reference resolves to a column.
func (s *Sheet) HasColumn(ref string) bool {
	_, err := s.ResolveHeader(ref)
	return err == nil
}

// ResolveHeader resolves a column reference, by display name (lock prefix
// tolerated, case-insensitive) or by decimal index, to a header position.
func (s *Sheet) ResolveHeader(ref string) (int, error) {
	name := canonical(strings.TrimPrefix(strings.TrimSpace(ref), LockPrefix))
	if i, ok := s.colIndex[name]; ok {
		return i, nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(ref)); err == nil {
		if n < 0 || n >= len(s.headers) {
			return 0, &IndexOutOfRangeError{Index: n, Max: len(s.headers) - 1}
		}
		return n, nil
	}
	return 0, &UnknownHeaderError{Header: ref}
}

// Get returns the value of a cell. A missing row or header yields absent,
// never an error. The identifier column reads back the row's display ID.
func (s *Sheet) Get(id, header string) (string, bool) {
	pos, ok := s.rowIndex[canonical(id)]
	if !ok {
		return "", false
	}
	ci, err := s.ResolveHeader(header)
	if err != nil {
		return "", false
	}
	if ci == 0 {
		return s.rowIDs[pos], true
	}
	v, ok := s.cells[cellKey{id: canonical(id), col: canonical(s.headers[ci].Name())}]
	return v, ok
}

// Set writes a cell, creating the row and header as needed. New rows are
// appended to the row sequence, new headers to the header sequence (locked
// when the name carries the reserved prefix). Writing to the identifier
// column re-keys the row, moving every cell to the new ID.
func (s *Sheet) Set(id, header, value string) {
	id = strings.TrimSpace(id)
	s.ensureRow(id)
	ci := s.ensureColumn(header)
	if ci == 0 {
		s.rekey(id, value)
		return
	}
	s.cells[cellKey{id: canonical(id), col: canonical(s.headers[ci].Name())}] = value
}

// SetWith writes a cell like Set, but combines the new value with any
// existing one under the given combination mode.
func (s *Sheet) SetWith(id, header, value string, mode Mode) error {
	id = strings.TrimSpace(id)
	s.ensureRow(id)
	ci := s.ensureColumn(header)
	if ci == 0 {
		s.rekey(id, value)
		return nil
	}
	name := s.headers[ci].Name()
	old, _ := s.Get(id, name)
	acc := newAccumulator(mode, old)
	if err := acc.absorb(value); err != nil {
		var np *NumericParseError
		if errors.As(err, &np) {
			np.ID, np.Header = id, name
		}
		return err
	}
	s.cells[cellKey{id: canonical(id), col: canonical(name)}] = acc.value()
	return nil
}

// EnsureRow creates an empty row under id if it does not exist.
func (s *Sheet) EnsureRow(id string) {
	s.ensureRow(strings.TrimSpace(id))
}

// EnsureColumn creates a blank column under the stored name if it does not
// exist, locked when the name carries the reserved prefix.
func (s *Sheet) EnsureColumn(name string) {
	s.ensureColumn(strings.TrimSpace(name))
}

// Remove deletes exactly one cell if present; otherwise it is a no-op.
func (s *Sheet) Remove(id, header string) {
	ci, err := s.ResolveHeader(header)
	if err != nil || ci == 0 {
		return
	}
	delete(s.cells, cellKey{id: canonical(id), col: canonical(s.headers[ci].Name())})
}

// RemoveRow deletes a row and all its cells. It reports whether the row
// existed.
func (s *Sheet) RemoveRow(id string) bool {
	key := canonical(id)
	pos, ok := s.rowIndex[key]
	if !ok {
		return false
	}
	for _, h := range s.headers[1:] {
		delete(s.cells, cellKey{id: key, col: canonical(h.Name())})
	}
	s.rowIDs = append(s.rowIDs[:pos], s.rowIDs[pos+1:]...)
	delete(s.rowIndex, key)
	for i := pos; i < len(s.rowIDs); i++ {
		s.rowIndex[canonical(s.rowIDs[i])] = i
	}
	return true
}

// RemoveColumn deletes a column and all its cells. The identifier column
// cannot be removed.
func (s *Sheet) RemoveColumn(ref string) error {
	ci, err := s.ResolveHeader(ref)
	if err != nil {
		return err
	}
	if ci == 0 {
		return fmt.Errorf("cannot remove the identifier column %q", s.headers[0].Name())
	}
	name := canonical(s.headers[ci].Name())
	for _, id := range s.rowIDs {
		delete(s.cells, cellKey{id: canonical(id), col: name})
	}
	s.headers = append(s.headers[:ci], s.headers[ci+1:]...)
	delete(s.colIndex, name)
	for i := ci; i < len(s.headers); i++ {
		s.colIndex[canonical(s.headers[i].Name())] = i
	}
	return nil
}

// RemoveMissingRows deletes every row that has at least one blank cell in any
// column. The set of rows to drop is decided once, before any deletion.
// It returns the removed IDs in row order.
func (s *Sheet) RemoveMissingRows() []string {
	var doomed []string
	for _, id := range s.rowIDs {
		for _, h := range s.headers[1:] {
			v, _ := s.Get(id, h.Name())
			if IsBlank(v) {
				doomed = append(doomed, id)
				break
			}
		}
	}
	for _, id := range doomed {
		s.RemoveRow(id)
	}
	return doomed
}

// RemoveMissingColumns deletes every column that has at least one blank cell
// in any row, decided once before any deletion. It returns the removed
// display names in column order.
func (s *Sheet) RemoveMissingColumns() []string {
	var doomed []string
	for _, h := range s.headers[1:] {
		for _, id := range s.rowIDs {
			v, _ := s.Get(id, h.Name())
			if IsBlank(v) {
				doomed = append(doomed, h.Name())
				break
			}
		}
	}
	for _, name := range doomed {
		s.RemoveColumn(name) //nolint:errcheck // name came from the header sequence
	}
	return doomed
}

// InsertColumn inserts a blank column at index. A negative index places it
// after the identifier column and any locked columns already leading the
// sheet. Names carrying the reserved prefix create a locked column. Inserting
// a name that already exists is a no-op.
func (s *Sheet) InsertColumn(name string, index int) error {
	h := NewHeader(name)
	if _, ok := s.colIndex[canonical(h.Name())]; ok {
		return nil
	}
	if index < 0 {
		index = 1
		for index < len(s.headers) && s.headers[index].Locked() {
			index++
		}
	}
	if index > len(s.headers) {
		return &IndexOutOfRangeError{Index: index, Max: len(s.headers)}
	}
	if index == 0 {
		return fmt.Errorf("cannot insert before the identifier column")
	}
	s.headers = append(s.headers[:index], append([]Header{h}, s.headers[index:]...)...)
	for i := index; i < len(s.headers); i++ {
		s.colIndex[canonical(s.headers[i].Name())] = i
	}
	return nil
}

// RenameHeader renames a column. The new stored name is parsed for the lock
// prefix, so renaming can lock or unlock a column.
func (s *Sheet) RenameHeader(ref, newName string) error {
	ci, err := s.ResolveHeader(ref)
	if err != nil {
		return err
	}
	h := NewHeader(newName)
	if other, ok := s.colIndex[canonical(h.Name())]; ok && other != ci {
		return &DuplicateHeaderError{Name: h.Name()}
	}
	oldName := canonical(s.headers[ci].Name())
	if oldName != canonical(h.Name()) {
		for _, id := range s.rowIDs {
			key := cellKey{id: canonical(id), col: oldName}
			if v, ok := s.cells[key]; ok {
				s.cells[cellKey{id: canonical(id), col: canonical(h.Name())}] = v
				delete(s.cells, key)
			}
		}
		delete(s.colIndex, oldName)
	}
	s.headers[ci] = h
	s.colIndex[canonical(h.Name())] = ci
	return nil
}

// RenameRow re-keys a row, moving all its cells to the new ID. If a row
// already exists under the new ID it is replaced.
func (s *Sheet) RenameRow(old, new string) error {
	if _, ok := s.rowIndex[canonical(old)]; !ok {
		return &UnknownRowError{ID: old}
	}
	s.rekey(old, new)
	return nil
}

// RowValues returns a row's values in header order, the display ID first.
func (s *Sheet) RowValues(id string) ([]string, bool) {
	pos, ok := s.rowIndex[canonical(id)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(s.headers))
	out[0] = s.rowIDs[pos]
	for i, h := range s.headers[1:] {
		out[i+1] = s.cells[cellKey{id: canonical(id), col: canonical(h.Name())}]
	}
	return out, true
}

// Excluded reports whether the row carries a non-blank value in the reserved
// Exclude column.
func (s *Sheet) Excluded(id string) bool {
	v, ok := s.Get(id, ExcludeHeader)
	return ok && !IsBlank(v)
}

// ZeroFill replaces every blank cell with fill.
func (s *Sheet) ZeroFill(fill string) {
	for _, id := range s.rowIDs {
		for _, h := range s.headers[1:] {
			if v, _ := s.Get(id, h.Name()); IsBlank(v) {
				s.Set(id, h.Name(), fill)
			}
		}
	}
}

// Levels returns the distinct non-blank values of a column in row order, and
// whether all of them parse as numbers.
func (s *Sheet) Levels(ref string) ([]string, bool, error) {
	ci, err := s.ResolveHeader(ref)
	if err != nil {
		return nil, false, err
	}
	seen := make(map[string]bool)
	var out []string
	numeric := true
	for _, id := range s.rowIDs {
		v, _ := s.Get(id, s.headers[ci].Name())
		if IsBlank(v) {
			continue
		}
		if seen[canonical(v)] {
			continue
		}
		seen[canonical(v)] = true
		out = append(out, v)
		if _, err := ParseNumber(v); err != nil {
			numeric = false
		}
	}
	return out, numeric && len(out) > 0, nil
}

// IDsWithValue returns the IDs of rows whose cell in the given column equals
// level (numeric-aware, case-insensitive). The special level "ALL" matches
// any non-blank value.
func (s *Sheet) IDsWithValue(ref, level string) ([]string, error) {
	ci, err := s.ResolveHeader(ref)
	if err != nil {
		return nil, err
	}
	all := strings.EqualFold(level, "ALL")
	var out []string
	for _, id := range s.rowIDs {
		v, _ := s.Get(id, s.headers[ci].Name())
		if all {
			if !IsBlank(v) {
				out = append(out, id)
			}
			continue
		}
		if equalValues(v, level) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Transpose returns a new sheet with headers and row IDs swapped: each former
// column becomes a row keyed by its display name, each former row becomes a
// column named by its ID. Transposing twice reconstructs the original cell
// mapping.
func (s *Sheet) Transpose() *Sheet {
	t := New()
	t.headers[0] = NewHeader(s.headers[0].Name())
	delete(t.colIndex, canonical(DefaultIDHeader))
	t.colIndex[canonical(t.headers[0].Name())] = 0
	for _, id := range s.rowIDs {
		t.ensureColumn(id)
	}
	for _, h := range s.headers[1:] {
		t.ensureRow(h.Name())
		for _, id := range s.rowIDs {
			if v, ok := s.cells[cellKey{id: canonical(id), col: canonical(h.Name())}]; ok {
				t.cells[cellKey{id: canonical(h.Name()), col: canonical(id)}] = v
			}
		}
	}
	return t
}

// VStack appends other's rows to this sheet, matching columns by position.
// Both sheets must have the same width. Rows with a colliding ID overwrite
// cell-by-cell.
func (s *Sheet) VStack(other *Sheet) error {
	if other.Width() != s.Width() {
		return fmt.Errorf("cannot stack rows: width %d vs %d", other.Width(), s.Width())
	}
	for _, id := range other.rowIDs {
		row, _ := other.RowValues(id)
		s.ensureRow(id)
		for i := 1; i < len(s.headers); i++ {
			s.cells[cellKey{id: canonical(id), col: canonical(s.headers[i].Name())}] = row[i]
		}
	}
	return nil
}

// HStack appends other's non-identifier columns to this sheet, matching rows
// by position. Extra rows in other are appended under their own IDs. Column
// names are disambiguated with a numeric suffix on collision.
func (s *Sheet) HStack(other *Sheet) error {
	mapped := make([]string, 0, other.Width()-1)
	for _, h := range other.headers[1:] {
		name := s.uniqueHeaderName(h.Name())
		stored := name
		if h.Locked() {
			stored = LockPrefix + name
		}
		s.ensureColumn(stored)
		mapped = append(mapped, name)
	}
	for i, oid := range other.rowIDs {
		var id string
		if i < len(s.rowIDs) {
			id = s.rowIDs[i]
		} else {
			id = oid
			s.ensureRow(id)
		}
		for j, h := range other.headers[1:] {
			if v, ok := other.Get(oid, h.Name()); ok {
				s.cells[cellKey{id: canonical(id), col: canonical(mapped[j])}] = v
			}
		}
	}
	return nil
}

// uniqueHeaderName returns name, or name with the first free numeric suffix
// ("name_2", "name_3", ...) when the display name is already taken.
func (s *Sheet) uniqueHeaderName(name string) string {
	if _, ok := s.colIndex[canonical(name)]; !ok {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if _, ok := s.colIndex[canonical(candidate)]; !ok {
			return candidate
		}
	}
}

// ensureRow appends a row for id if missing.
func (s *Sheet) ensureRow(id string) {
	key := canonical(id)
	if _, ok := s.rowIndex[key]; ok {
		return
	}
	s.rowIndex[key] = len(s.rowIDs)
	s.rowIDs = append(s.rowIDs, id)
}

// ensureColumn resolves a header by stored name, appending it if missing, and
// returns its position.
func (s *Sheet) ensureColumn(stored string) int {
	h := NewHeader(stored)
	if i, ok := s.colIndex[canonical(h.Name())]; ok {
		return i
	}
	if h.Locked() {
		s.InsertColumn(stored, -1) //nolint:errcheck // only fails on bad explicit index
		return s.colIndex[canonical(h.Name())]
	}
	s.colIndex[canonical(h.Name())] = len(s.headers)
	s.headers = append(s.headers, h)
	return len(s.headers) - 1
}

// rekey moves a row and all its cells from old to new. If new already names
// another row, that row is replaced.
func (s *Sheet) rekey(old, new string) {
	new = strings.TrimSpace(new)
	oldKey, newKey := canonical(old), canonical(new)
	pos, ok := s.rowIndex[oldKey]
	if !ok || new == "" {
		return
	}
	if oldKey == newKey {
		s.rowIDs[pos] = new
		return
	}
	if otherPos, exists := s.rowIndex[newKey]; exists {
		// the target row is replaced wholesale
		for _, h := range s.headers[1:] {
			delete(s.cells, cellKey{id: newKey, col: canonical(h.Name())})
		}
		s.rowIDs = append(s.rowIDs[:otherPos], s.rowIDs[otherPos+1:]...)
		delete(s.rowIndex, newKey)
		if otherPos < pos {
			pos--
		}
		for i := otherPos; i < len(s.rowIDs); i++ {
			s.rowIndex[canonical(s.rowIDs[i])] = i
		}
	}
	for _, h := range s.headers[1:] {
		key := cellKey{id: oldKey, col: canonical(h.Name())}
		if v, ok := s.cells[key]; ok {
			s.cells[cellKey{id: newKey, col: canonical(h.Name())}] = v
			delete(s.cells, key)
		}
	}
	s.rowIDs[pos] = new
	delete(s.rowIndex, oldKey)
	s.rowIndex[newKey] = pos
}

// equalValues compares two cell values, numerically when both parse as
// numbers, case-insensitively otherwise.
func equalValues(a, b string) bool {
	na, errA := ParseNumber(a)
	nb, errB := ParseNumber(b)
	if errA == nil && errB == nil {
		return na == nb
	}
	return canonical(a) == canonical(b)
}
