package pysheet

import (
	"errors"
	"strconv"
	"strings"
)

// UniqueOperand is the special "=" operand that keeps only the first row
// encountered for each distinct value of the column.
const UniqueOperand = "UNIQUE"

const operatorChars = "=!~<>"

// term is one parsed query predicate: a column, an optional operator and its
// operand. A term with no operator means "non-blank".
type term struct {
	col     int
	op      byte // 0 when bare
	operand string
	num     float64 // parsed operand, < and > only
	unique  bool
}

// parseTerm parses a single query term. The raw form is tried as a plain
// header reference first, so header names containing operator characters
// still resolve; otherwise it is split at the first operator character.
func (s *Sheet) parseTerm(raw string) (*term, error) {
	if ci, err := s.ResolveHeader(raw); err == nil {
		return &term{col: ci}, nil
	}
	i := strings.IndexAny(raw, operatorChars)
	if i <= 0 || i == len(raw)-1 {
		return nil, &UnknownHeaderError{Header: raw}
	}
	ci, err := s.ResolveHeader(raw[:i])
	if err != nil {
		return nil, err
	}
	t := &term{col: ci, op: raw[i], operand: raw[i+1:]}
	switch t.op {
	case '=':
		t.unique = t.operand == UniqueOperand
	case '<', '>':
		n, err := ParseNumber(t.operand)
		if err != nil {
			return nil, err
		}
		t.num = n
	}
	return t, nil
}

// matches evaluates the term against one cell value. Numeric comparisons on a
// non-numeric cell fail the row, not the query.
func (t *term) matches(v string) bool {
	switch t.op {
	case 0:
		return !IsBlank(v)
	case '=':
		return compareEqual(v, t.operand)
	case '!':
		return !compareEqual(v, t.operand)
	case '~':
		return strings.Contains(v, t.operand)
	case '<':
		n, err := ParseNumber(v)
		return err == nil && n < t.num
	case '>':
		n, err := ParseNumber(v)
		return err == nil && n > t.num
	}
	return false
}

// compareEqual is the "=" comparison: numeric when both sides parse as
// numbers, exact string match otherwise.
func compareEqual(v, operand string) bool {
	nv, errV := ParseNumber(v)
	no, errO := ParseNumber(operand)
	if errV == nil && errO == nil {
		return nv == no
	}
	return v == operand
}

// Query returns the IDs of rows matching every term, in the sheet's row
// order. Rows carrying a non-blank Exclude cell never match. UNIQUE terms are
// evaluated against the whole sheet independently of the other terms.
func (s *Sheet) Query(terms []string) ([]string, error) {
	parsed := make([]*term, 0, len(terms))
	for _, raw := range terms {
		t, err := s.parseTerm(raw)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, t)
	}

	uniqueKeep := s.uniqueSets(parsed, true)

	var out []string
	for _, id := range s.rowIDs {
		if s.Excluded(id) {
			continue
		}
		ok := true
		for _, t := range parsed {
			if t.unique {
				if !uniqueKeep[t][canonical(id)] {
					ok = false
				}
			} else {
				v, _ := s.Get(id, s.headers[t.col].Name())
				if !t.matches(v) {
					ok = false
				}
			}
			if !ok {
				break
			}
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// uniqueSets precomputes, for every UNIQUE term, the set of row IDs that are
// the first occurrence of each distinct non-blank value in the term's column.
// With skipExcluded, rows flagged by the Exclude column do not take part, so
// the representative of each value is its first non-excluded occurrence.
func (s *Sheet) uniqueSets(terms []*term, skipExcluded bool) map[*term]map[string]bool {
	out := make(map[*term]map[string]bool)
	for _, t := range terms {
		if t == nil || !t.unique {
			continue
		}
		keep := make(map[string]bool)
		seen := make(map[string]bool)
		for _, id := range s.rowIDs {
			if skipExcluded && s.Excluded(id) {
				continue
			}
			v, _ := s.Get(id, s.headers[t.col].Name())
			if IsBlank(v) || seen[v] {
				continue
			}
			seen[v] = true
			keep[canonical(id)] = true
		}
		out[t] = keep
	}
	return out
}

func filterTerms(sels []selection) []*term {
	out := make([]*term, len(sels))
	for i, sel := range sels {
		out[i] = sel.filter
	}
	return out
}

// selection is one resolved column selector, optionally filtered.
type selection struct {
	col    int
	filter *term
}

// parseColumnSpecs expands a column specification list. Accepted forms:
// header name, decimal index, inclusive range "a-b", open range "a-",
// "ALL" for every non-identifier column, and a name or index with an
// attached predicate such as "Age>40".
func (s *Sheet) parseColumnSpecs(specs []string) ([]selection, error) {
	var out []selection
	for _, raw := range specs {
		if raw == "ALL" {
			for i := 1; i < len(s.headers); i++ {
				out = append(out, selection{col: i})
			}
			continue
		}
		if ci, err := s.ResolveHeader(raw); err == nil {
			out = append(out, selection{col: ci})
			continue
		} else {
			var oor *IndexOutOfRangeError
			if errors.As(err, &oor) {
				return nil, err
			}
		}
		sel, ok, err := s.parseRange(raw)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, sel...)
			continue
		}
		t, err := s.parseTerm(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, selection{col: t.col, filter: t})
	}
	return out, nil
}

func (s *Sheet) parseRange(raw string) ([]selection, bool, error) {
	from, to, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, false, nil
	}
	lo, err := strconv.Atoi(from)
	if err != nil {
		return nil, false, nil
	}
	hi := len(s.headers) - 1
	if to != "" {
		hi, err = strconv.Atoi(to)
		if err != nil {
			return nil, false, nil
		}
	}
	if lo < 0 || lo >= len(s.headers) {
		return nil, true, &IndexOutOfRangeError{Index: lo, Max: len(s.headers) - 1}
	}
	if hi >= len(s.headers) {
		return nil, true, &IndexOutOfRangeError{Index: hi, Max: len(s.headers) - 1}
	}
	var out []selection
	for i := lo; i <= hi; i++ {
		out = append(out, selection{col: i})
	}
	return out, true, nil
}

// SelectColumns produces a derived sheet holding the requested columns in
// spec order, the identifier column first. A predicate attached to a selector
// filters the rows, as if intersected with a Query on that column. Rows
// flagged by the Exclude column are not filtered here. Duplicate selections
// are renamed with a numeric suffix.
func (s *Sheet) SelectColumns(specs []string) (*Sheet, error) {
	sels, err := s.parseColumnSpecs(specs)
	if err != nil {
		return nil, err
	}
	if len(sels) == 0 {
		for i := 1; i < len(s.headers); i++ {
			sels = append(sels, selection{col: i})
		}
	}

	out := New()
	out.headers[0] = s.headers[0]
	delete(out.colIndex, canonical(DefaultIDHeader))
	out.colIndex[canonical(out.headers[0].Name())] = 0
	out.autoID = s.autoID

	type mappedCol struct {
		src  int
		name string
	}
	var cols []mappedCol
	for _, sel := range sels {
		if sel.col == 0 {
			continue // the identifier column is already first
		}
		h := s.headers[sel.col]
		name := out.uniqueHeaderName(h.Name())
		stored := name
		if h.Locked() {
			stored = LockPrefix + name
		}
		out.ensureColumn(stored)
		cols = append(cols, mappedCol{src: sel.col, name: name})
	}

	uniqueKeep := s.uniqueSets(filterTerms(sels), false)

	for _, id := range s.rowIDs {
		keep := true
		for _, sel := range sels {
			if sel.filter == nil {
				continue
			}
			if sel.filter.unique {
				if !uniqueKeep[sel.filter][canonical(id)] {
					keep = false
					break
				}
				continue
			}
			v, _ := s.Get(id, s.headers[sel.filter.col].Name())
			if !sel.filter.matches(v) {
				keep = false
				break
			}
		}
		if !keep {
			continue
		}
		out.ensureRow(id)
		for _, c := range cols {
			if v, ok := s.Get(id, s.headers[c.src].Name()); ok {
				out.cells[cellKey{id: canonical(id), col: canonical(c.name)}] = v
			}
		}
	}
	return out, nil
}
