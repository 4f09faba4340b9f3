package pysheet

import (
	"errors"
	"strconv"
	"strings"
)

// Merge combines sheets into one by matching each sheet's identifier column
// onto the first sheet's. Headers of the first sheet come first in order;
// every later sheet contributes its non-key columns in sheet order, each
// renamed with a numeric suffix when its display name is already taken. Row
// IDs are the union of all key-column values in first-seen order; a row
// present in only one input still appears, with blanks for the other inputs'
// columns.
func Merge(sheets ...*Sheet) (*Sheet, error) {
	if len(sheets) == 0 {
		return New(), nil
	}

	out := New()
	first := sheets[0]
	out.headers[0] = first.headers[0]
	delete(out.colIndex, canonical(DefaultIDHeader))
	out.colIndex[canonical(out.headers[0].Name())] = 0
	out.autoID = first.autoID

	for _, h := range first.headers[1:] {
		if _, ok := out.colIndex[canonical(h.Name())]; ok {
			return nil, &DuplicateHeaderError{Name: h.Name()}
		}
		out.colIndex[canonical(h.Name())] = len(out.headers)
		out.headers = append(out.headers, h)
	}
	for _, id := range first.rowIDs {
		out.ensureRow(id)
		for _, h := range first.headers[1:] {
			if v, ok := first.Get(id, h.Name()); ok {
				out.cells[cellKey{id: canonical(id), col: canonical(h.Name())}] = v
			}
		}
	}

	for _, sh := range sheets[1:] {
		// map each non-key column to a free display name before copying
		mapped := make(map[string]string, sh.Width()-1)
		for _, h := range sh.headers[1:] {
			name := out.uniqueHeaderName(h.Name())
			stored := name
			if h.Locked() {
				stored = LockPrefix + name
			}
			out.ensureColumn(stored)
			mapped[canonical(h.Name())] = name
		}
		for _, id := range sh.rowIDs {
			out.ensureRow(id)
			for _, h := range sh.headers[1:] {
				if v, ok := sh.Get(id, h.Name()); ok {
					dest := mapped[canonical(h.Name())]
					// last write wins on the improbable destination collision
					out.cells[cellKey{id: canonical(id), col: canonical(dest)}] = v
				}
			}
		}
	}
	return out, nil
}

// Contract undoes merge's suffix disambiguation: columns whose display names
// differ only by the trailing "_2", "_3", ... suffix are folded back into one
// column, their values combined under mode row by row. The surviving column is
// the group's leftmost, renamed to the common base name.
func (s *Sheet) Contract(mode Mode) error {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return err
	}

	groups := make(map[string][]string)
	var order []string
	for _, h := range s.headers[1:] {
		base := canonical(baseName(h.Name()))
		if _, ok := groups[base]; !ok {
			order = append(order, base)
		}
		groups[base] = append(groups[base], h.Name())
	}

	for _, base := range order {
		names := groups[base]
		if len(names) < 2 {
			continue
		}
		primary, rest := names[0], names[1:]
		for _, id := range s.rowIDs {
			cur, _ := s.Get(id, primary)
			acc := newAccumulator(mode, cur)
			for _, src := range rest {
				v, _ := s.Get(id, src)
				if err := acc.absorb(v); err != nil {
					var np *NumericParseError
					if errors.As(err, &np) {
						np.ID, np.Header = id, src
					}
					return err
				}
			}
			if acc.has {
				s.Set(id, primary, acc.value())
			}
		}
		for _, src := range rest {
			if err := s.RemoveColumn(src); err != nil {
				return err
			}
		}
		if canonical(primary) != base {
			ci, err := s.ResolveHeader(primary)
			if err != nil {
				return err
			}
			stored := baseName(primary)
			if s.headers[ci].Locked() {
				stored = LockPrefix + stored
			}
			if err := s.RenameHeader(primary, stored); err != nil {
				return err
			}
		}
	}
	return nil
}

// baseName strips the numeric disambiguation suffix from a display name.
func baseName(name string) string {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return name
	}
	if n, err := strconv.Atoi(name[i+1:]); err == nil && n >= 2 {
		return name[:i]
	}
	return name
}
