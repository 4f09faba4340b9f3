package pysheet

import "strings"

// LockPrefix is the reserved prefix that marks a stored header name as
// locked. A locked header is skipped by keyword consolidation but remains
// addressable by its display name everywhere else.
const LockPrefix = "__"

// ExcludeHeader is the display name of the reserved column that flags a row
// for exclusion from query results.
const ExcludeHeader = "Exclude"

// AutoIDHeader is the display name of the synthetic ID column created when
// auto-generated row IDs are requested.
const AutoIDHeader = "AutoID"

// Header is a named column with a lock flag.
type Header struct {
	name   string // display name, prefix-stripped
	locked bool
}

// NewHeader builds a header from its stored name, detecting the lock prefix.
// Only the leading prefix is stripped; underscores elsewhere in the name are
// part of the display form.
func NewHeader(stored string) Header {
	stored = strings.TrimSpace(stored)
	if strings.HasPrefix(stored, LockPrefix) {
		return Header{name: strings.TrimPrefix(stored, LockPrefix), locked: true}
	}
	return Header{name: stored}
}

// Name returns the display name.
func (h Header) Name() string { return h.name }

// Locked reports whether the header is excluded from keyword consolidation.
func (h Header) Locked() bool { return h.locked }

// Stored returns the serialized name, with the lock prefix when locked.
func (h Header) Stored() string {
	if h.locked {
		return LockPrefix + h.name
	}
	return h.name
}
