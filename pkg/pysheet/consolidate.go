package pysheet

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultSeparator joins values in the append consolidation modes.
const DefaultSeparator = ";"

// Mode selects how two values for the same cell are combined.
type Mode string

const (
	// ModeOverwrite keeps the last non-blank value.
	ModeOverwrite Mode = "overwrite"
	// ModeAppend joins values with the separator, duplicates included.
	ModeAppend Mode = "append"
	// ModeSmartAppend joins values with the separator, skipping a value whose
	// delimited segment is already present. This is the default.
	ModeSmartAppend Mode = "smart_append"
	// ModeAdd sums values numerically.
	ModeAdd Mode = "add"
	// ModeMean keeps a running numeric average of the contributing values.
	ModeMean Mode = "mean"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOverwrite:
		return ModeOverwrite, nil
	case ModeAppend:
		return ModeAppend, nil
	case ModeSmartAppend, "":
		return ModeSmartAppend, nil
	case ModeAdd:
		return ModeAdd, nil
	case ModeMean:
		return ModeMean, nil
	}
	return "", fmt.Errorf("invalid consolidation mode %q", s)
}

// Rule is one consolidation: collapse every unlocked column whose display
// name contains any keyword into Target. An empty keyword list uses the
// target name itself as the keyword.
type Rule struct {
	Target   string
	Keywords []string
}

// ConsolidateOptions configures a consolidation run.
type ConsolidateOptions struct {
	// Mode is the combination mode. Empty means smart_append.
	Mode Mode
	// Clean deletes each rule's source columns after the rule completes.
	Clean bool
	// Separator joins values in the append modes. Empty means ";".
	Separator string
}

// Consolidate applies consolidation rules in order, each against the sheet
// state left by the previous one. The target column is created locked, so
// later rules never treat it as a source. Keyword matching is a
// case-sensitive substring test against unlocked display names.
func (s *Sheet) Consolidate(rules []Rule, opts ConsolidateOptions) error {
	if opts.Separator == "" {
		opts.Separator = DefaultSeparator
	}
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return err
	}

	for _, rule := range rules {
		target := strings.TrimSpace(rule.Target)
		if target == "" {
			continue
		}
		if err := s.InsertColumn(LockPrefix+target, -1); err != nil {
			return err
		}
		keywords := rule.Keywords
		if len(keywords) == 0 {
			keywords = []string{target}
		}

		// freeze the source set before any value moves
		var sources []string
		for i, h := range s.headers {
			if i == 0 || h.Locked() || canonical(h.Name()) == canonical(target) {
				continue
			}
			for _, kw := range keywords {
				if kw != "" && strings.Contains(h.Name(), kw) {
					sources = append(sources, h.Name())
					break
				}
			}
		}

		for _, id := range s.rowIDs {
			cur, _ := s.Get(id, target)
			acc := newAccumulator(mode, cur)
			acc.sep = opts.Separator
			for _, src := range sources {
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
				s.Set(id, target, acc.value())
			}
		}

		if opts.Clean {
			for _, src := range sources {
				if err := s.RemoveColumn(src); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Clean consolidates and then deletes the matched source columns.
func (s *Sheet) Clean(rules []Rule, opts ConsolidateOptions) error {
	opts.Clean = true
	return s.Consolidate(rules, opts)
}

// accumulator folds a stream of values into one cell under a combination
// mode. Blank inputs never change the accumulated value.
type accumulator struct {
	mode Mode
	sep  string
	val  string
	has  bool
	n    int     // contributing numeric samples, mean only
	sum  float64 // running total, mean only
}

func newAccumulator(mode Mode, initial string) *accumulator {
	a := &accumulator{mode: mode, sep: DefaultSeparator}
	if !IsBlank(initial) {
		a.val = initial
		a.has = true
	}
	return a
}

func (a *accumulator) absorb(v string) error {
	if IsBlank(v) {
		return nil
	}
	if !a.has {
		switch a.mode {
		case ModeAdd, ModeMean:
			n, err := ParseNumber(v)
			if err != nil {
				return err
			}
			a.n, a.sum = 1, n
			a.val = FormatNumber(n)
		default:
			a.val = v
		}
		a.has = true
		return nil
	}
	switch a.mode {
	case ModeOverwrite:
		a.val = v
	case ModeAppend:
		a.val = a.val + a.sep + v
	case ModeSmartAppend:
		for _, seg := range strings.Split(a.val, a.sep) {
			if seg == v {
				return nil
			}
		}
		a.val = a.val + a.sep + v
	case ModeAdd:
		if err := a.prime(); err != nil {
			return err
		}
		n, err := ParseNumber(v)
		if err != nil {
			return err
		}
		a.sum += n
		a.val = FormatNumber(a.sum)
	case ModeMean:
		if err := a.prime(); err != nil {
			return err
		}
		n, err := ParseNumber(v)
		if err != nil {
			return err
		}
		a.sum += n
		a.n++
		a.val = FormatNumber(a.sum / float64(a.n))
	}
	return nil
}

// prime parses a pre-existing accumulated value on the first numeric merge.
func (a *accumulator) prime() error {
	if a.n > 0 {
		return nil
	}
	n, err := ParseNumber(a.val)
	if err != nil {
		return err
	}
	a.n, a.sum = 1, n
	return nil
}

func (a *accumulator) value() string { return a.val }
