// Package main provides the pysheet command-line interface: load one or more
// delimited sheets, merge, consolidate and query them, read/write/remove
// individual cells, and save the result, optionally under a file lock.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/isthisthat/Pysheet/internal/config"
	"github.com/isthisthat/Pysheet/pkg/pysheet"
	"github.com/isthisthat/Pysheet/pkg/pysheet/lockfile"
	"github.com/isthisthat/Pysheet/pkg/pysheet/render"
	"github.com/isthisthat/Pysheet/pkg/pysheet/sheetio"
)

const version = "4.0.0"

// NoneSentinel in the header slot of a write, read or remove entry addresses
// the whole row instead of one cell; in the value slot of a write it
// suppresses the cell write, so the entry only creates the row and header.
const NoneSentinel = "NONE"

var (
	dataFiles []string
	delims    []string
	idCols    []int
	noHeaders []bool
	skipRows  []int
	transIn   []bool
	vstack    bool
	hstack    bool

	outFile     string
	outDelim    string
	outHeader   []string
	outNoHeader bool
	outTrans    bool

	writeCells  []string
	readCells   []string
	removeCells []string
	lockFile    string

	consolidateRules []string
	cleanRules       []string
	modeStr          string

	columns      []string
	queryTerms   []string
	printHeaders bool
	verbosity    int
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "!!! %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pysheet",
		Short: "Read, write and manipulate delimited text files",
		Long: `pysheet reads delimited sheets keyed by a unique ID column, merges them,
consolidates related columns under keywords, answers column queries, and
writes the result back out, optionally under a cross-process file lock.`,
		Example: `  pysheet -o mystudy.csv -w ID001 -w Age -w 38 -w ID002 -w Gender -w M
      create a blank sheet, add two cell entries, save as ./mystudy.csv

  pysheet -d mystudy.csv -c "Items store" -q Availability -q "Price>0.5"
      consolidate Items across columns whose headers contain "store", then
      print IDs with non-blank Availability and Price greater than 0.5

  pysheet -d table.txt -D '\t' -o mystudy.csv -k 5 -k 1-3
      read a tab-delimited sheet and save columns 0 (IDs), 5, 1, 2 and 3

  pysheet -d a.csv -d b.csv -d c.csv -i 2 -i 2 -i 3 -k ALL
      merge three files on their designated ID columns and print the table

  touch res.csv; pysheet -d res.csv -w run1 -w Result -w 0.93 -o res.csv -L
      append a result under a lock so parallel jobs do not lose writes`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	f := cmd.Flags()
	f.StringArrayVarP(&dataFiles, "data", "d", nil, `Delimited input file (repeatable), or "stdin"`)
	f.StringArrayVarP(&delims, "delim", "D", nil, `Input delimiter per file; '\t' for tab (default: detect)`)
	f.IntSliceVarP(&idCols, "id-col", "i", nil, "ID column index per file, -1 to auto-generate (default 0)")
	f.BoolSliceVarP(&noHeaders, "no-header", "n", nil, "Input file has no header row, per file")
	f.IntSliceVarP(&skipRows, "skip", "s", nil, "Rows to skip from the top, per file")
	f.BoolSliceVarP(&transIn, "trans", "t", nil, "Read input transposed, per file")
	f.BoolVar(&vstack, "vstack", false, "Stack input files by rows (positional columns)")
	f.BoolVar(&hstack, "hstack", false, "Stack input files by columns (positional rows)")

	f.StringVarP(&outFile, "out", "o", "", `Output file, or "stdout"`)
	f.StringVarP(&outDelim, "out-delim", "O", "", "Output delimiter (default comma)")
	f.StringArrayVar(&outHeader, "out-header", nil, "Replace the output header row with this list")
	f.BoolVarP(&outNoHeader, "out-no-header", "N", false, "Do not write the header row")
	f.BoolVarP(&outTrans, "out-trans", "T", false, "Write output transposed")

	f.StringArrayVarP(&writeCells, "write", "w", nil, "Write cells: ID HEADER VALUE triples (HEADER "+NoneSentinel+" creates the row only, VALUE "+NoneSentinel+" the row and header only)")
	f.StringArrayVarP(&readCells, "read", "r", nil, "Print cells: ID HEADER pairs (HEADER "+NoneSentinel+" prints the row)")
	f.StringArrayVarP(&removeCells, "remove", "R", nil, "Remove cells: ID HEADER pairs (HEADER "+NoneSentinel+" removes the row)")
	f.StringVarP(&lockFile, "lock-file", "L", "", "Lock the output during the read-modify-write cycle; optional marker path")
	f.Lookup("lock-file").NoOptDefVal = "auto"

	f.StringArrayVarP(&consolidateRules, "consolidate", "c", nil, `Consolidate columns: "TARGET KEYWORD..." (repeatable)`)
	f.StringArrayVarP(&cleanRules, "clean", "C", nil, `Consolidate and remove the source columns: "TARGET KEYWORD..." (repeatable)`)
	f.StringVarP(&modeStr, "mode", "e", "", "Consolidation mode: append|overwrite|add|mean|smart_append (default smart_append)")

	f.StringArrayVarP(&columns, "columns", "k", nil, "Extract specific columns (name, index, range a-b, or predicate)")
	f.StringArrayVarP(&queryTerms, "query", "q", nil, "Print IDs matching every term (rows with an Exclude entry never match)")
	f.BoolVarP(&printHeaders, "print-headers", "H", false, "Print all column headers and their index")
	f.CountVarP(&verbosity, "verbose", "v", "Verbosity level (repeat for more)")

	cmd.MarkFlagsMutuallyExclusive("write", "read", "remove")
	cmd.MarkFlagsMutuallyExclusive("vstack", "hstack")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbosity)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if modeStr == "" {
		modeStr = cfg.Mode
	}
	mode, err := pysheet.ParseMode(modeStr)
	if err != nil {
		return err
	}
	if outDelim == "" {
		outDelim = cfg.OutDelimiter
	}

	if len(args) > 0 {
		logger.Warn("unused parameters", "args", strings.Join(args, " "))
	}

	n := len(dataFiles)
	delims = repeatLast(delims, n, cfg.Delimiter)
	idCols = repeatLast(idCols, n, 0)
	noHeaders = repeatLast(noHeaders, n, false)
	skipRows = repeatLast(skipRows, n, 0)
	transIn = repeatLast(transIn, n, false)

	switch {
	case n == 1:
		logger.Info("input file", "path", dataFiles[0])
	case n > 1:
		logger.Info("input files", "count", n)
	}
	if outFile != "" {
		logger.Info("output file", "path", outFile)
	}

	// the lock brackets the whole read-modify-write cycle
	var token *lockfile.Token
	if cmd.Flags().Changed("lock-file") {
		if outFile == "" || outFile == sheetio.Stdout {
			logger.Warn("locking makes no sense without an output file")
		} else {
			token, err = acquireLock(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				logger.Debug("releasing lock", "marker", token.Marker())
				if err := token.Release(); err != nil {
					logger.Warn("release failed", "error", err)
				}
			}()
		}
	}

	sheet, err := loadSheets(logger)
	if err != nil {
		return err
	}

	if len(removeCells) > 0 {
		if err := doRemove(sheet, logger); err != nil {
			return err
		}
	}
	if len(writeCells) > 0 {
		if err := doWrite(sheet, mode, logger); err != nil {
			return err
		}
	}

	for _, raw := range cleanRules {
		logger.Info("consolidating (clean)", "rule", raw)
	}
	if err := sheet.Clean(parseRules(cleanRules), pysheet.ConsolidateOptions{Mode: mode}); err != nil {
		return err
	}
	for _, raw := range consolidateRules {
		logger.Info("consolidating", "rule", raw)
	}
	if err := sheet.Consolidate(parseRules(consolidateRules), pysheet.ConsolidateOptions{Mode: mode}); err != nil {
		return err
	}

	if cmd.Flags().Changed("columns") {
		view, err := sheet.SelectColumns(columns)
		if err != nil {
			return err
		}
		sheet = view
		if outFile == "" && len(queryTerms) == 0 && len(readCells) == 0 && !printHeaders {
			fmt.Print(render.Table(sheet))
		}
	}
	if printHeaders {
		fmt.Print(render.HeaderIndex(sheet))
	}
	if len(queryTerms) > 0 {
		ids, err := sheet.Query(queryTerms)
		if err != nil {
			return err
		}
		sort.Strings(ids)
		logger.Info("query done", "terms", strings.Join(queryTerms, " "), "matches", len(ids))
		for _, id := range ids {
			fmt.Println(id)
		}
	}
	if len(readCells) > 0 {
		if err := doRead(sheet, logger); err != nil {
			return err
		}
	}

	if outFile != "" {
		d, err := parseDelim(outDelim)
		if err != nil {
			return err
		}
		opts := sheetio.WriteOptions{
			Delimiter: d,
			NoHeader:  outNoHeader,
			Transpose: outTrans,
		}
		if len(outHeader) > 0 {
			opts.ReplaceHeaders = outHeader
		}
		if err := sheetio.Write(sheet, outFile, opts); err != nil {
			return err
		}
		logger.Info("saved", "path", outFile)
	}
	return nil
}

// loadSheets reads every input file and folds them into one sheet: merged on
// their ID columns by default, stacked positionally under --vstack/--hstack.
func loadSheets(logger *slog.Logger) (*pysheet.Sheet, error) {
	if len(dataFiles) == 0 {
		logger.Debug("creating a blank sheet")
		return pysheet.New(), nil
	}
	sheets := make([]*pysheet.Sheet, 0, len(dataFiles))
	for i, path := range dataFiles {
		d, err := parseDelim(delims[i])
		if err != nil {
			return nil, err
		}
		opts := sheetio.ReadOptions{
			Delimiter: d,
			IDColumn:  idCols[i],
			NoHeader:  noHeaders[i],
			Skip:      skipRows[i],
			Transpose: transIn[i],
		}
		if vstack {
			opts.NoHeader = true
		}
		if hstack {
			opts.IDColumn = -1
		}
		s, err := sheetio.Read(path, opts)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded", "path", path, "rows", s.Height(), "columns", s.Width())
		sheets = append(sheets, s)
	}
	switch {
	case vstack:
		base := sheets[0]
		for _, s := range sheets[1:] {
			if err := base.VStack(s); err != nil {
				return nil, err
			}
		}
		return base, nil
	case hstack:
		base := sheets[0]
		for _, s := range sheets[1:] {
			if err := base.HStack(s); err != nil {
				return nil, err
			}
		}
		return base, nil
	default:
		return pysheet.Merge(sheets...)
	}
}

func acquireLock(cfg *config.Config, logger *slog.Logger) (*lockfile.Token, error) {
	opts := lockfile.Options{
		Timeout: cfg.LockTimeout(),
		Poll:    cfg.LockPoll(),
		Stale:   cfg.LockStale(),
	}
	if lockFile != "auto" {
		opts.Marker = lockFile
	}
	marker := opts.Marker
	if marker == "" {
		marker = outFile + lockfile.Suffix
	}
	if samePath(marker, outFile) {
		return nil, fmt.Errorf("lock file cannot be the same as the output file: %s", marker)
	}
	for _, d := range dataFiles {
		if samePath(marker, d) {
			return nil, fmt.Errorf("lock file cannot be the same as a data file: %s", marker)
		}
	}
	logger.Info("lock file", "marker", marker)
	return lockfile.Acquire(outFile, opts)
}

func doWrite(sheet *pysheet.Sheet, mode pysheet.Mode, logger *slog.Logger) error {
	if len(writeCells)%3 != 0 {
		return fmt.Errorf("write entries must be ID HEADER VALUE triples: %s", strings.Join(writeCells, " "))
	}
	for i := 0; i < len(writeCells); i += 3 {
		id, header, value := writeCells[i], writeCells[i+1], writeCells[i+2]
		if strings.EqualFold(header, NoneSentinel) {
			sheet.EnsureRow(id)
			continue
		}
		if strings.EqualFold(value, NoneSentinel) {
			// row and header come into being, the cell stays blank
			sheet.EnsureRow(id)
			sheet.EnsureColumn(header)
			continue
		}
		if err := sheet.SetWith(id, header, value, mode); err != nil {
			return err
		}
	}
	logger.Info("added cells", "count", len(writeCells)/3)
	return nil
}

func doRead(sheet *pysheet.Sheet, logger *slog.Logger) error {
	if len(readCells)%2 != 0 {
		return fmt.Errorf("read entries must be ID HEADER pairs: %s", strings.Join(readCells, " "))
	}
	printed := 0
	for i := 0; i < len(readCells); i += 2 {
		id, header := readCells[i], readCells[i+1]
		if strings.EqualFold(header, NoneSentinel) {
			if row, ok := sheet.RowValues(id); ok {
				fmt.Println(strings.Join(row, "|"))
				printed++
			}
			continue
		}
		if v, ok := sheet.Get(id, header); ok && v != "" {
			fmt.Println(v)
			printed++
		}
	}
	logger.Info("printed cells", "count", printed)
	return nil
}

func doRemove(sheet *pysheet.Sheet, logger *slog.Logger) error {
	if len(removeCells)%2 != 0 {
		return fmt.Errorf("remove entries must be ID HEADER pairs: %s", strings.Join(removeCells, " "))
	}
	removed := 0
	for i := 0; i < len(removeCells); i += 2 {
		id, header := removeCells[i], removeCells[i+1]
		if strings.EqualFold(header, NoneSentinel) {
			if sheet.RemoveRow(id) {
				removed++
			}
			continue
		}
		if _, ok := sheet.Get(id, header); ok {
			sheet.Remove(id, header)
			removed++
		}
	}
	logger.Info("deleted cells", "count", removed)
	return nil
}

// parseRules splits each "TARGET KEYWORD..." argument into a consolidation
// rule. A rule with no keywords uses the target itself as the keyword.
func parseRules(raw []string) []pysheet.Rule {
	rules := make([]pysheet.Rule, 0, len(raw))
	for _, r := range raw {
		fields := strings.Fields(r)
		if len(fields) == 0 {
			continue
		}
		rules = append(rules, pysheet.Rule{Target: fields[0], Keywords: fields[1:]})
	}
	return rules
}

// parseDelim maps a delimiter argument to a rune; '\t' and '\s' escapes are
// accepted the way shells most often deliver them.
func parseDelim(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case `\t`, "\t":
		return '\t', nil
	case `\s`, " ":
		return ' ', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character: %q", s)
	}
	return runes[0], nil
}

func samePath(a, b string) bool {
	ra, errA := filepath.Abs(a)
	rb, errB := filepath.Abs(b)
	return errA == nil && errB == nil && ra == rb
}

// newLogger maps -v counts onto slog levels: warnings only by default, info
// at -v, debug at -vv.
func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity > 1:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func repeatLast[T any](list []T, n int, def T) []T {
	if n <= 0 {
		return list
	}
	if len(list) == 0 {
		list = []T{def}
	}
	for len(list) < n {
		list = append(list, list[len(list)-1])
	}
	return list[:n]
}
