package loader

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
	"github.com/Simon3728/Data-Analysis-Election/internal/infrastructure"
	"github.com/Simon3728/Data-Analysis-Election/pkg/contracts/domain"
)

// Schema is the declared layout of one source.
type Schema = config.SourceConfig

var yearHeader = regexp.MustCompile(`^\d{4}$`)

// Row is one (state, year) observation with its named numeric values.
type Row struct {
	Key    domain.Key
	File   string
	Line   int
	Values map[string]float64
}

// Table is a loaded source: rows ordered by key, one value per column.
type Table struct {
	Name    string
	Path    string
	Columns []string
	Rows    []Row
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Indicators splits the table into one indicator table per column.
func (t *Table) Indicators() ([]*domain.IndicatorTable, error) {
	tables := make([]*domain.IndicatorTable, 0, len(t.Columns))
	for _, col := range t.Columns {
		records := make([]domain.IndicatorRecord, 0, len(t.Rows))
		for _, row := range t.Rows {
			v, ok := row.Values[col]
			if !ok {
				v = math.NaN()
			}
			records = append(records, domain.IndicatorRecord{Key: row.Key, Value: v})
		}
		table, err := domain.NewIndicatorTable(col, t.Path, records)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// Loader reads declared sources into tables keyed by (state, year).
type Loader struct {
	logger  *slog.Logger
	states  *StateNormalizer
	metrics *infrastructure.AnalysisMetrics
}

// NewLoader creates a loader. metrics may be nil.
func NewLoader(logger *slog.Logger, states *StateNormalizer, metrics *infrastructure.AnalysisMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:  infrastructure.WithComponent(logger, "loader"),
		states:  states,
		metrics: metrics,
	}
}

// LoadAll loads every source and returns their indicators in declaration
// order. Two sources producing the same indicator name is an error.
func (l *Loader) LoadAll(ctx context.Context, paths *config.Paths, sources []Schema) ([]*domain.IndicatorTable, error) {
	var (
		out   []*domain.IndicatorTable
		owner = make(map[string]string)
	)
	for _, src := range sources {
		pattern := src.Path
		if paths != nil {
			pattern = paths.DataPath(src.Path)
		}
		table, err := l.Load(ctx, pattern, src)
		if err != nil {
			return nil, err
		}
		indicators, err := table.Indicators()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}
		for _, ind := range indicators {
			if prev, dup := owner[ind.Name()]; dup {
				return nil, apperrors.NewConfigError(
					fmt.Sprintf("indicator %q produced by sources %q and %q", ind.Name(), prev, src.Name), nil)
			}
			owner[ind.Name()] = src.Name
			out = append(out, ind)
		}
	}
	return out, nil
}

// Load reads every file matching pattern with one schema and merges the
// rows. Rows sharing a key are combined by the schema's aggregate mode.
func (l *Loader) Load(ctx context.Context, pattern string, schema Schema) (*Table, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid source pattern %q", pattern), err)
	}
	if len(files) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("source %s files matching %s", schema.Name, pattern))
	}
	sort.Strings(files)

	var (
		rows    []Row
		columns []string
	)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileRows, cols, err := l.loadFile(file, schema)
		if err != nil {
			l.logger.ErrorContext(ctx, "source file rejected",
				slog.String("source", schema.Name),
				slog.String("file", file),
				slog.String("error", err.Error()))
			return nil, err
		}
		rows = append(rows, fileRows...)
		columns = cols
	}

	merged, err := aggregate(rows, columns, schema.Aggregate)
	if err != nil {
		return nil, err
	}

	table := &Table{Name: schema.Name, Path: pattern, Columns: columns, Rows: merged}
	if len(files) == 1 {
		table.Path = files[0]
	}

	l.metrics.RecordRowsLoaded(ctx, schema.Name, len(merged))
	l.logger.InfoContext(ctx, "source loaded",
		slog.String("source", schema.Name),
		slog.Int("files", len(files)),
		slog.Int("raw_rows", len(rows)),
		slog.Int("rows", len(merged)))
	return table, nil
}

// LoadFile reads a single file with the given schema, without aggregation.
func (l *Loader) LoadFile(path string, schema Schema) (*Table, error) {
	rows, columns, err := l.loadFile(path, schema)
	if err != nil {
		return nil, err
	}
	merged, err := aggregate(rows, columns, schema.Aggregate)
	if err != nil {
		return nil, err
	}
	return &Table{Name: schema.Name, Path: path, Columns: columns, Rows: merged}, nil
}

// layout is a schema resolved against one file's header.
type layout struct {
	path      string
	headerRow int
	state     int
	year      int
	fixedYear int
	columns   []boundColumn
	filters   []boundFilter
	wide      []wideCell
}

type boundColumn struct {
	index int
	cfg   config.ColumnConfig
}

type boundFilter struct {
	index int
	cfg   config.FilterConfig
}

// wideCell is one melted column: a year (years, columns modes) or a state
// (series mode).
type wideCell struct {
	index int
	year  int
	state string
}

func (l *Loader) loadFile(path string, schema Schema) ([]Row, []string, error) {
	g, err := readGrid(path, schema)
	if err != nil {
		return nil, nil, err
	}
	lay, err := l.bind(path, g, schema)
	if err != nil {
		return nil, nil, err
	}

	columns := outputColumns(schema)
	var rows []Row
	for _, r := range g.rows {
		if !lay.keep(r) {
			continue
		}
		produced, err := l.readRow(lay, schema, r)
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, produced...)
	}
	return rows, columns, nil
}

// outputColumns lists the numeric value names a schema produces.
func outputColumns(schema Schema) []string {
	if schema.Wide != nil {
		return []string{schema.Wide.Value.Name}
	}
	var cols []string
	for _, c := range schema.Columns {
		if c.Type != "string" {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

func (l *Loader) bind(path string, g *grid, schema Schema) (*layout, error) {
	lay := &layout{path: path, headerRow: schema.HeaderRow, state: -1, year: -1}
	if lay.headerRow == 0 && g.header != nil {
		lay.headerRow = 1
	}

	locate := func(name string, index int) (int, error) {
		if index > 0 {
			return index - 1, nil
		}
		i := g.columnIndex(name)
		if i < 0 {
			return -1, apperrors.NewFormatError(path, lay.headerRow, name, "", "required column missing")
		}
		return i, nil
	}

	seriesMode := schema.Wide != nil && schema.Wide.Mode == "series"
	if !seriesMode {
		if schema.State.Column == "" && schema.State.Index == 0 {
			return nil, apperrors.NewFormatError(path, 0, "", "", "schema declares no state column")
		}
		i, err := locate(schema.State.Column, schema.State.Index)
		if err != nil {
			return nil, err
		}
		lay.state = i
	}

	yearFromHeader := schema.Wide != nil && schema.Wide.Mode != "series"
	switch {
	case schema.Year.Column != "":
		i, err := locate(schema.Year.Column, 0)
		if err != nil {
			return nil, err
		}
		lay.year = i
	case schema.Year.FromFilename != "":
		re, err := regexp.Compile(schema.Year.FromFilename)
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("invalid year pattern %q", schema.Year.FromFilename), err)
		}
		base := filepath.Base(path)
		m := re.FindStringSubmatch(base)
		if len(m) < 2 {
			return nil, apperrors.NewFormatError(path, 0, "", base, "file name carries no year")
		}
		y, ok := parseYear(m[1], false)
		if !ok {
			return nil, apperrors.NewFormatError(path, 0, "", m[1], "file name year is not a year")
		}
		lay.fixedYear = y
	case schema.Year.Value != 0:
		lay.fixedYear = schema.Year.Value
	case !yearFromHeader:
		return nil, apperrors.NewFormatError(path, 0, "", "", "schema declares no year source")
	}

	for _, f := range schema.Filters {
		i, err := locate(f.Column, 0)
		if err != nil {
			return nil, err
		}
		lay.filters = append(lay.filters, boundFilter{index: i, cfg: f})
	}

	if schema.Wide == nil {
		for _, c := range schema.Columns {
			i, err := locate(c.SourceColumn(), c.Index)
			if err != nil {
				return nil, err
			}
			lay.columns = append(lay.columns, boundColumn{index: i, cfg: c})
		}
		return lay, nil
	}

	switch schema.Wide.Mode {
	case "years":
		for i, h := range g.header {
			if yearHeader.MatchString(h) {
				y, _ := strconv.Atoi(h)
				lay.wide = append(lay.wide, wideCell{index: i, year: y})
			}
		}
	case "columns":
		for _, yc := range schema.Wide.Columns {
			i, err := locate(yc.Source, yc.Index)
			if err != nil {
				return nil, err
			}
			lay.wide = append(lay.wide, wideCell{index: i, year: yc.Year})
		}
	case "series":
		for i, h := range g.header {
			if i == lay.year {
				continue
			}
			state, ok := l.states.Decode(h, schema.State.Codes)
			if !ok || !l.inUniverse(state) {
				continue
			}
			lay.wide = append(lay.wide, wideCell{index: i, state: state})
		}
	}
	if len(lay.wide) == 0 {
		return nil, apperrors.NewFormatError(path, lay.headerRow, "", "", "no columns to melt")
	}
	return lay, nil
}

func (l *Loader) inUniverse(state string) bool {
	return l.states.Known(state) || l.states.IsAggregate(state)
}

// keep applies the row filters to the raw cells.
func (lay *layout) keep(r gridRow) bool {
	for _, f := range lay.filters {
		v := r.cell(f.index)
		if f.cfg.Equals != "" && v != f.cfg.Equals {
			return false
		}
		if f.cfg.NotEquals != "" && v == f.cfg.NotEquals {
			return false
		}
		if len(f.cfg.In) > 0 {
			found := false
			for _, want := range f.cfg.In {
				if v == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (l *Loader) readRow(lay *layout, schema Schema, r gridRow) ([]Row, error) {
	year := lay.fixedYear
	if lay.year >= 0 {
		raw := r.cell(lay.year)
		y, ok := parseYear(raw, schema.Year.DatePrefix)
		if !ok {
			return nil, apperrors.NewFormatError(lay.path, r.line, schema.Year.Column, raw, "cannot parse year")
		}
		year = y
	}

	if schema.Wide != nil && schema.Wide.Mode == "series" {
		rows := make([]Row, 0, len(lay.wide))
		for _, w := range lay.wide {
			v, err := lay.value(r, w.index, schema.Wide.Value)
			if err != nil {
				return nil, err
			}
			rows = append(rows, Row{
				Key:    domain.Key{State: w.state, Year: year},
				File:   lay.path,
				Line:   r.line,
				Values: map[string]float64{schema.Wide.Value.Name: v},
			})
		}
		return rows, nil
	}

	rawState := r.cell(lay.state)
	state, ok := l.states.Decode(rawState, schema.State.Codes)
	if !ok || state == "" {
		if schema.State.OnlyKnown {
			return nil, nil
		}
		return nil, apperrors.NewFormatError(lay.path, r.line, schema.State.Column, rawState, "unrecognized state")
	}
	if schema.State.OnlyKnown && !l.inUniverse(state) {
		return nil, nil
	}

	if schema.Wide != nil {
		rows := make([]Row, 0, len(lay.wide))
		for _, w := range lay.wide {
			v, err := lay.value(r, w.index, schema.Wide.Value)
			if err != nil {
				return nil, err
			}
			rows = append(rows, Row{
				Key:    domain.Key{State: state, Year: w.year},
				File:   lay.path,
				Line:   r.line,
				Values: map[string]float64{schema.Wide.Value.Name: v},
			})
		}
		return rows, nil
	}

	values := make(map[string]float64, len(lay.columns))
	for _, c := range lay.columns {
		if c.cfg.Type == "string" {
			if c.cfg.Required && isMissing(r.cell(c.index)) {
				return nil, apperrors.NewFormatError(lay.path, r.line, c.cfg.SourceColumn(), "", "required value missing")
			}
			continue
		}
		v, err := lay.value(r, c.index, c.cfg)
		if err != nil {
			return nil, err
		}
		values[c.cfg.Name] = v
	}
	return []Row{{Key: domain.Key{State: state, Year: year}, File: lay.path, Line: r.line, Values: values}}, nil
}

// value coerces one cell, turning failures into a FormatError at the cell.
func (lay *layout) value(r gridRow, index int, col config.ColumnConfig) (float64, error) {
	raw := r.cell(index)
	column := col.SourceColumn()
	if col.Index > 0 && column == "" {
		column = strconv.Itoa(col.Index)
	}
	v, ok := coerce(raw, col)
	if !ok {
		typ := col.Type
		if typ == "" {
			typ = "float"
		}
		return 0, apperrors.NewFormatError(lay.path, r.line, column, raw, "cannot parse as "+typ)
	}
	if math.IsNaN(v) && col.Required {
		return 0, apperrors.NewFormatError(lay.path, r.line, column, raw, "required value missing")
	}
	return v, nil
}

// aggregate merges rows sharing a key. Under "none" a repeated key is a
// FormatError at the repeated row; "mean" and "sum" ignore missing values.
func aggregate(rows []Row, columns []string, mode string) ([]Row, error) {
	type acc struct {
		row    Row
		sums   map[string]float64
		counts map[string]int
	}

	byKey := make(map[domain.Key]*acc, len(rows))
	order := make([]domain.Key, 0, len(rows))
	for _, r := range rows {
		a, seen := byKey[r.Key]
		if seen && (mode == "" || mode == "none") {
			return nil, apperrors.NewFormatError(r.File, r.Line, "", r.Key.String(), "duplicate state and year")
		}
		if !seen {
			a = &acc{
				row:    Row{Key: r.Key, File: r.File, Line: r.Line},
				sums:   make(map[string]float64, len(columns)),
				counts: make(map[string]int, len(columns)),
			}
			byKey[r.Key] = a
			order = append(order, r.Key)
		}
		for _, c := range columns {
			v, ok := r.Values[c]
			if !ok || math.IsNaN(v) {
				continue
			}
			a.sums[c] += v
			a.counts[c]++
		}
	}

	domain.SortKeys(order)
	out := make([]Row, 0, len(order))
	for _, k := range order {
		a := byKey[k]
		values := make(map[string]float64, len(columns))
		for _, c := range columns {
			n := a.counts[c]
			switch {
			case n == 0:
				values[c] = math.NaN()
			case mode == "mean":
				values[c] = a.sums[c] / float64(n)
			default:
				values[c] = a.sums[c]
			}
		}
		a.row.Values = values
		out = append(out, a.row)
	}
	return out, nil
}
