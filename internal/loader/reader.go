package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Simon3728/Data-Analysis-Election/internal/config"
	apperrors "github.com/Simon3728/Data-Analysis-Election/internal/errors"
)

// gridRow is one physical data row with its 1-based line number.
type gridRow struct {
	line  int
	cells []string
}

// grid is a file reduced to a header and string cells.
type grid struct {
	header []string
	rows   []gridRow
}

// readGrid reads a file into a header and data rows according to the
// schema's format, header row and skip count.
func readGrid(path string, schema config.SourceConfig) (*grid, error) {
	var (
		all []gridRow
		err error
	)

	switch schema.Format {
	case "csv":
		all, err = readDelimited(path, ',')
	case "tsv":
		all, err = readDelimited(path, '\t')
	case "text":
		all, err = readWhitespace(path)
	case "xlsx":
		all, err = readWorkbook(path, schema.Sheet)
	default:
		return nil, apperrors.NewFormatError(path, 0, "", schema.Format, "unsupported format")
	}
	if err != nil {
		return nil, err
	}

	headerRow := schema.HeaderRow
	if headerRow == 0 && !usesIndexes(schema) {
		headerRow = 1
	}

	g := &grid{}
	start := 0
	if headerRow > 0 {
		idx := -1
		for i, r := range all {
			if r.line == headerRow {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, apperrors.NewFormatError(path, headerRow, "", "", "header row not found")
		}
		g.header = trimAll(all[idx].cells)
		start = idx + 1
	}
	for _, r := range all[start:] {
		if r.line <= headerRow+schema.SkipRows || blank(r.cells) {
			continue
		}
		g.rows = append(g.rows, r)
	}
	return g, nil
}

// usesIndexes reports whether every column of the schema is addressed by
// position, which lets a file have no header row at all.
func usesIndexes(schema config.SourceConfig) bool {
	if schema.State.Index == 0 || schema.Year.Column != "" {
		return false
	}
	for _, c := range schema.Columns {
		if c.Index == 0 {
			return false
		}
	}
	if w := schema.Wide; w != nil {
		if w.Mode != "columns" {
			return false
		}
		for _, yc := range w.Columns {
			if yc.Index == 0 {
				return false
			}
		}
	}
	return true
}

func readDelimited(path string, comma rune) ([]gridRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = comma == ','

	var rows []gridRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return nil, apperrors.NewFormatError(path, pe.StartLine, "", "", "malformed delimited row").WithCause(pe.Err)
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		line, _ := r.FieldPos(0)
		if len(rows) == 0 && len(record) > 0 {
			record[0] = strings.TrimPrefix(record[0], "\ufeff")
		}
		rows = append(rows, gridRow{line: line, cells: record})
	}
	return rows, nil
}

func readWhitespace(path string) ([]gridRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var rows []gridRow
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		rows = append(rows, gridRow{line: line, cells: strings.Fields(text)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func readWorkbook(path, sheet string) ([]gridRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewFormatError(path, 0, "", "", "workbook has no sheets")
		}
		sheet = sheets[0]
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewFormatError(path, 0, "", sheet, "sheet not readable").WithCause(err)
	}

	rows := make([]gridRow, 0, len(cells))
	for i, c := range cells {
		rows = append(rows, gridRow{line: i + 1, cells: c})
	}
	return rows, nil
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(strings.Trim(c, `"`))
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cell returns the trimmed value at index i, or "" past the row end.
func (r gridRow) cell(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(r.cells[i], `"`))
}

// columnIndex finds a header case-insensitively.
func (g *grid) columnIndex(name string) int {
	for i, h := range g.header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
