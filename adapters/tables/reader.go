// Package tables reads the named input tables from CSV, XLSX and JSON sources.
// Every cell is kept as trimmed text; numeric interpretation happens during
// ingestion.
package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"

	"pairstat/domain/table"
	"pairstat/internal/errors"
	"pairstat/internal/schema"
)

// Format of a source file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// DetectFormat maps a file extension to a format, defaulting to CSV
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}

// ReadFile reads one logical table from a file. For XLSX, sheet selects the
// worksheet; an empty sheet means the first one.
func ReadFile(name, path, sheet string) (*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.MissingData(fmt.Sprintf("%s source not found: %s", name, path))
	}

	switch DetectFormat(path) {
	case FormatXLSX:
		return readXLSX(name, path, sheet)
	case FormatJSON:
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON file: %w", err)
		}
		return ReadJSON(name, raw)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return ReadCSV(name, f)
	}
}

// ReadCSV reads a header row followed by data rows. Ragged rows are allowed.
func ReadCSV(name string, r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("failed to read CSV for %s: %v", name, err))
	}
	return fromRows(name, rows)
}

func readXLSX(name, path, sheet string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.MissingData(fmt.Sprintf("workbook %s has no sheets", path))
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return fromRows(name, rows)
}

// ReadWorkbook reads every sheet whose name matches a logical table name, so a
// single workbook can carry trials, summary and covariates side by side.
func ReadWorkbook(path string) (table.Set, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	known := map[string]bool{}
	for _, n := range table.Names() {
		known[n] = true
	}

	set := table.Set{}
	for _, sheet := range f.GetSheetList() {
		name := schema.Normalize(sheet)
		if !known[name] {
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		t, err := fromRows(name, rows)
		if err != nil {
			continue
		}
		set[name] = t
	}
	return set, nil
}

// fromRows turns a header row plus data rows into a table
func fromRows(name string, rows [][]string) (*table.Table, error) {
	if len(rows) < 2 {
		return nil, errors.MissingData(fmt.Sprintf("%s needs a header row and at least one data row", name))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	t := &table.Table{Name: name, Columns: headers}
	for _, row := range rows[1:] {
		rec := make(table.Record, len(headers))
		blank := true
		for j, cell := range row {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			rec[headers[j]] = cell
		}
		if !blank {
			t.Rows = append(t.Rows, rec)
		}
	}
	if t.Empty() {
		return nil, errors.MissingData(fmt.Sprintf("%s has no data rows", name))
	}
	return t, nil
}

// ReadJSON reads an array of flat objects, or an object whose "rows" field
// holds one. Numbers and strings are both accepted for any cell.
func ReadJSON(name string, raw []byte) (*table.Table, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.InvalidInput(fmt.Sprintf("%s is not valid JSON", name))
	}
	doc := gjson.ParseBytes(raw)
	if doc.IsObject() {
		doc = doc.Get("rows")
	}
	return fromJSONArray(name, doc)
}

// ReadJSONSet reads a document of the form {"tables": {"trials": [...], ...}}.
// A bare object of arrays is accepted as well. A malformed trials or summary
// entry fails the whole document. Any other malformed table is left out of the
// set and reported in skipped with the reason; keys that name no known table
// are ignored.
func ReadJSONSet(raw []byte) (set table.Set, skipped map[string]string, err error) {
	if !gjson.ValidBytes(raw) {
		return nil, nil, errors.InvalidInput("request body is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if tables := doc.Get("tables"); tables.IsObject() {
		doc = tables
	}
	if !doc.IsObject() {
		return nil, nil, errors.InvalidInput("expected an object of named tables")
	}

	known := map[string]bool{}
	for _, n := range table.Names() {
		known[n] = true
	}

	set = table.Set{}
	skipped = map[string]string{}
	doc.ForEach(func(key, value gjson.Result) bool {
		name := schema.Normalize(key.String())
		if !known[name] {
			return true
		}
		t, ferr := fromJSONArray(name, value)
		switch {
		case ferr == nil:
			set[name] = t
		case errors.HasCode(ferr, errors.CodeMissingData):
			// an empty table counts as absent
		case name == table.Trials || name == table.Summary:
			err = ferr
			return false
		default:
			skipped[name] = ferr.Error()
		}
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return set, skipped, nil
}

func fromJSONArray(name string, arr gjson.Result) (*table.Table, error) {
	if !arr.IsArray() {
		return nil, errors.InvalidInput(fmt.Sprintf("%s must be an array of objects", name))
	}

	t := &table.Table{Name: name}
	seen := map[string]bool{}
	var bad error
	arr.ForEach(func(_, obj gjson.Result) bool {
		if !obj.IsObject() {
			bad = errors.InvalidInput(fmt.Sprintf("%s contains a non-object row", name))
			return false
		}
		rec := table.Record{}
		obj.ForEach(func(k, v gjson.Result) bool {
			col := strings.TrimSpace(k.String())
			if !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
			rec[col] = strings.TrimSpace(v.String())
			return true
		})
		t.Rows = append(t.Rows, rec)
		return true
	})
	if bad != nil {
		return nil, bad
	}
	if t.Empty() {
		return nil, errors.MissingData(fmt.Sprintf("%s has no rows", name))
	}
	return t, nil
}
