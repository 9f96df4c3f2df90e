// Package table holds the loose tabular input contract: named tables of
// string-valued records. Numbers may arrive as strings or numbers depending on
// the source, so every cell is kept as text and coerced later.
package table

import "pairstat/domain/core"

// Logical table names understood by the ingestion layer
const (
	Trials        = "trials"
	Summary       = "summary"
	CategoryTests = "category_tests"
	Covariates    = "covariates"
	Correlations  = "correlations"
	GoodnessOfFit = "goodness_of_fit"
)

// Record is one row keyed by header
type Record map[string]string

// Table is a homogeneous sequence of records
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// Empty reports whether the table carries no rows
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Fingerprint hashes the table contents
func (t *Table) Fingerprint() core.Fingerprint {
	if t == nil {
		return core.NewFingerprint(nil)
	}
	rows := make([]map[string]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r
	}
	return core.FingerprintRecords(t.Name, t.Columns, rows)
}

// Set is a collection of named tables
type Set map[string]*Table

// Get returns the named table or nil when it is absent or empty
func (s Set) Get(name string) *Table {
	t, ok := s[name]
	if !ok || t.Empty() {
		return nil
	}
	return t
}

// Names lists the logical tables in a fixed order, present or not
func Names() []string {
	return []string{Trials, Summary, CategoryTests, Covariates, Correlations, GoodnessOfFit}
}
