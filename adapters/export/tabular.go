// Package export serializes reports into flat tables and documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"pairstat/domain/study"
)

// ParticipantRows flattens the report into participant, A, B, delta rows,
// header first.
func ParticipantRows(r *study.Report) [][]string {
	rows := [][]string{{"participant", r.ConditionA, r.ConditionB, "delta"}}
	for _, p := range r.Participants {
		rows = append(rows, []string{
			p.ParticipantID,
			formatFloat(p.Aggregate(r.ConditionA)),
			formatFloat(p.Aggregate(r.ConditionB)),
			formatFloat(p.Delta),
		})
	}
	return rows
}

// SummaryRows lists the headline numbers as statistic/value pairs, header
// first. Unavailable values are written as empty cells.
func SummaryRows(r *study.Report) [][]string {
	rows := [][]string{{"statistic", "value"}}
	add := func(k, v string) { rows = append(rows, []string{k, v}) }

	describe := func(label string, d study.Descriptive) {
		if d.Status == study.StatusMissing || d.Status == study.StatusSkipped {
			add("mean_"+label, "")
		} else {
			add("mean_"+label, formatFloat(d.Mean))
		}
		sd := ""
		if d.SD != nil {
			sd = formatFloat(*d.SD)
		}
		add("sd_"+label, sd)
	}
	describe(r.ConditionA, r.Descriptives.A)
	describe(r.ConditionB, r.Descriptives.B)
	describe("delta", r.Descriptives.Delta)

	add("mode", string(r.Mode))
	add("test", string(r.MainTest.Kind))
	add("test_status", string(r.MainTest.Status))
	if r.MainTest.Available() {
		add("p_value", formatFloat(r.MainTest.PValue))
	} else {
		add("p_value", "")
	}
	if e := r.MainTest.Effect; e != nil {
		add("effect_size_"+e.Name, formatFloat(e.Value))
	}
	if r.Normality.Available() {
		add("normality_w", formatFloat(r.Normality.W))
		add("normality_p", formatFloat(r.Normality.P))
	}
	add("distributions", r.Distributions)
	return rows
}

// WriteParticipantsCSV writes the participant table
func WriteParticipantsCSV(w io.Writer, r *study.Report) error {
	return writeCSV(w, ParticipantRows(r))
}

// WriteSummaryCSV writes the summary table
func WriteSummaryCSV(w io.Writer, r *study.Report) error {
	return writeCSV(w, SummaryRows(r))
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// Sheet names of the workbook export
const (
	SheetParticipants = "Participants"
	SheetSummary      = "Summary"
)

// WriteXLSX writes a workbook with a participants sheet and a summary sheet
func WriteXLSX(w io.Writer, r *study.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetParticipants); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	if err := fillSheet(f, SheetParticipants, ParticipantRows(r)); err != nil {
		return err
	}
	if err := fillSheet(f, SheetSummary, SummaryRows(r)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// fillSheet writes rows, storing numeric-looking cells as numbers
func fillSheet(f *excelize.File, sheet string, rows [][]string) error {
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			if n, err := strconv.ParseFloat(v, 64); err == nil && i > 0 {
				cells[j] = n
			} else {
				cells[j] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
