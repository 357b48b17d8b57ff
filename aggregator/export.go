package aggregator

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportDocument is the downloadable report artifact.
type ExportDocument struct {
	GeneratedAt time.Time `json:"generated_at"`
	Report      Report    `json:"report"`
}

// Export serializes report as an indented JSON document stamped with generatedAt.
func Export(report Report, generatedAt time.Time) ([]byte, error) {
	doc := ExportDocument{GeneratedAt: generatedAt.UTC(), Report: report}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return b, nil
}

// WriteWorkbook writes report as an xlsx workbook with Summary, Rankings,
// Terms and Daily sheets.
func WriteWorkbook(w io.Writer, report Report, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	summary := [][]any{
		{"Generated at", generatedAt.UTC().Format(time.RFC3339)},
		{"Total responses", report.TotalResponses},
		{"Responses today", report.TodayCount},
	}
	for _, k := range []string{"most_common_role", "most_used_tool"} {
		if v, ok := report.Highlights[k]; ok {
			summary = append(summary, []any{k, v})
		}
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return err
	}

	rankings := [][]any{{"Field", "Value", "Count", "Percentage"}}
	for _, field := range Fields() {
		for _, e := range report.Rankings[field] {
			rankings = append(rankings, []any{field, e.Key, e.Count, e.Percentage})
		}
	}
	if err := writeSheet(f, "Rankings", rankings); err != nil {
		return err
	}

	terms := [][]any{{"Term", "Count", "Percentage"}}
	for _, e := range report.TopTerms {
		terms = append(terms, []any{e.Key, e.Count, e.Percentage})
	}
	if err := writeSheet(f, "Terms", terms); err != nil {
		return err
	}

	daily := [][]any{{"Day", "Responses"}}
	for _, d := range report.DailySeries {
		daily = append(daily, []any{d.Day, d.Count})
	}
	if err := writeSheet(f, "Daily", daily); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
