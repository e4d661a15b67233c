package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Report is the persisted correction report.
type Report struct {
	Corrections []Record `json:"corrections"`
	Summary     Summary  `json:"summary"`
}

// Summary aggregates the report.
type Summary struct {
	Total       int    `json:"total"`
	Successful  int    `json:"successful"`
	GeneratedAt string `json:"generated_at"`
}

// BuildReport assembles a report from records.
func BuildReport(records []Record, now time.Time) Report {
	report := Report{
		Corrections: records,
		Summary: Summary{
			Total:       len(records),
			GeneratedAt: now.Format(time.RFC3339),
		},
	}
	for _, r := range records {
		if r.Success {
			report.Summary.Successful++
		}
	}
	if report.Corrections == nil {
		report.Corrections = []Record{}
	}
	return report
}

// WriteReport writes a report to path as indented JSON.
func WriteReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ledger: write report: %w", err)
	}
	return nil
}

// Export writes the correction report to path as indented JSON.
func (l *Ledger) Export(path string) error {
	report := BuildReport(l.List(), l.now())
	if err := WriteReport(path, report); err != nil {
		return err
	}
	l.logger.Info("corrections report exported", "path", path, "total", report.Summary.Total)
	return nil
}

// ReadReport loads a previously exported report.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ledger: read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("ledger: parse report: %w", err)
	}
	return &r, nil
}
