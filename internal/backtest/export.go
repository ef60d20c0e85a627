package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/value-tipster/internal/models"
)

// ExportToJSON writes any report value as indented JSON
func ExportToJSON(value any, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export: %w", err)
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// ExportReport writes the report JSON, the ledger CSV and the equity curve
// CSV under dir and returns the written paths.
func ExportReport(report *models.BenchmarkReport, dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	base := fmt.Sprintf("%s_%s_%s", sanitize(report.League), sanitize(report.Season), report.ID.String()[:8])

	jsonPath := filepath.Join(dir, base+".json")
	if err := ExportToJSON(report, jsonPath); err != nil {
		return nil, err
	}

	ledgerPath := filepath.Join(dir, base+"_ledger.csv")
	f, err := os.Create(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger file: %w", err)
	}
	if err := WriteLedgerCSV(f, report.Ledger); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	equityPath := filepath.Join(dir, base+"_equity.csv")
	curve := BuildEquityCurve(report.InitialBankroll, report.Ledger)
	if err := os.WriteFile(equityPath, []byte(curve.ToCSV()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write equity curve: %w", err)
	}

	return []string{jsonPath, ledgerPath, equityPath}, nil
}

func sanitize(s string) string {
	if s == "" {
		return "all"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
