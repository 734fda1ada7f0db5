package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"qbank/internal/format"
	"qbank/internal/importer"
)

var (
	stdout          io.Writer        = os.Stdout
	outputFormatter format.Formatter = format.JSONFormatter{}
)

func writeJSON(payload any) error {
	return outputFormatter.Write(stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(stdout, format, args...)
	return err
}

func formatStartLine(target string) string {
	return fmt.Sprintf("Starting image import to collection '%s'...", target)
}

func formatResultLine(r importer.Result) string {
	if r.OK() {
		return fmt.Sprintf("Imported image %s: %s", r.ID, r.Path)
	}
	return fmt.Sprintf("Failed to import image %s: %s", r.Raw, r.Err)
}

func formatSummaryLine(s importer.Summary) string {
	if s.DryRun {
		return fmt.Sprintf("Dry run completed. Would import %d images. Errors: %d.", s.Imported, s.Failed)
	}
	return fmt.Sprintf("Import completed. Imported %d images. Errors: %d.", s.Imported, s.Failed)
}

type importFailure struct {
	Index  int             `json:"index"`
	Record json.RawMessage `json:"record"`
	Error  string          `json:"error"`
}

type importReport struct {
	RunID    string          `json:"run_id"`
	Imported int             `json:"imported"`
	Errors   int             `json:"errors"`
	DryRun   bool            `json:"dry_run"`
	Failures []importFailure `json:"failures"`
}

func newImportReport(s importer.Summary) importReport {
	report := importReport{
		RunID:    s.RunID,
		Imported: s.Imported,
		Errors:   s.Failed,
		DryRun:   s.DryRun,
		Failures: []importFailure{},
	}
	for _, r := range s.Results {
		if r.OK() {
			continue
		}
		report.Failures = append(report.Failures, importFailure{
			Index:  r.Index,
			Record: json.RawMessage(r.Raw),
			Error:  r.Err.Error(),
		})
	}
	return report
}
