package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TestReport is the machine-readable form of a finished run.
type TestReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	DurationMS  int64           `json:"duration_ms"`
	Summary     ReportSummary   `json:"summary"`
	Fixtures    []FixtureReport `json:"fixtures"`
}

// ReportSummary holds aggregate counts.
type ReportSummary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// FixtureReport holds the outcome of one fixture.
type FixtureReport struct {
	Name        string   `json:"name"`
	Status      string   `json:"status"` // "pass" or "fail"
	State       State    `json:"state"`
	DurationMS  int64    `json:"duration_ms"`
	ExitCode    *int     `json:"exit_code,omitempty"`
	Missing     string   `json:"missing,omitempty"`
	ClosestLine string   `json:"closest_line,omitempty"`
	Diagnostic  string   `json:"diagnostic,omitempty"`
	Expected    []string `json:"expected"`
	Stdout      string   `json:"stdout,omitempty"`
}

// BuildReport converts a summary into a TestReport.
func BuildReport(summary *RunSummary) *TestReport {
	report := &TestReport{
		GeneratedAt: time.Now().UTC(),
		DurationMS:  summary.Duration.Milliseconds(),
		Summary: ReportSummary{
			Total:  summary.Total,
			Passed: summary.Passed,
			Failed: summary.Failed(),
		},
		Fixtures: make([]FixtureReport, 0, len(summary.Results)),
	}

	for _, r := range summary.Results {
		fr := FixtureReport{
			Name:       r.Fixture.Name,
			Status:     "pass",
			State:      r.State,
			DurationMS: r.Duration.Milliseconds(),
			ExitCode:   r.Invocation.ExitCode,
			Expected:   r.Fixture.ExpectedOutput,
		}
		if !r.Passed() {
			fr.Status = "fail"
			fr.Diagnostic = strings.TrimSpace(r.Diagnostic())
		}
		if r.State == StateVerifiedFail && r.Verification != nil {
			fr.Missing = r.Verification.FirstMissingExpectation
			fr.ClosestLine = r.Verification.ClosestLine
			fr.Stdout = r.Invocation.Stdout
		}
		report.Fixtures = append(report.Fixtures, fr)
	}
	return report
}

// ToJSON renders the report as indented JSON.
func (r *TestReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToMarkdown renders the report for CI summaries and PR comments.
func (r *TestReport) ToMarkdown() string {
	var sb strings.Builder

	if r.Summary.Failed == 0 {
		sb.WriteString("## Regression Suite: PASSED\n\n")
	} else {
		sb.WriteString("## Regression Suite: FAILED\n\n")
	}

	sb.WriteString(fmt.Sprintf("- Total: %d\n", r.Summary.Total))
	sb.WriteString(fmt.Sprintf("- Passed: %d\n", r.Summary.Passed))
	sb.WriteString(fmt.Sprintf("- Failed: %d\n", r.Summary.Failed))
	sb.WriteString(fmt.Sprintf("- Duration: %s\n\n", time.Duration(r.DurationMS)*time.Millisecond))

	sb.WriteString("| Fixture | Status | State | Duration |\n")
	sb.WriteString("|---------|--------|-------|----------|\n")
	for _, f := range r.Fixtures {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %dms |\n", f.Name, f.Status, f.State, f.DurationMS))
	}

	var failures []FixtureReport
	for _, f := range r.Fixtures {
		if f.Status == "fail" {
			failures = append(failures, f)
		}
	}
	if len(failures) == 0 {
		return sb.String()
	}

	sb.WriteString("\n### Failures\n")
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("\n#### %s (%s)\n\n", f.Name, f.State))
		if f.Diagnostic != "" {
			sb.WriteString("```\n")
			sb.WriteString(f.Diagnostic)
			sb.WriteString("\n```\n")
		}
		if f.ClosestLine != "" {
			sb.WriteString(fmt.Sprintf("\nClosest line: `%s`\n", f.ClosestLine))
		}
	}
	return sb.String()
}
