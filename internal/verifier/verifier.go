// Package verifier decides whether captured compiler output satisfies a
// fixture's expectations.
package verifier

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Outcome is the verdict for one fixture.
type Outcome struct {
	Passed bool
	// FirstMissingExpectation is the first expectation with no matching line.
	FirstMissingExpectation string
	// ClosestLine is the output line nearest to the missing expectation by
	// edit distance. Empty when the output has no lines.
	ClosestLine string
}

// Lines splits stdout into trimmed, non-empty lines.
func Lines(stdout string) []string {
	raw := strings.Split(stdout, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// Verify checks that every expectation is a literal substring of some output
// line. Each expectation scans the whole output from the top, so matches are
// existence checks and their relative order is not enforced. The first
// expectation without a match fails the check.
func Verify(stdout string, expected []string) Outcome {
	lines := Lines(stdout)
	for _, exp := range expected {
		if !containsInAnyLine(lines, exp) {
			return Outcome{
				Passed:                  false,
				FirstMissingExpectation: exp,
				ClosestLine:             closestLine(lines, exp),
			}
		}
	}
	return Outcome{Passed: true}
}

func containsInAnyLine(lines []string, needle string) bool {
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return true
		}
	}
	return false
}

// closestLine picks the line with the smallest Levenshtein distance to want;
// ties keep the earliest line.
func closestLine(lines []string, want string) string {
	if len(lines) == 0 {
		return ""
	}
	dmp := diffmatchpatch.New()
	best := lines[0]
	bestDistance := -1
	for _, line := range lines {
		distance := dmp.DiffLevenshtein(dmp.DiffMain(want, line, false))
		if bestDistance < 0 || distance < bestDistance {
			best = line
			bestDistance = distance
		}
	}
	return best
}
