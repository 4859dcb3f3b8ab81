// Package fixture holds the compiler regression cases: the built-in registry,
// YAML suite loading and name/tag selection.
package fixture

import (
	"fmt"
	"regexp"
	"strings"

	harnesserrors "regress/internal/shared/errors"
)

// Fixture describes one source file and the output fragments it must produce.
type Fixture struct {
	Name           string   `yaml:"name" json:"name"`
	ExpectedOutput []string `yaml:"expected_output" json:"expected_output"`
	Tags           []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// builtin is never handed out directly; Default returns copies.
var builtin = []Fixture{
	{
		Name:           "factorial.optx",
		ExpectedOutput: []string{"Program returned: 120"},
		Tags:           []string{"recursion"},
	},
	{
		Name:           "fibonacci.optx",
		ExpectedOutput: []string{"Program returned: 55"},
		Tags:           []string{"recursion"},
	},
	{
		Name:           "print_loop.optx",
		ExpectedOutput: []string{"1", "2", "3", "4", "5", "Program returned: 0"},
		Tags:           []string{"loop", "print"},
	},
	{
		Name:           "comprehensive.optx",
		ExpectedOutput: []string{"0", "10", "20", "30", "40", "Program returned: 0"},
		Tags:           []string{"loop", "print"},
	},
}

// Default returns the canonical suite in registry order.
func Default() []Fixture {
	return Clone(builtin)
}

// Clone deep-copies fixtures so callers cannot alter the source slice.
func Clone(fixtures []Fixture) []Fixture {
	out := make([]Fixture, len(fixtures))
	for i, f := range fixtures {
		out[i] = Fixture{
			Name:           f.Name,
			ExpectedOutput: append([]string(nil), f.ExpectedOutput...),
			Tags:           append([]string(nil), f.Tags...),
		}
	}
	return out
}

// HasTag reports whether the fixture carries tag (case-insensitive).
func (f Fixture) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if strings.EqualFold(strings.TrimSpace(t), strings.TrimSpace(tag)) {
			return true
		}
	}
	return false
}

// Select filters fixtures by a name regex and a tag set while keeping
// registry order. An empty pattern matches every name; an empty tag list
// matches every fixture. A selection that matches nothing is a config error.
func Select(all []Fixture, pattern string, tags []string) ([]Fixture, error) {
	var re *regexp.Regexp
	if strings.TrimSpace(pattern) != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, harnesserrors.NewConfigError(err, "invalid --run pattern %q", pattern)
		}
		re = compiled
	}

	var out []Fixture
	for _, f := range all {
		if re != nil && !re.MatchString(f.Name) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(f, tags) {
			continue
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, harnesserrors.NewConfigError(nil, "no fixtures matched (run=%q tags=%v)", pattern, tags)
	}
	return out, nil
}

func hasAnyTag(f Fixture, tags []string) bool {
	for _, tag := range tags {
		if f.HasTag(tag) {
			return true
		}
	}
	return false
}

// Validate checks the structural rules of a fixture list: at least one
// fixture, unique non-empty names and non-empty expectations.
func Validate(fixtures []Fixture) error {
	if len(fixtures) == 0 {
		return harnesserrors.NewConfigError(nil, "suite has no fixtures")
	}
	seen := make(map[string]struct{}, len(fixtures))
	for i, f := range fixtures {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return harnesserrors.NewConfigError(nil, "fixture %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return harnesserrors.NewConfigError(nil, "duplicate fixture %q", name)
		}
		seen[name] = struct{}{}
		if len(f.ExpectedOutput) == 0 {
			return harnesserrors.NewConfigError(nil, "fixture %q has no expected output", name)
		}
		for j, exp := range f.ExpectedOutput {
			if exp == "" {
				return harnesserrors.NewConfigError(nil, "fixture %q: expectation %d is empty", name, j)
			}
		}
	}
	return nil
}

// String renders f as "name [exp1, exp2]".
func (f Fixture) String() string {
	return fmt.Sprintf("%s [%s]", f.Name, strings.Join(f.ExpectedOutput, ", "))
}
