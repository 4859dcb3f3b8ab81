package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	harnesserrors "regress/internal/shared/errors"
)

func TestDefaultRegistryOrder(t *testing.T) {
	fixtures := Default()
	names := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		names = append(names, f.Name)
		require.NotEmpty(t, f.ExpectedOutput, "fixture %s", f.Name)
	}
	require.Equal(t, []string{"factorial.optx", "fibonacci.optx", "print_loop.optx", "comprehensive.optx"}, names)
	require.Equal(t, []string{"Program returned: 120"}, fixtures[0].ExpectedOutput)
	require.Equal(t, []string{"1", "2", "3", "4", "5", "Program returned: 0"}, fixtures[2].ExpectedOutput)
	require.NoError(t, Validate(fixtures))
}

func TestDefaultReturnsCopies(t *testing.T) {
	first := Default()
	first[0].ExpectedOutput[0] = "mutated"
	first[0].Name = "mutated.optx"

	second := Default()
	require.Equal(t, "factorial.optx", second[0].Name)
	require.Equal(t, "Program returned: 120", second[0].ExpectedOutput[0])
}

func TestSelect(t *testing.T) {
	all := Default()

	t.Run("no filters keeps everything in order", func(t *testing.T) {
		got, err := Select(all, "", nil)
		require.NoError(t, err)
		require.Equal(t, all, got)
	})

	t.Run("name pattern", func(t *testing.T) {
		got, err := Select(all, "^f", nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "factorial.optx", got[0].Name)
		require.Equal(t, "fibonacci.optx", got[1].Name)
	})

	t.Run("tag", func(t *testing.T) {
		got, err := Select(all, "", []string{"LOOP"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "print_loop.optx", got[0].Name)
	})

	t.Run("empty selection", func(t *testing.T) {
		_, err := Select(all, "nothing-matches", nil)
		require.Error(t, err)
		require.Equal(t, harnesserrors.KindConfig, harnesserrors.KindOf(err))
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Select(all, "(", nil)
		require.Equal(t, harnesserrors.KindConfig, harnesserrors.KindOf(err))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		fixtures []Fixture
		wantErr  bool
	}{
		{"empty suite", nil, true},
		{"missing name", []Fixture{{ExpectedOutput: []string{"x"}}}, true},
		{"no expectations", []Fixture{{Name: "a.optx"}}, true},
		{"empty expectation", []Fixture{{Name: "a.optx", ExpectedOutput: []string{""}}}, true},
		{"duplicate", []Fixture{
			{Name: "a.optx", ExpectedOutput: []string{"x"}},
			{Name: "a.optx", ExpectedOutput: []string{"y"}},
		}, true},
		{"valid", []Fixture{{Name: "a.optx", ExpectedOutput: []string{"x"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.fixtures)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseSuite(t *testing.T) {
	raw := []byte(`
fixtures:
  - name: factorial.optx
    expected_output: ["Program returned: 120"]
    tags: [recursion]
  - name: loop.optx
    expected_output:
      - "1"
      - "Program returned: 0"
`)
	fixtures, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)
	require.Equal(t, "factorial.optx", fixtures[0].Name)
	require.Equal(t, []string{"recursion"}, fixtures[0].Tags)
	require.Equal(t, []string{"1", "Program returned: 0"}, fixtures[1].ExpectedOutput)
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"empty document":     ``,
		"no fixtures":        "fixtures: []\n",
		"empty expectations": "fixtures:\n  - name: a.optx\n    expected_output: []\n",
		"empty expectation":  "fixtures:\n  - name: a.optx\n    expected_output: [\"\"]\n",
		"unknown field":      "fixtures:\n  - name: a.optx\n    expected_output: [x]\n    timeout: 3\n",
		"non-string output":  "fixtures:\n  - name: a.optx\n    expected_output: [[1]]\n",
		"not yaml":           "fixtures: [\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			require.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fixtures:\n  - name: a.optx\n    expected_output: [ok]\n"), 0o644))

	fixtures, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []Fixture{{Name: "a.optx", ExpectedOutput: []string{"ok"}}}, fixtures)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.Equal(t, harnesserrors.KindConfig, harnesserrors.KindOf(err))
}
