package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	harnesserrors "regress/internal/shared/errors"
)

//go:embed suite.schema.json
var suiteSchemaJSON string

const suiteSchemaURL = "regress://suite.schema.json"

var (
	suiteSchemaOnce sync.Once
	suiteSchema     *jsonschema.Schema
	suiteSchemaErr  error
)

// Suite is the document shape of a YAML suite file.
type Suite struct {
	Fixtures []Fixture `yaml:"fixtures" json:"fixtures"`
}

// LoadFile reads and validates a YAML suite file.
func LoadFile(path string) ([]Fixture, error) {
	if strings.TrimSpace(path) == "" {
		return nil, harnesserrors.NewConfigError(nil, "empty suite path")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, harnesserrors.NewConfigError(err, "read suite %s", path)
	}
	fixtures, err := Parse(raw)
	if err != nil {
		return nil, harnesserrors.NewConfigError(err, "suite %s", path)
	}
	return fixtures, nil
}

// Parse decodes a YAML suite document, checks it against the embedded JSON
// schema and then against the structural rules in Validate.
func Parse(raw []byte) ([]Fixture, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validateAgainstSchema(generic); err != nil {
		return nil, err
	}

	var suite Suite
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	if err := Validate(suite.Fixtures); err != nil {
		return nil, err
	}
	return suite.Fixtures, nil
}

func compiledSuiteSchema() (*jsonschema.Schema, error) {
	suiteSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(suiteSchemaURL, strings.NewReader(suiteSchemaJSON)); err != nil {
			suiteSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		suiteSchema, suiteSchemaErr = compiler.Compile(suiteSchemaURL)
		if suiteSchemaErr != nil {
			suiteSchemaErr = fmt.Errorf("compile schema: %w", suiteSchemaErr)
		}
	})
	return suiteSchema, suiteSchemaErr
}

// validateAgainstSchema round-trips the YAML value through JSON so the
// validator only sees JSON-native types.
func validateAgainstSchema(doc any) error {
	schema, err := compiledSuiteSchema()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode suite for validation: %w", err)
	}
	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
