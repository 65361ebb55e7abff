// Package store ships reference implementations of the external collaborator
// interfaces in internal/core/ports.go: a YAML-file-backed test-case store
// validated against a generated JSON Schema at load time, and in-memory
// submission/progress/saved-code stores for running the core end-to-end in a
// dev environment. Grounded on ormasoftchile-gert's pkg/schema package
// (strict YAML decode, invopop/jsonschema generation, santhosh-tekuri
// validation, same three-phase shape).
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/isipython-edu/isipython-core/internal/core"
)

// challengeFile is the on-disk shape of one challenge's test-case YAML file:
// a list of cases keyed by challenge ID, so one file can seed several
// challenges for local development.
type challengeFile struct {
	Challenges map[string][]testCaseDoc `yaml:"challenges" json:"challenges" jsonschema:"required"`
}

// testCaseDoc mirrors core.TestCase with yaml/json tags for schema
// generation and decode; IsHidden and IsExample must never both be true.
type testCaseDoc struct {
	ID             string   `yaml:"id" json:"id" jsonschema:"required"`
	InputData      []string `yaml:"input_data,omitempty" json:"input_data,omitempty"`
	ExpectedOutput string   `yaml:"expected_output" json:"expected_output" jsonschema:"required"`
	PointsWeight   float64  `yaml:"points_weight" json:"points_weight" jsonschema:"required"`
	IsHidden       bool     `yaml:"is_hidden,omitempty" json:"is_hidden,omitempty"`
	IsExample      bool     `yaml:"is_example,omitempty" json:"is_example,omitempty"`
	Explanation    string   `yaml:"explanation,omitempty" json:"explanation,omitempty"`
}

// GenerateTestCaseSchema produces the JSON Schema that YAML test-case files
// are validated against, via invopop/jsonschema reflecting challengeFile.
func GenerateTestCaseSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false
	s := r.Reflect(&challengeFile{})
	s.ID = "https://isipython.example/schemas/testcases-v1.json"
	s.Title = "IsiPython Challenge Test Cases"
	return json.MarshalIndent(s, "", "  ")
}

// TestCaseStore is a YAML-file-backed implementation of core.TestCaseStore.
// Files are loaded and schema-validated once, at construction; lookups are
// served from the in-memory decode afterward.
type TestCaseStore struct {
	mu     sync.RWMutex
	byChal map[string][]core.TestCase
}

// LoadTestCaseStore reads path, strict-decodes it as YAML, validates the
// result against the generated JSON Schema, and returns a ready store. A
// schema violation or malformed YAML is returned as an error rather than
// silently producing an empty store.
func LoadTestCaseStore(path string) (*TestCaseStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}

	var doc challengeFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", path, err)
	}

	if err := validateAgainstSchema(raw); err != nil {
		return nil, fmt.Errorf("store: %s failed schema validation: %w", path, err)
	}

	byChal := make(map[string][]core.TestCase, len(doc.Challenges))
	for challengeID, cases := range doc.Challenges {
		converted := make([]core.TestCase, 0, len(cases))
		for _, c := range cases {
			if c.IsHidden && c.IsExample {
				return nil, fmt.Errorf("store: %s: test case %q in challenge %q is marked both hidden and example", path, c.ID, challengeID)
			}
			converted = append(converted, core.TestCase{
				ID:             c.ID,
				InputData:      c.InputData,
				ExpectedOutput: c.ExpectedOutput,
				PointsWeight:   c.PointsWeight,
				IsHidden:       c.IsHidden,
				IsExample:      c.IsExample,
				Explanation:    c.Explanation,
			})
		}
		byChal[challengeID] = converted
	}

	return &TestCaseStore{byChal: byChal}, nil
}

// NewEmptyTestCaseStore returns a store with no challenges loaded, for
// deployments that haven't configured a test-case fixture yet.
func NewEmptyTestCaseStore() *TestCaseStore {
	return &TestCaseStore{byChal: map[string][]core.TestCase{}}
}

func validateAgainstSchema(raw []byte) error {
	schemaJSON, err := GenerateTestCaseSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fmt.Errorf("unmarshal schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("testcases-v1.json", schemaDoc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile("testcases-v1.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// Validate the document as written, not the decoded struct: a field
	// missing from the YAML would otherwise reappear as its zero value.
	var parsed interface{}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return sch.Validate(instance)
}

// FindByChallenge implements core.TestCaseStore.
func (s *TestCaseStore) FindByChallenge(ctx context.Context, challengeID string) ([]core.TestCase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cases, ok := s.byChal[challengeID]
	if !ok {
		return nil, fmt.Errorf("store: no test cases for challenge %q", challengeID)
	}
	out := make([]core.TestCase, len(cases))
	copy(out, cases)
	return out, nil
}
