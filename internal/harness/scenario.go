package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes one edit-session script: the metamodel it runs
// against and the ordered steps to apply.
type Scenario struct {
	// Name uniquely identifies the scenario; the golden file shares it.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description,omitempty"`

	// Metamodel is the CUE metamodel declaration, inline.
	Metamodel string `yaml:"metamodel"`

	// Steps are applied in order. A step whose Expect names an error kind
	// asserts the operation fails that way; any other failure aborts the
	// run.
	Steps []Step `yaml:"steps"`
}

// Step is one operation in a scenario. Exactly one operation field is set.
type Step struct {
	// Begin opens an edit session.
	Begin bool `yaml:"begin,omitempty"`

	// Create creates an object. Aliases let later steps refer to the
	// allocated identities.
	Create *CreateStep `yaml:"create,omitempty"`

	// Amend replaces one component bundle of an object.
	Amend *AmendStep `yaml:"amend,omitempty"`

	// Remove deletes an object from the working set (with cascade).
	Remove *RemoveStep `yaml:"remove,omitempty"`

	// Commit commits the open session; As records a frame alias.
	Commit *CommitStep `yaml:"commit,omitempty"`

	// Rollback abandons the open session.
	Rollback bool `yaml:"rollback,omitempty"`

	// Undo, Redo move the head along the version graph.
	Undo bool `yaml:"undo,omitempty"`
	Redo bool `yaml:"redo,omitempty"`

	// Goto moves the head to a frame recorded by a Commit alias.
	Goto *GotoStep `yaml:"goto,omitempty"`

	// SaveLoad saves the store to a temporary file and reopens it,
	// exercising the persistence round trip mid-scenario.
	SaveLoad bool `yaml:"save_load,omitempty"`

	// Expect names the error kind the operation must fail with:
	// "schema_violation", "unknown_type", "unknown_object",
	// "concurrent_edit", "no_parent", "no_redo_target", "unknown_frame",
	// "broken_reference". Empty means the operation must succeed.
	Expect string `yaml:"expect,omitempty"`
}

// CreateStep creates an object of a type with initial components.
type CreateStep struct {
	Type string `yaml:"type"`

	// As is the alias later steps use for the object.
	As string `yaml:"as,omitempty"`

	// Components maps component kind to attribute values. A reference is
	// written as {ref: <alias>}; a reference list as {refs: [<alias>...]}.
	Components map[string]map[string]any `yaml:"components"`
}

// AmendStep replaces one component bundle of an aliased object.
type AmendStep struct {
	Object     string         `yaml:"object"`
	Component  string         `yaml:"component"`
	Attributes map[string]any `yaml:"attributes"`
}

// RemoveStep deletes an aliased object.
type RemoveStep struct {
	Object string `yaml:"object"`
}

// CommitStep commits the session, optionally recording a frame alias.
type CommitStep struct {
	As string `yaml:"as,omitempty"`
}

// GotoStep moves the head to an aliased frame.
type GotoStep struct {
	Frame string `yaml:"frame"`
}

// LoadScenario reads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("load scenario %s: name is required", path)
	}
	return &sc, nil
}
