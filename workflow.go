package navigator

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Variable declares a workflow variable and its initial value.
type Variable struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
}

// Workflow is a declarative, multi-activity procedure. A Workflow handed to
// the navigation functions is treated as trusted and already validated; the
// functions only perform referential lookups against it.
type Workflow struct {
	ID              string      `json:"id" yaml:"id" validate:"required"`
	Version         string      `json:"version" yaml:"version" validate:"required"`
	Title           string      `json:"title" yaml:"title" validate:"required"`
	Description     string      `json:"description,omitempty" yaml:"description,omitempty"`
	InitialActivity string      `json:"initialActivity" yaml:"initialActivity" validate:"required"`
	Variables       []*Variable `json:"variables,omitempty" yaml:"variables,omitempty" validate:"dive,required"`
	Activities      []*Activity `json:"activities" yaml:"activities" validate:"required,min=1,dive,required"`
}

// Activity returns the activity with the given id.
func (w *Workflow) Activity(id string) (*Activity, bool) {
	for _, activity := range w.Activities {
		if activity.ID == id {
			return activity, true
		}
	}
	return nil, false
}

// ActivityIDs returns the activity ids in declared order.
func (w *Workflow) ActivityIDs() []string {
	ids := make([]string, 0, len(w.Activities))
	for _, activity := range w.Activities {
		ids = append(ids, activity.ID)
	}
	return ids
}

// InitialVariables returns a fresh map holding the declared variable defaults.
func (w *Workflow) InitialVariables() map[string]any {
	vars := make(map[string]any, len(w.Variables))
	for _, v := range w.Variables {
		if v.Default != nil {
			vars[v.Name] = v.Default
		}
	}
	return vars
}

// Validate checks the workflow structure and its internal references.
func (w *Workflow) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("workflow %q: %w", w.ID, newSchemaError(err))
	}
	if err := validateReferences(w); err != nil {
		return fmt.Errorf("workflow %q: %w", w.ID, err)
	}
	return nil
}

// Activity is a stage of a workflow. Steps are tracked by their 1-based
// position in Steps, not by id.
type Activity struct {
	ID          string        `json:"id" yaml:"id" validate:"required"`
	Name        string        `json:"name" yaml:"name" validate:"required"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []*Step       `json:"steps,omitempty" yaml:"steps,omitempty" validate:"dive,required"`
	Checkpoints []*Checkpoint `json:"checkpoints,omitempty" yaml:"checkpoints,omitempty" validate:"dive,required"`
	Decisions   []*Decision   `json:"decisions,omitempty" yaml:"decisions,omitempty" validate:"dive,required"`
	Loops       []*Loop       `json:"loops,omitempty" yaml:"loops,omitempty" validate:"dive,required"`
	Transitions []*Transition `json:"transitions,omitempty" yaml:"transitions,omitempty" validate:"dive,required"`
}

// Step returns the step with the given id and its 1-based index.
func (a *Activity) Step(id string) (*Step, int, bool) {
	return findStep(a.Steps, id)
}

// StepAt returns the step at the given 1-based index.
func (a *Activity) StepAt(index int) (*Step, bool) {
	return stepAt(a.Steps, index)
}

// Checkpoint returns the checkpoint with the given id.
func (a *Activity) Checkpoint(id string) (*Checkpoint, bool) {
	for _, cp := range a.Checkpoints {
		if cp.ID == id {
			return cp, true
		}
	}
	return nil, false
}

// Decision returns the decision with the given id.
func (a *Activity) Decision(id string) (*Decision, bool) {
	for _, d := range a.Decisions {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Loop returns the loop with the given id.
func (a *Activity) Loop(id string) (*Loop, bool) {
	for _, l := range a.Loops {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// HasTransitionTo reports whether the activity declares a transition to target.
func (a *Activity) HasTransitionTo(target string) bool {
	for _, t := range a.Transitions {
		if t.To == target {
			return true
		}
	}
	return false
}

// LoadFile loads and validates a workflow from a YAML or JSON file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	wf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

// LoadReader loads and validates a workflow from r.
func LoadReader(r io.Reader) (*Workflow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}
	return Parse(data)
}

// LoadString loads and validates a workflow from a YAML string.
func LoadString(data string) (*Workflow, error) {
	return Parse([]byte(data))
}

// Parse decodes a workflow from YAML (or JSON, which is valid YAML) and
// validates it.
func Parse(data []byte) (*Workflow, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("workflow definition is empty")
	}
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}
