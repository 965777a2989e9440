package navigator

// Step is the smallest unit of work within an activity.
type Step struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Required defaults to true when absent.
	Required *bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// IsRequired reports whether the step must be completed before the activity
// counts as complete.
func (s *Step) IsRequired() bool {
	return s.Required == nil || *s.Required
}

// OptionEffect describes what choosing a checkpoint option is meant to do.
// Effects are data for the caller; the transition functions never apply them.
type OptionEffect struct {
	SetVariable    map[string]any `json:"setVariable,omitempty" yaml:"setVariable,omitempty"`
	TransitionTo   string         `json:"transitionTo,omitempty" yaml:"transitionTo,omitempty"`
	SkipActivities []string       `json:"skipActivities,omitempty" yaml:"skipActivities,omitempty"`
}

// CheckpointOption is one of the choices offered by a checkpoint.
type CheckpointOption struct {
	ID          string        `json:"id" yaml:"id" validate:"required"`
	Label       string        `json:"label" yaml:"label" validate:"required"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Effect      *OptionEffect `json:"effect,omitempty" yaml:"effect,omitempty"`
}

// Checkpoint is a decision point that blocks step progress until answered.
type Checkpoint struct {
	ID      string `json:"id" yaml:"id" validate:"required"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Message string `json:"message" yaml:"message" validate:"required"`
	// Required and Blocking default to true when absent.
	Required *bool               `json:"required,omitempty" yaml:"required,omitempty"`
	Blocking *bool               `json:"blocking,omitempty" yaml:"blocking,omitempty"`
	Options  []*CheckpointOption `json:"options" yaml:"options" validate:"required,min=1,dive,required"`
}

// IsRequired reports whether the checkpoint must be answered before the
// activity can complete.
func (c *Checkpoint) IsRequired() bool {
	return c.Required == nil || *c.Required
}

// IsBlocking reports whether an unanswered checkpoint blocks step completion.
func (c *Checkpoint) IsBlocking() bool {
	return c.Blocking == nil || *c.Blocking
}

// Option returns the option with the given id.
func (c *Checkpoint) Option(id string) (*CheckpointOption, bool) {
	for _, opt := range c.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return nil, false
}

// OptionIDs returns the ids of the checkpoint's options in declared order.
func (c *Checkpoint) OptionIDs() []string {
	ids := make([]string, 0, len(c.Options))
	for _, opt := range c.Options {
		ids = append(ids, opt.ID)
	}
	return ids
}

// DecisionBranch is one outcome of a decision. Conditions are opaque here;
// they are evaluated by whoever records the outcome.
type DecisionBranch struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	Label        string `json:"label" yaml:"label" validate:"required"`
	Condition    string `json:"condition,omitempty" yaml:"condition,omitempty"`
	TransitionTo string `json:"transitionTo,omitempty" yaml:"transitionTo,omitempty"`
	IsDefault    bool   `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
}

// Decision is a conditional branch point within an activity.
type Decision struct {
	ID          string            `json:"id" yaml:"id" validate:"required"`
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Branches    []*DecisionBranch `json:"branches" yaml:"branches" validate:"required,min=1,dive,required"`
}

// Branch returns the branch with the given id.
func (d *Decision) Branch(id string) (*DecisionBranch, bool) {
	for _, b := range d.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// LoopType identifies how a loop decides to repeat.
type LoopType string

const (
	LoopForEach LoopType = "forEach"
	LoopWhile   LoopType = "while"
	LoopDoWhile LoopType = "doWhile"
)

// Loop is a bounded iteration over a caller-supplied item list. Steps is the
// loop body; while a loop is active the state's current step indexes it.
type Loop struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Name          string   `json:"name" yaml:"name" validate:"required"`
	Type          LoopType `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=forEach while doWhile"`
	Variable      string   `json:"variable,omitempty" yaml:"variable,omitempty"`
	Over          string   `json:"over,omitempty" yaml:"over,omitempty"`
	Condition     string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	MaxIterations int      `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty" validate:"omitempty,min=1"`
	Steps         []*Step  `json:"steps,omitempty" yaml:"steps,omitempty" validate:"dive,required"`
}

// Step returns the body step with the given id and its 1-based index.
func (l *Loop) Step(id string) (*Step, int, bool) {
	return findStep(l.Steps, id)
}

// StepAt returns the body step at the given 1-based index.
func (l *Loop) StepAt(index int) (*Step, bool) {
	return stepAt(l.Steps, index)
}

// Transition links an activity to a possible next activity.
type Transition struct {
	To        string `json:"to" yaml:"to" validate:"required"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	IsDefault bool   `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
}

func findStep(steps []*Step, id string) (*Step, int, bool) {
	for i, step := range steps {
		if step.ID == id {
			return step, i + 1, true
		}
	}
	return nil, 0, false
}

func stepAt(steps []*Step, index int) (*Step, bool) {
	if index < 1 || index > len(steps) {
		return nil, false
	}
	return steps[index-1], true
}
