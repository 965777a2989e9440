package navigator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	wf, err := LoadFile("testdata/workflows/review.yaml")
	require.NoError(t, err)
	require.Equal(t, "code-review", wf.ID)
	require.Equal(t, "1.0.0", wf.Version)
	require.Equal(t, "prepare", wf.InitialActivity)
	require.Equal(t, []string{"prepare", "review", "ship"}, wf.ActivityIDs())
	require.Equal(t, map[string]any{"reviewer": "agent"}, wf.InitialVariables())

	review, ok := wf.Activity("review")
	require.True(t, ok)

	cp, ok := review.Checkpoint("scope")
	require.True(t, ok)
	require.True(t, cp.IsRequired())
	require.True(t, cp.IsBlocking())
	require.Equal(t, []string{"yes", "no"}, cp.OptionIDs())
	opt, ok := cp.Option("no")
	require.True(t, ok)
	require.Equal(t, "prepare", opt.Effect.TransitionTo)
	require.Equal(t, map[string]any{"split": true}, opt.Effect.SetVariable)

	loop, ok := review.Loop("findings")
	require.True(t, ok)
	require.Equal(t, LoopForEach, loop.Type)
	step, index, ok := loop.Step("suggest")
	require.True(t, ok)
	require.Equal(t, 2, index)
	require.Equal(t, "Suggest a fix", step.Name)

	decision, ok := review.Decision("severity")
	require.True(t, ok)
	branch, ok := decision.Branch("major")
	require.True(t, ok)
	require.Equal(t, "prepare", branch.TransitionTo)

	prepare, _ := wf.Activity("prepare")
	notes, index, ok := prepare.Step("take-notes")
	require.True(t, ok)
	require.Equal(t, 3, index)
	require.False(t, notes.IsRequired())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("testdata/workflows/missing.yaml")
	require.Error(t, err)

	_, err = LoadFile("testdata/invalid/broken.yaml")
	require.Error(t, err)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	joined := strings.Join(schemaErr.Problems, "\n")
	require.Contains(t, joined, `initial activity "missing" not found`)
	require.Contains(t, joined, `duplicate step id "a"`)
	require.Contains(t, joined, `unknown activity "nowhere"`)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		problem string
	}{
		{
			name:    "empty",
			input:   "   \n",
			problem: "workflow definition is empty",
		},
		{
			name:    "malformed yaml",
			input:   "id: [unterminated",
			problem: "failed to unmarshal workflow",
		},
		{
			name: "missing fields",
			input: `
id: partial
activities:
  - id: a
    name: A
`,
			problem: "version: is required",
		},
		{
			name: "no activities",
			input: `
id: hollow
version: "1"
title: Hollow
initialActivity: a
`,
			problem: "activities: is required",
		},
		{
			name: "nested field",
			input: `
id: nested
version: "1"
title: Nested
initialActivity: a
activities:
  - id: a
    name: A
    steps:
      - id: s
`,
			problem: "activities[0].steps[0].name: is required",
		},
		{
			name: "two defaults",
			input: `
id: defaults
version: "1"
title: Defaults
initialActivity: a
activities:
  - id: a
    name: A
    transitions:
      - to: b
        isDefault: true
      - to: a
        isDefault: true
  - id: b
    name: B
`,
			problem: "declares 2 default transitions",
		},
		{
			name: "loop step shadows activity step",
			input: `
id: shadow
version: "1"
title: Shadow
initialActivity: a
activities:
  - id: a
    name: A
    steps:
      - id: check
        name: Check
    loops:
      - id: items
        name: Items
        steps:
          - id: check
            name: Check item
`,
			problem: `loop "items" step "check" shadows an activity step`,
		},
		{
			name: "effect target",
			input: `
id: effects
version: "1"
title: Effects
initialActivity: a
activities:
  - id: a
    name: A
    checkpoints:
      - id: c
        message: Go?
        options:
          - id: ok
            label: OK
            effect:
              skipActivities: [ghost]
`,
			problem: `skips unknown activity "ghost"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadString(tt.input)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestLoadReaderJSON(t *testing.T) {
	wf, err := LoadReader(strings.NewReader(`{
		"id": "json-flow",
		"version": "1",
		"title": "JSON",
		"initialActivity": "a",
		"activities": [{"id": "a", "name": "A", "steps": [{"id": "s", "name": "S"}]}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "json-flow", wf.ID)
	step, ok := wf.Activities[0].StepAt(1)
	require.True(t, ok)
	require.Equal(t, "s", step.ID)
	_, ok = wf.Activities[0].StepAt(2)
	require.False(t, ok)
	_, ok = wf.Activities[0].StepAt(0)
	require.False(t, ok)
}

func TestFixtureWorkflowsAreValid(t *testing.T) {
	require.NoError(t, taskWorkflow().Validate())
	require.NoError(t, reviewWorkflow().Validate())
}

func TestActivityLookups(t *testing.T) {
	wf := reviewWorkflow()

	_, ok := wf.Activity("ghost")
	require.False(t, ok)

	review, ok := wf.Activity("review")
	require.True(t, ok)
	require.True(t, review.HasTransitionTo("done"))
	require.False(t, review.HasTransitionTo("review"))

	_, _, ok = review.Step("open-file")
	require.False(t, ok, "loop body steps are not activity steps")
	_, ok = review.Checkpoint("ghost")
	require.False(t, ok)
	_, ok = review.Decision("ghost")
	require.False(t, ok)
	_, ok = review.Loop("ghost")
	require.False(t, ok)
}
