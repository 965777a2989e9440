package navigator

import (
	"testing"
	"time"
)

func boolPtr(v bool) *bool {
	return &v
}

// fixedClock pins timestamps for the duration of a test.
func fixedClock(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2025, 7, 21, 12, 0, 0, 0, time.UTC)
	previous := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = previous })
	return ts
}

// taskWorkflow has a single activity with two steps and no checkpoints.
func taskWorkflow() *Workflow {
	return &Workflow{
		ID:              "simple",
		Version:         "1.0.0",
		Title:           "Simple",
		InitialActivity: "task",
		Activities: []*Activity{
			{
				ID:   "task",
				Name: "Task",
				Steps: []*Step{
					{ID: "step-1", Name: "First"},
					{ID: "step-2", Name: "Second"},
				},
			},
		},
	}
}

// reviewWorkflow exercises checkpoints, loops, decisions and transitions.
func reviewWorkflow() *Workflow {
	return &Workflow{
		ID:              "review-flow",
		Version:         "2.0.0",
		Title:           "Review",
		InitialActivity: "review",
		Variables: []*Variable{
			{Name: "owner", Default: "agent"},
			{Name: "notes"},
		},
		Activities: []*Activity{
			{
				ID:   "review",
				Name: "Review",
				Steps: []*Step{
					{ID: "work", Name: "Do the work"},
					{ID: "polish", Name: "Polish", Required: boolPtr(false)},
				},
				Checkpoints: []*Checkpoint{
					{
						ID:      "gate",
						Message: "Proceed with the review?",
						Options: []*CheckpointOption{
							{ID: "yes", Label: "Yes"},
							{ID: "no", Label: "No", Effect: &OptionEffect{TransitionTo: "done"}},
						},
					},
					{
						ID:       "optional-gate",
						Message:  "Anything else?",
						Required: boolPtr(false),
						Options:  []*CheckpointOption{{ID: "ok", Label: "OK"}},
					},
				},
				Decisions: []*Decision{
					{
						ID:   "outcome",
						Name: "Outcome",
						Branches: []*DecisionBranch{
							{ID: "accept", Label: "Accept"},
							{ID: "reject", Label: "Reject", TransitionTo: "done"},
						},
					},
				},
				Loops: []*Loop{
					{
						ID:   "files",
						Name: "Files",
						Type: LoopForEach,
						Steps: []*Step{
							{ID: "open-file", Name: "Open file"},
							{ID: "check-file", Name: "Check file"},
						},
					},
				},
				Transitions: []*Transition{
					{To: "rework"},
					{To: "done", IsDefault: true},
				},
			},
			{
				ID:          "rework",
				Name:        "Rework",
				Steps:       []*Step{{ID: "fix", Name: "Fix"}},
				Transitions: []*Transition{{To: "review"}},
			},
			{
				ID:   "done",
				Name: "Done",
			},
		},
	}
}

// mustSucceed fails the test unless the result is a success.
func mustSucceed(t *testing.T, result Result) *WorkflowState {
	t.Helper()
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Error)
	}
	return result.State
}
