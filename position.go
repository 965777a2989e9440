package navigator

import (
	"fmt"
	"strings"
)

// Position is a human-readable description of where a run currently is.
type Position struct {
	Workflow string           `json:"workflow"`
	Activity ActivityPosition `json:"activity"`
	Step     *StepPosition    `json:"step,omitempty"`
	Loop     *LoopPosition    `json:"loop,omitempty"`
}

// ActivityPosition names the current activity. Name falls back to the id when
// the activity is not in the workflow.
type ActivityPosition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StepPosition is the step at the cursor; Index is 1-based.
type StepPosition struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// LoopPosition describes a running loop. Iteration is 1-based for display.
type LoopPosition struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Iteration int    `json:"iteration"`
	Total     int    `json:"total,omitempty"`
	Item      any    `json:"item,omitempty"`
}

// ComputePosition resolves the state's position against the workflow.
//
// The loop shown is always the most recently started entry of ActiveLoops,
// whichever activity it belongs to, while ComputeAvailableActions looks loops
// up by the current activity. The two can disagree when loops from earlier
// activities are still open.
func ComputePosition(wf *Workflow, state *WorkflowState) Position {
	pos := Position{
		Workflow: wf.ID,
		Activity: ActivityPosition{ID: state.CurrentActivity, Name: state.CurrentActivity},
	}
	activity, ok := wf.Activity(state.CurrentActivity)
	if ok {
		pos.Activity.Name = activity.Name
		if state.CurrentStep != nil && len(activity.Steps) > 0 {
			if step, ok := activity.StepAt(*state.CurrentStep); ok {
				pos.Step = &StepPosition{ID: step.ID, Index: *state.CurrentStep, Name: step.Name}
			}
		}
	}
	if n := len(state.ActiveLoops); n > 0 {
		ls := state.ActiveLoops[n-1]
		pos.Loop = &LoopPosition{
			ID:        ls.LoopID,
			Name:      loopName(wf, ls),
			Iteration: ls.CurrentIteration + 1,
			Total:     ls.TotalItems,
			Item:      ls.CurrentItem,
		}
	}
	return pos
}

func loopName(wf *Workflow, ls LoopState) string {
	if activity, ok := wf.Activity(ls.ActivityID); ok {
		if loop, ok := activity.Loop(ls.LoopID); ok {
			return loop.Name
		}
	}
	return ls.LoopID
}

// SituationMessage summarizes the position and any pending checkpoint in a
// single line.
func SituationMessage(wf *Workflow, state *WorkflowState) string {
	pos := ComputePosition(wf, state)
	parts := []string{"Activity: " + pos.Activity.Name}
	if pos.Step != nil {
		parts = append(parts, fmt.Sprintf("Step %d: %s", pos.Step.Index, pos.Step.Name))
	}
	if pos.Loop != nil {
		loop := fmt.Sprintf("Loop: %s (iteration %d", pos.Loop.Name, pos.Loop.Iteration)
		if pos.Loop.Total > 0 {
			loop += fmt.Sprintf(" of %d", pos.Loop.Total)
		}
		parts = append(parts, loop+")")
	}
	if cp := ActiveCheckpoint(wf, state); cp != nil {
		parts = append(parts, "Checkpoint: "+cp.Message)
	}
	return strings.Join(parts, " | ")
}
