package navigator

import "fmt"

// ActionType names an operation a caller may perform next.
type ActionType string

const (
	ActionCompleteStep        ActionType = "complete_step"
	ActionRespondToCheckpoint ActionType = "respond_to_checkpoint"
	ActionGetResource         ActionType = "get_resource"
)

// Action is an affordance offered to the caller. Reason is only set on blocked
// actions.
type Action struct {
	Action       ActionType `json:"action"`
	StepID       string     `json:"stepId,omitempty"`
	CheckpointID string     `json:"checkpointId,omitempty"`
	LoopID       string     `json:"loopId,omitempty"`
	Options      []string   `json:"options,omitempty"`
	Description  string     `json:"description,omitempty"`
	Reason       string     `json:"reason,omitempty"`
}

// AvailableActions groups the affordances for the current position.
type AvailableActions struct {
	Required []Action `json:"required"`
	Optional []Action `json:"optional"`
	Blocked  []Action `json:"blocked"`
}

// ActiveCheckpoint returns the first checkpoint of the current activity, in
// declared order, that is required, blocking and not yet answered.
func ActiveCheckpoint(wf *Workflow, state *WorkflowState) *Checkpoint {
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return nil
	}
	for _, cp := range activity.Checkpoints {
		if !cp.IsRequired() || !cp.IsBlocking() {
			continue
		}
		if _, answered := state.CheckpointResponse(activity.ID, cp.ID); !answered {
			return cp
		}
	}
	return nil
}

// ComputeAvailableActions lists what the caller must, may, and cannot do next.
// An active checkpoint hides every other action.
func ComputeAvailableActions(wf *Workflow, state *WorkflowState) AvailableActions {
	actions := AvailableActions{
		Required: []Action{},
		Optional: []Action{},
		Blocked:  []Action{},
	}

	if cp := ActiveCheckpoint(wf, state); cp != nil {
		actions.Required = append(actions.Required, Action{
			Action:       ActionRespondToCheckpoint,
			CheckpointID: cp.ID,
			Options:      cp.OptionIDs(),
			Description:  cp.Message,
		})
		actions.Blocked = append(actions.Blocked, Action{
			Action: ActionCompleteStep,
			Reason: fmt.Sprintf("checkpoint %q must be answered first", cp.ID),
		})
		return actions
	}

	activity, ok := wf.Activity(state.CurrentActivity)
	if ok {
		if ls, looping := state.ActiveLoop(activity.ID); looping {
			if loop, ok := activity.Loop(ls.LoopID); ok && state.CurrentStep != nil {
				if step, ok := loop.StepAt(*state.CurrentStep); ok {
					actions.Required = append(actions.Required, Action{
						Action:      ActionCompleteStep,
						StepID:      step.ID,
						LoopID:      loop.ID,
						Description: step.Name,
					})
				}
			}
		} else if state.CurrentStep != nil {
			if step, ok := activity.StepAt(*state.CurrentStep); ok {
				actions.Required = append(actions.Required, Action{
					Action:      ActionCompleteStep,
					StepID:      step.ID,
					Description: step.Name,
				})
			}
		}
	}

	actions.Optional = append(actions.Optional, Action{
		Action:      ActionGetResource,
		Description: "guidance for the current activity is available",
	})
	return actions
}

// IsActivityComplete reports whether every required step of the current
// activity is done, no checkpoint is pending, and no loop is running in it.
func IsActivityComplete(wf *Workflow, state *WorkflowState) bool {
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return false
	}
	for i, step := range activity.Steps {
		if step.IsRequired() && !state.IsStepCompleted(activity.ID, i+1) {
			return false
		}
	}
	if ActiveCheckpoint(wf, state) != nil {
		return false
	}
	if _, looping := state.ActiveLoop(activity.ID); looping {
		return false
	}
	return true
}

// DefaultTransition returns the current activity's default transition target:
// the transition flagged as default, otherwise the first one declared.
func DefaultTransition(wf *Workflow, state *WorkflowState) (string, bool) {
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok || len(activity.Transitions) == 0 {
		return "", false
	}
	for _, t := range activity.Transitions {
		if t.IsDefault {
			return t.To, true
		}
	}
	return activity.Transitions[0].To, true
}
