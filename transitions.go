package navigator

import "fmt"

// Result is the outcome of a transition. On failure State is the unchanged
// input state, so a retry with corrected arguments loses nothing.
type Result struct {
	Success bool             `json:"success"`
	State   *WorkflowState   `json:"state"`
	Error   *TransitionError `json:"error,omitempty"`
}

// Err returns the transition error, or nil on success.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

func succeed(state *WorkflowState) Result {
	return Result{Success: true, State: state}
}

func fail(state *WorkflowState, code ErrorCode, format string, args ...any) Result {
	return Result{
		State: state,
		Error: &TransitionError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

func workflowEnded(state *WorkflowState) Result {
	return fail(state, ErrWorkflowEnded, "workflow run is %s", state.Status)
}

func activityNotFound(wf *Workflow, state *WorkflowState) Result {
	return fail(state, ErrActivityNotFound, "activity %q not found in workflow %q", state.CurrentActivity, wf.ID)
}

// CompleteStep marks a step of the current activity as done and moves the
// step cursor to the lowest step not yet completed. A completed or aborted
// run accepts no further transitions; every transition function refuses
// with WORKFLOW_ENDED.
//
// If stepID is not an activity step but belongs to the body of a loop running
// in the current activity, the loop body cursor advances instead.
func CompleteStep(wf *Workflow, state *WorkflowState, stepID string) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return activityNotFound(wf, state)
	}
	if cp := ActiveCheckpoint(wf, state); cp != nil {
		return fail(state, ErrCheckpointBlocking, "checkpoint %q must be answered before completing steps", cp.ID)
	}
	step, index, found := activity.Step(stepID)
	if !found {
		if ls, looping := state.ActiveLoop(activity.ID); looping {
			if loop, ok := activity.Loop(ls.LoopID); ok {
				if _, bodyIndex, ok := loop.Step(stepID); ok {
					return completeLoopStep(state, activity, loop, *ls, stepID, bodyIndex)
				}
			}
		}
		return fail(state, ErrStepNotFound, "step %q not found in activity %q", stepID, activity.ID)
	}
	if state.IsStepCompleted(activity.ID, index) {
		return fail(state, ErrStepAlreadyComplete, "step %q in activity %q is already complete", stepID, activity.ID)
	}

	next := state.Copy()
	next.CompletedSteps[activity.ID] = append(next.CompletedSteps[activity.ID], index)
	// While a loop runs the cursor belongs to its body; AdvanceLoop
	// recomputes it when the loop ends.
	if _, looping := next.ActiveLoop(activity.ID); !looping {
		next.CurrentStep = firstPendingStep(activity, next)
	}
	next.record(HistoryEntry{
		Type:     EventStepCompleted,
		Activity: activity.ID,
		Step:     step.ID,
		Index:    index,
	})
	return succeed(next)
}

func completeLoopStep(state *WorkflowState, activity *Activity, loop *Loop, ls LoopState, stepID string, bodyIndex int) Result {
	if state.CurrentStep == nil || bodyIndex < *state.CurrentStep {
		return fail(state, ErrStepAlreadyComplete,
			"step %q of loop %q is already complete for iteration %d", stepID, loop.ID, ls.CurrentIteration+1)
	}
	next := state.Copy()
	if bodyIndex >= len(loop.Steps) {
		next.CurrentStep = nil
	} else {
		next.CurrentStep = intPtr(bodyIndex + 1)
	}
	next.record(HistoryEntry{
		Type:      EventStepCompleted,
		Activity:  activity.ID,
		Step:      stepID,
		Index:     bodyIndex,
		Loop:      loop.ID,
		Iteration: ls.CurrentIteration + 1,
	})
	return succeed(next)
}

// firstPendingStep returns the lowest 1-based index of the activity's steps
// that the state has not completed, or nil if all are done.
func firstPendingStep(activity *Activity, state *WorkflowState) *int {
	for i := range activity.Steps {
		if !state.IsStepCompleted(activity.ID, i+1) {
			return intPtr(i + 1)
		}
	}
	return nil
}

// RespondToCheckpoint records the option chosen for a checkpoint of the
// current activity. Responses are write-once. The option's effect is not
// applied; callers that want it read it from the workflow.
func RespondToCheckpoint(wf *Workflow, state *WorkflowState, checkpointID, optionID string) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return activityNotFound(wf, state)
	}
	cp, ok := activity.Checkpoint(checkpointID)
	if !ok {
		return fail(state, ErrCheckpointNotFound, "checkpoint %q not found in activity %q", checkpointID, activity.ID)
	}
	if _, ok := cp.Option(optionID); !ok {
		return fail(state, ErrOptionNotFound, "option %q not found in checkpoint %q", optionID, checkpointID)
	}
	if _, answered := state.CheckpointResponse(activity.ID, checkpointID); answered {
		return fail(state, ErrCheckpointAlreadyResponded, "checkpoint %q has already been answered", checkpointID)
	}

	next := state.Copy()
	next.CheckpointResponses[responseKey(activity.ID, checkpointID)] = CheckpointResponse{
		OptionID:    optionID,
		RespondedAt: now(),
	}
	next.record(HistoryEntry{
		Type:       EventCheckpointResponded,
		Activity:   activity.ID,
		Checkpoint: checkpointID,
		Option:     optionID,
	})
	return succeed(next)
}

// RecordDecision records the branch taken for a decision of the current
// activity. Unlike checkpoint responses, outcomes may be recorded again, which
// lets a decision inside a loop be revisited on every iteration.
func RecordDecision(wf *Workflow, state *WorkflowState, decisionID, branchID string) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return activityNotFound(wf, state)
	}
	decision, ok := activity.Decision(decisionID)
	if !ok {
		return fail(state, ErrDecisionNotFound, "decision %q not found in activity %q", decisionID, activity.ID)
	}
	if _, ok := decision.Branch(branchID); !ok {
		return fail(state, ErrBranchNotFound, "branch %q not found in decision %q", branchID, decisionID)
	}

	next := state.Copy()
	next.DecisionOutcomes[responseKey(activity.ID, decisionID)] = DecisionOutcome{
		BranchID:  branchID,
		DecidedAt: now(),
	}
	next.record(HistoryEntry{
		Type:     EventDecisionRecorded,
		Activity: activity.ID,
		Decision: decisionID,
		Branch:   branchID,
	})
	return succeed(next)
}

// TransitionToActivity moves the run to targetID. The current activity must
// be complete and must declare a transition to the target. Completed steps and
// checkpoint responses are kept for the whole run.
func TransitionToActivity(wf *Workflow, state *WorkflowState, targetID string) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	activity, ok := wf.Activity(state.CurrentActivity)
	if !ok {
		return activityNotFound(wf, state)
	}
	if !IsActivityComplete(wf, state) {
		return fail(state, ErrActivityNotComplete, "activity %q is not complete", activity.ID)
	}
	if _, ok := wf.Activity(targetID); !ok {
		return fail(state, ErrTargetActivityNotFound, "target activity %q not found in workflow %q", targetID, wf.ID)
	}
	if !activity.HasTransitionTo(targetID) {
		return fail(state, ErrInvalidTransition, "activity %q has no transition to %q", activity.ID, targetID)
	}

	next := state.Copy()
	next.CurrentActivity = targetID
	next.CurrentStep = intPtr(1)
	next.record(HistoryEntry{
		Type:     EventActivityEntered,
		Activity: targetID,
		Detail:   "from " + activity.ID,
	})
	return succeed(next)
}

// TryDefaultTransition transitions along the current activity's default
// transition once the activity is complete.
func TryDefaultTransition(wf *Workflow, state *WorkflowState) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	if !IsActivityComplete(wf, state) {
		return fail(state, ErrActivityNotComplete, "activity %q is not complete", state.CurrentActivity)
	}
	target, ok := DefaultTransition(wf, state)
	if !ok {
		return fail(state, ErrNoDefaultTransition, "activity %q has no transitions", state.CurrentActivity)
	}
	return TransitionToActivity(wf, state, target)
}

// AdvanceLoop starts or advances loopID within the current activity.
//
// The first call needs a non-empty items list and starts at iteration 0. Each
// later call moves to the next item; the call that would move past the last
// item removes the loop. State keeps only the current item and the count, so
// callers pass the same items on every call.
func AdvanceLoop(wf *Workflow, state *WorkflowState, loopID string, items []any) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	activityID := state.CurrentActivity
	idx := -1
	for i, ls := range state.ActiveLoops {
		if ls.ActivityID == activityID && ls.LoopID == loopID {
			idx = i
			break
		}
	}

	if idx < 0 {
		if len(items) == 0 {
			return fail(state, ErrLoopItemsRequired, "loop %q needs a non-empty item list to start", loopID)
		}
		next := state.Copy()
		next.ActiveLoops = append(next.ActiveLoops, LoopState{
			ActivityID:       activityID,
			LoopID:           loopID,
			CurrentIteration: 0,
			TotalItems:       len(items),
			CurrentItem:      items[0],
			StartedAt:        now(),
		})
		next.CurrentStep = intPtr(1)
		next.record(HistoryEntry{
			Type:      EventLoopStarted,
			Activity:  activityID,
			Loop:      loopID,
			Iteration: 1,
		})
		return succeed(next)
	}

	next := state.Copy()
	ls := next.ActiveLoops[idx]
	nextIteration := ls.CurrentIteration + 1
	if nextIteration >= ls.TotalItems {
		next.ActiveLoops = append(next.ActiveLoops[:idx], next.ActiveLoops[idx+1:]...)
		if activity, ok := wf.Activity(activityID); ok {
			next.CurrentStep = firstPendingStep(activity, next)
		}
		next.record(HistoryEntry{
			Type:      EventLoopCompleted,
			Activity:  activityID,
			Loop:      loopID,
			Iteration: ls.CurrentIteration + 1,
		})
		return succeed(next)
	}

	ls.CurrentIteration = nextIteration
	ls.CurrentItem = nil
	if nextIteration < len(items) {
		ls.CurrentItem = items[nextIteration]
	}
	next.ActiveLoops[idx] = ls
	next.CurrentStep = intPtr(1)
	next.record(HistoryEntry{
		Type:      EventLoopIteration,
		Activity:  activityID,
		Loop:      loopID,
		Iteration: nextIteration + 1,
	})
	return succeed(next)
}

// SetVariable stores a value in the state's variable bag.
func SetVariable(state *WorkflowState, name string, value any) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	next := state.Copy()
	next.Variables[name] = value
	next.record(HistoryEntry{
		Type:     EventVariableSet,
		Activity: state.CurrentActivity,
		Detail:   name,
	})
	return succeed(next)
}

// CompleteWorkflow ends the run once the current activity is complete.
func CompleteWorkflow(wf *Workflow, state *WorkflowState) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	if _, ok := wf.Activity(state.CurrentActivity); !ok {
		return activityNotFound(wf, state)
	}
	if !IsActivityComplete(wf, state) {
		return fail(state, ErrActivityNotComplete, "activity %q is not complete", state.CurrentActivity)
	}
	next := state.Copy()
	next.Status = StatusCompleted
	next.record(HistoryEntry{Type: EventWorkflowCompleted, Activity: state.CurrentActivity})
	return succeed(next)
}

// AbortWorkflow ends the run without completing it.
func AbortWorkflow(state *WorkflowState, reason string) Result {
	if state.Status.IsTerminal() {
		return workflowEnded(state)
	}
	next := state.Copy()
	next.Status = StatusAborted
	next.record(HistoryEntry{
		Type:     EventWorkflowAborted,
		Activity: state.CurrentActivity,
		Detail:   reason,
	})
	return succeed(next)
}
