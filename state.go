package navigator

import (
	"fmt"
	"time"

	"go.jetify.com/typeid"
)

// Status is the lifecycle status of a workflow run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
	StatusError     Status = "error"
)

// IsTerminal reports whether the run has ended.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// EventType classifies history entries.
type EventType string

const (
	EventWorkflowStarted     EventType = "workflow_started"
	EventStepCompleted       EventType = "step_completed"
	EventCheckpointResponded EventType = "checkpoint_responded"
	EventDecisionRecorded    EventType = "decision_recorded"
	EventActivityEntered     EventType = "activity_entered"
	EventLoopStarted         EventType = "loop_started"
	EventLoopIteration       EventType = "loop_iteration"
	EventLoopCompleted       EventType = "loop_completed"
	EventVariableSet         EventType = "variable_set"
	EventWorkflowCompleted   EventType = "workflow_completed"
	EventWorkflowAborted     EventType = "workflow_aborted"
)

// CheckpointResponse records the option chosen for a checkpoint.
type CheckpointResponse struct {
	OptionID    string    `json:"optionId" validate:"required"`
	RespondedAt time.Time `json:"respondedAt" validate:"required"`
}

// DecisionOutcome records the branch chosen for a decision.
type DecisionOutcome struct {
	BranchID  string    `json:"branchId" validate:"required"`
	DecidedAt time.Time `json:"decidedAt" validate:"required"`
}

// LoopState tracks a running loop. CurrentIteration is 0-based. Only the
// current item and the item count are kept, so callers resupply the item list
// on every advance.
type LoopState struct {
	ActivityID       string    `json:"activityId" validate:"required"`
	LoopID           string    `json:"loopId" validate:"required"`
	CurrentIteration int       `json:"currentIteration" validate:"min=0,ltfield=TotalItems"`
	TotalItems       int       `json:"totalItems" validate:"min=1"`
	CurrentItem      any       `json:"currentItem,omitempty"`
	StartedAt        time.Time `json:"startedAt" validate:"required"`
}

// HistoryEntry is one event in the append-only run history.
type HistoryEntry struct {
	ID         string    `json:"id,omitempty"`
	Timestamp  time.Time `json:"timestamp" validate:"required"`
	Type       EventType `json:"type" validate:"required"`
	Activity   string    `json:"activity,omitempty"`
	Step       string    `json:"step,omitempty"`
	Index      int       `json:"index,omitempty"`
	Checkpoint string    `json:"checkpoint,omitempty"`
	Option     string    `json:"option,omitempty"`
	Decision   string    `json:"decision,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	Loop       string    `json:"loop,omitempty"`
	Iteration  int       `json:"iteration,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// WorkflowState is the complete progress snapshot carried by the state token.
// Transition functions never modify a WorkflowState; they return a new one.
type WorkflowState struct {
	SessionID       string `json:"sessionId,omitempty"`
	WorkflowID      string `json:"workflowId" validate:"required"`
	WorkflowVersion string `json:"workflowVersion" validate:"required"`
	CurrentActivity string `json:"currentActivity" validate:"required"`
	// CurrentStep is a 1-based index; nil once every step of the current
	// activity (or loop body) is done.
	CurrentStep         *int                          `json:"currentStep,omitempty" validate:"omitempty,min=1"`
	CompletedSteps      map[string][]int              `json:"completedSteps" validate:"dive,keys,required,endkeys,unique,dive,min=1"`
	CheckpointResponses map[string]CheckpointResponse `json:"checkpointResponses" validate:"dive,keys,required,endkeys"`
	DecisionOutcomes    map[string]DecisionOutcome    `json:"decisionOutcomes" validate:"dive,keys,required,endkeys"`
	ActiveLoops         []LoopState                   `json:"activeLoops" validate:"dive"`
	Variables           map[string]any                `json:"variables"`
	History             []HistoryEntry                `json:"history" validate:"dive"`
	Status              Status                        `json:"status" validate:"required,oneof=running paused suspended completed aborted error"`
	StartedAt           time.Time                     `json:"startedAt" validate:"required"`
	UpdatedAt           time.Time                     `json:"updatedAt" validate:"required"`
}

// now is the clock used for timestamps. Times are kept in UTC so that they
// survive a JSON round trip unchanged.
var now = func() time.Time {
	return time.Now().UTC()
}

// NewSessionID returns a new identifier for a workflow run.
func NewSessionID() string {
	id, err := typeid.WithPrefix("sess")
	if err != nil {
		panic(err)
	}
	return id.String()
}

func newEventID() string {
	id, err := typeid.WithPrefix("evt")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// NewState returns a fresh running state positioned at the workflow's initial
// activity.
func NewState(wf *Workflow) *WorkflowState {
	ts := now()
	state := &WorkflowState{
		SessionID:           NewSessionID(),
		WorkflowID:          wf.ID,
		WorkflowVersion:     wf.Version,
		CurrentActivity:     wf.InitialActivity,
		CompletedSteps:      map[string][]int{},
		CheckpointResponses: map[string]CheckpointResponse{},
		DecisionOutcomes:    map[string]DecisionOutcome{},
		ActiveLoops:         []LoopState{},
		Variables:           wf.InitialVariables(),
		History:             []HistoryEntry{},
		Status:              StatusRunning,
		StartedAt:           ts,
		UpdatedAt:           ts,
	}
	if activity, ok := wf.Activity(wf.InitialActivity); ok && len(activity.Steps) > 0 {
		state.CurrentStep = intPtr(1)
	}
	state.record(HistoryEntry{Type: EventWorkflowStarted, Activity: wf.InitialActivity})
	return state
}

// Copy returns a deep copy of the state. Variable values and loop items are
// copied by reference.
func (s *WorkflowState) Copy() *WorkflowState {
	c := *s
	if s.CurrentStep != nil {
		c.CurrentStep = intPtr(*s.CurrentStep)
	}
	c.CompletedSteps = make(map[string][]int, len(s.CompletedSteps))
	for k, v := range s.CompletedSteps {
		c.CompletedSteps[k] = append([]int{}, v...)
	}
	c.CheckpointResponses = make(map[string]CheckpointResponse, len(s.CheckpointResponses))
	for k, v := range s.CheckpointResponses {
		c.CheckpointResponses[k] = v
	}
	c.DecisionOutcomes = make(map[string]DecisionOutcome, len(s.DecisionOutcomes))
	for k, v := range s.DecisionOutcomes {
		c.DecisionOutcomes[k] = v
	}
	c.ActiveLoops = append([]LoopState{}, s.ActiveLoops...)
	c.Variables = copyMap(s.Variables)
	c.History = append([]HistoryEntry{}, s.History...)
	return &c
}

// IsStepCompleted reports whether the step at the 1-based index of the given
// activity has been completed.
func (s *WorkflowState) IsStepCompleted(activityID string, index int) bool {
	for _, done := range s.CompletedSteps[activityID] {
		if done == index {
			return true
		}
	}
	return false
}

// CheckpointResponse returns the recorded response for a checkpoint.
func (s *WorkflowState) CheckpointResponse(activityID, checkpointID string) (CheckpointResponse, bool) {
	resp, ok := s.CheckpointResponses[responseKey(activityID, checkpointID)]
	return resp, ok
}

// DecisionOutcome returns the recorded outcome for a decision.
func (s *WorkflowState) DecisionOutcome(activityID, decisionID string) (DecisionOutcome, bool) {
	outcome, ok := s.DecisionOutcomes[responseKey(activityID, decisionID)]
	return outcome, ok
}

// ActiveLoop returns the first active loop belonging to the given activity.
func (s *WorkflowState) ActiveLoop(activityID string) (*LoopState, bool) {
	for i := range s.ActiveLoops {
		if s.ActiveLoops[i].ActivityID == activityID {
			return &s.ActiveLoops[i], true
		}
	}
	return nil, false
}

// record stamps and appends a history entry. It must only be called on a
// state owned by the caller.
func (s *WorkflowState) record(entry HistoryEntry) {
	ts := now()
	entry.ID = newEventID()
	entry.Timestamp = ts
	s.History = append(s.History, entry)
	s.UpdatedAt = ts
}

func responseKey(activityID, id string) string {
	return fmt.Sprintf("%s-%s", activityID, id)
}

func intPtr(v int) *int {
	return &v
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
