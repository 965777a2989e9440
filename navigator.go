package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultMetaWorkflowID is the reserved id of the bootstrap workflow.
const DefaultMetaWorkflowID = "meta"

// Options configures a Navigator.
type Options struct {
	Registry    WorkflowRegistry
	Logger      *slog.Logger
	AuditLogger AuditLogger
	// MetaWorkflowID names the reserved bootstrap workflow, which is hidden
	// from ListWorkflows. Defaults to DefaultMetaWorkflowID.
	MetaWorkflowID string
}

// Navigator is the orchestration layer around the navigation functions. Each
// call decodes a token, loads the matching workflow, applies exactly one
// operation and returns a Response carrying the new token. It keeps no
// session state and is safe for concurrent use.
type Navigator struct {
	registry       WorkflowRegistry
	logger         *slog.Logger
	auditLogger    AuditLogger
	metaWorkflowID string
}

// NewNavigator returns a Navigator configured with the given options.
func NewNavigator(opts Options) (*Navigator, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("workflow registry is required")
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.AuditLogger == nil {
		opts.AuditLogger = NewNullAuditLogger()
	}
	if opts.MetaWorkflowID == "" {
		opts.MetaWorkflowID = DefaultMetaWorkflowID
	}
	return &Navigator{
		registry:       opts.Registry,
		logger:         opts.Logger,
		auditLogger:    opts.AuditLogger,
		metaWorkflowID: opts.MetaWorkflowID,
	}, nil
}

// Response is the envelope returned for every navigator call.
type Response struct {
	Success          bool             `json:"success"`
	Position         Position         `json:"position"`
	Message          string           `json:"message"`
	AvailableActions AvailableActions `json:"availableActions"`
	Checkpoint       *Checkpoint      `json:"checkpoint,omitempty"`
	// Effect is the declared effect of the option just chosen at a
	// checkpoint. It has not been applied; applying it is up to the caller.
	Effect   *OptionEffect    `json:"effect,omitempty"`
	Complete bool             `json:"complete"`
	Status   Status           `json:"status"`
	State    string           `json:"state"`
	Error    *TransitionError `json:"error,omitempty"`
}

// ListWorkflows returns the registered workflows, excluding the meta
// workflow.
func (n *Navigator) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	all, err := n.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	workflows := make([]*Workflow, 0, len(all))
	for _, wf := range all {
		if wf.ID != n.metaWorkflowID {
			workflows = append(workflows, wf)
		}
	}
	return workflows, nil
}

// Start begins a new run of the given workflow.
func (n *Navigator) Start(ctx context.Context, workflowID string) (*Response, error) {
	started := time.Now()
	wf, err := n.registry.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	state := NewState(wf)
	n.loggerFor(ctx).Info("workflow started",
		"workflow_id", wf.ID,
		"workflow_version", wf.Version,
		"session_id", state.SessionID)
	resp, err := n.respond(wf, succeed(state), nil)
	if err != nil {
		return nil, err
	}
	n.audit(ctx, "start", state, nil, resp, started)
	return resp, nil
}

// Status describes the run without changing it.
func (n *Navigator) Status(ctx context.Context, token string) (*Response, error) {
	return n.apply(ctx, "status", token, nil, func(wf *Workflow, state *WorkflowState) Result {
		return succeed(state)
	})
}

// CompleteStep completes a step of the current activity.
func (n *Navigator) CompleteStep(ctx context.Context, token, stepID string) (*Response, error) {
	params := map[string]any{"step": stepID}
	return n.apply(ctx, "complete_step", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return CompleteStep(wf, state, stepID)
	})
}

// RespondToCheckpoint records a checkpoint choice. The chosen option's effect
// is returned in the response but not applied.
func (n *Navigator) RespondToCheckpoint(ctx context.Context, token, checkpointID, optionID string) (*Response, error) {
	params := map[string]any{"checkpoint": checkpointID, "option": optionID}
	var effect *OptionEffect
	resp, err := n.apply(ctx, "respond_to_checkpoint", token, params, func(wf *Workflow, state *WorkflowState) Result {
		result := RespondToCheckpoint(wf, state, checkpointID, optionID)
		if result.Success {
			effect = optionEffect(wf, state.CurrentActivity, checkpointID, optionID)
		}
		return result
	})
	if resp != nil {
		resp.Effect = effect
	}
	return resp, err
}

// RecordDecision records the branch taken at a decision.
func (n *Navigator) RecordDecision(ctx context.Context, token, decisionID, branchID string) (*Response, error) {
	params := map[string]any{"decision": decisionID, "branch": branchID}
	return n.apply(ctx, "record_decision", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return RecordDecision(wf, state, decisionID, branchID)
	})
}

// Transition moves to the given activity.
func (n *Navigator) Transition(ctx context.Context, token, targetID string) (*Response, error) {
	params := map[string]any{"target": targetID}
	return n.apply(ctx, "transition", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return TransitionToActivity(wf, state, targetID)
	})
}

// Next follows the current activity's default transition.
func (n *Navigator) Next(ctx context.Context, token string) (*Response, error) {
	return n.apply(ctx, "next", token, nil, func(wf *Workflow, state *WorkflowState) Result {
		return TryDefaultTransition(wf, state)
	})
}

// AdvanceLoop starts or advances a loop in the current activity.
func (n *Navigator) AdvanceLoop(ctx context.Context, token, loopID string, items []any) (*Response, error) {
	params := map[string]any{"loop": loopID, "items": len(items)}
	return n.apply(ctx, "advance_loop", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return AdvanceLoop(wf, state, loopID, items)
	})
}

// SetVariable stores a value in the run's variable bag.
func (n *Navigator) SetVariable(ctx context.Context, token, name string, value any) (*Response, error) {
	params := map[string]any{"variable": name}
	return n.apply(ctx, "set_variable", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return SetVariable(state, name, value)
	})
}

// Finish marks the run completed once the current activity is complete.
func (n *Navigator) Finish(ctx context.Context, token string) (*Response, error) {
	return n.apply(ctx, "finish", token, nil, func(wf *Workflow, state *WorkflowState) Result {
		return CompleteWorkflow(wf, state)
	})
}

// Abort ends the run without completing it.
func (n *Navigator) Abort(ctx context.Context, token, reason string) (*Response, error) {
	params := map[string]any{"reason": reason}
	return n.apply(ctx, "abort", token, params, func(wf *Workflow, state *WorkflowState) Result {
		return AbortWorkflow(state, reason)
	})
}

// History returns the audit entries recorded for the token's session.
func (n *Navigator) History(ctx context.Context, token string) ([]*AuditEntry, error) {
	state, err := DecodeState(token)
	if err != nil {
		return nil, err
	}
	return n.auditLogger.GetHistory(ctx, state.SessionID)
}

func (n *Navigator) apply(
	ctx context.Context,
	operation string,
	token string,
	params map[string]any,
	fn func(wf *Workflow, state *WorkflowState) Result,
) (*Response, error) {
	started := time.Now()
	baseLogger := n.loggerFor(ctx)
	state, err := DecodeState(token)
	if err != nil {
		baseLogger.Warn("rejected state token", "operation", operation, "error", err)
		return nil, err
	}
	wf, err := n.registry.Get(ctx, state.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf.Version != state.WorkflowVersion {
		baseLogger.Warn("workflow version differs from state",
			"workflow_id", wf.ID,
			"workflow_version", wf.Version,
			"state_version", state.WorkflowVersion)
	}

	result := fn(wf, state)
	logger := baseLogger.With("operation", operation, "session_id", state.SessionID, "workflow_id", wf.ID)
	if result.Success {
		logger.Debug("operation succeeded", "activity", result.State.CurrentActivity)
	} else {
		logger.Info("operation refused", "code", result.Error.Code, "reason", result.Error.Message)
	}

	// A refused operation hands back the caller's token untouched.
	var unchanged *string
	if !result.Success {
		unchanged = &token
	}
	resp, err := n.respond(wf, result, unchanged)
	if err != nil {
		return nil, err
	}
	n.audit(ctx, operation, result.State, params, resp, started)
	return resp, nil
}

func (n *Navigator) respond(wf *Workflow, result Result, token *string) (*Response, error) {
	state := result.State
	resp := &Response{
		Success:          result.Success,
		Position:         ComputePosition(wf, state),
		Message:          SituationMessage(wf, state),
		AvailableActions: ComputeAvailableActions(wf, state),
		Checkpoint:       ActiveCheckpoint(wf, state),
		Complete:         IsActivityComplete(wf, state),
		Status:           state.Status,
		Error:            result.Error,
	}
	if token != nil {
		resp.State = *token
		return resp, nil
	}
	encoded, err := EncodeState(state)
	if err != nil {
		return nil, err
	}
	resp.State = encoded
	return resp, nil
}

func (n *Navigator) audit(ctx context.Context, operation string, state *WorkflowState, params map[string]any, resp *Response, started time.Time) {
	entry := &AuditEntry{
		ID:         newEventID(),
		SessionID:  state.SessionID,
		WorkflowID: state.WorkflowID,
		Operation:  operation,
		Activity:   state.CurrentActivity,
		Parameters: params,
		Success:    resp.Success,
		Timestamp:  started.UTC(),
		Duration:   time.Since(started),
	}
	if resp.Error != nil {
		entry.ErrorCode = resp.Error.Code
	}
	if err := n.auditLogger.LogEntry(ctx, entry); err != nil {
		n.loggerFor(ctx).Warn("failed to write audit entry", "operation", operation, "error", err)
	}
}

func (n *Navigator) loggerFor(ctx context.Context) *slog.Logger {
	if logger, ok := GetLoggerFromContext(ctx); ok {
		return logger
	}
	return n.logger
}

func optionEffect(wf *Workflow, activityID, checkpointID, optionID string) *OptionEffect {
	activity, ok := wf.Activity(activityID)
	if !ok {
		return nil
	}
	cp, ok := activity.Checkpoint(checkpointID)
	if !ok {
		return nil
	}
	opt, ok := cp.Option(optionID)
	if !ok {
		return nil
	}
	return opt.Effect
}

// IsWorkflowNotFound reports whether err was caused by an unknown workflow id.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}
