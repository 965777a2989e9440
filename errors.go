package navigator

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed transition or token decode.
type ErrorCode string

// Transition error codes. These describe expected, recoverable conditions and
// are returned inside a Result rather than as Go errors.
const (
	ErrActivityNotFound           ErrorCode = "ACTIVITY_NOT_FOUND"
	ErrCheckpointBlocking         ErrorCode = "CHECKPOINT_BLOCKING"
	ErrStepNotFound               ErrorCode = "STEP_NOT_FOUND"
	ErrStepAlreadyComplete        ErrorCode = "STEP_ALREADY_COMPLETE"
	ErrCheckpointNotFound         ErrorCode = "CHECKPOINT_NOT_FOUND"
	ErrOptionNotFound             ErrorCode = "OPTION_NOT_FOUND"
	ErrCheckpointAlreadyResponded ErrorCode = "CHECKPOINT_ALREADY_RESPONDED"
	ErrDecisionNotFound           ErrorCode = "DECISION_NOT_FOUND"
	ErrBranchNotFound             ErrorCode = "BRANCH_NOT_FOUND"
	ErrTargetActivityNotFound     ErrorCode = "TARGET_ACTIVITY_NOT_FOUND"
	ErrInvalidTransition          ErrorCode = "INVALID_TRANSITION"
	ErrActivityNotComplete        ErrorCode = "ACTIVITY_NOT_COMPLETE"
	ErrLoopItemsRequired          ErrorCode = "LOOP_ITEMS_REQUIRED"
	ErrNoDefaultTransition        ErrorCode = "NO_DEFAULT_TRANSITION"
	ErrWorkflowEnded              ErrorCode = "WORKFLOW_ENDED"
)

// Token codec error codes.
const (
	ErrInvalidFormat    ErrorCode = "INVALID_FORMAT"
	ErrDecodeFailed     ErrorCode = "DECODE_FAILED"
	ErrDecompressFailed ErrorCode = "DECOMPRESS_FAILED"
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// ErrWorkflowNotFound is returned by registries for unknown workflow ids.
var ErrWorkflowNotFound = errors.New("workflow not found")

// TransitionError describes why a transition was refused.
type TransitionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodecError is returned when a state token cannot be decoded. Details holds
// the individual schema problems for VALIDATION_FAILED.
type CodecError struct {
	Code    ErrorCode `json:"code"`
	Cause   string    `json:"cause"`
	Details []string  `json:"details,omitempty"`
	Wrapped error     `json:"-"` // Original error being wrapped
}

// Error implements the error interface
func (e *CodecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Cause)
}

// Unwrap implements the error unwrapping interface for Go's errors.Is and errors.As
func (e *CodecError) Unwrap() error {
	return e.Wrapped
}

func newCodecError(code ErrorCode, cause string, wrapped error) *CodecError {
	return &CodecError{Code: code, Cause: cause, Wrapped: wrapped}
}

// CodecErrorCode returns the code of a CodecError anywhere in err's chain.
func CodecErrorCode(err error) (ErrorCode, bool) {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Code, true
	}
	return "", false
}
