package navigator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecErrorWrapping(t *testing.T) {
	err := newCodecError(ErrInvalidFormat, "token must start with v1.gzB64.", nil)
	require.Equal(t, "INVALID_FORMAT: token must start with v1.gzB64.", err.Error())
	require.Nil(t, err.Unwrap())

	original := errors.New("illegal base64 data at input byte 0")
	wrapped := newCodecError(ErrDecodeFailed, "payload is not valid base64", original)
	require.Equal(t, original, wrapped.Unwrap())
	require.True(t, errors.Is(wrapped, original))

	var codecErr *CodecError
	require.True(t, errors.As(fmt.Errorf("decoding session: %w", wrapped), &codecErr))
	require.Equal(t, ErrDecodeFailed, codecErr.Code)
}

func TestCodecErrorCode(t *testing.T) {
	_, err := DecodeState("nope")
	code, ok := CodecErrorCode(fmt.Errorf("outer: %w", err))
	require.True(t, ok)
	require.Equal(t, ErrInvalidFormat, code)

	_, ok = CodecErrorCode(errors.New("plain"))
	require.False(t, ok)
	_, ok = CodecErrorCode(nil)
	require.False(t, ok)
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{Code: ErrStepNotFound, Message: `step "x" not found in activity "a"`}
	require.Equal(t, `STEP_NOT_FOUND: step "x" not found in activity "a"`, err.Error())

	var target *TransitionError
	require.True(t, errors.As(Result{Error: err}.Err(), &target))
	require.Equal(t, ErrStepNotFound, target.Code)
}

func TestWorkflowNotFound(t *testing.T) {
	_, err := NewMemoryWorkflowRegistry().Get(context.Background(), "ghost")
	require.True(t, IsWorkflowNotFound(err))
	require.Contains(t, err.Error(), `"ghost"`)
	require.False(t, IsWorkflowNotFound(errors.New("other")))
}
