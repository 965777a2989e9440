package navigator

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

// tokenFor builds a token around an arbitrary JSON payload.
func tokenFor(t *testing.T, payload []byte) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return "v1.gzB64." + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func requireCodecError(t *testing.T, err error, code ErrorCode) *CodecError {
	t.Helper()
	require.Error(t, err)
	var codecErr *CodecError
	require.True(t, errors.As(err, &codecErr), "expected a CodecError, got %T", err)
	require.Equal(t, code, codecErr.Code)
	return codecErr
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fixedClock(t)
	wf := reviewWorkflow()

	state := NewState(wf)
	state = mustSucceed(t, RespondToCheckpoint(wf, state, "gate", "yes"))
	state = mustSucceed(t, CompleteStep(wf, state, "work"))
	state = mustSucceed(t, RecordDecision(wf, state, "outcome", "accept"))
	state = mustSucceed(t, AdvanceLoop(wf, state, "files", []any{"main.go", "util.go"}))
	state = mustSucceed(t, SetVariable(state, "notes", "looks good"))

	token, err := EncodeState(state)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, "v1.gzB64."))

	decoded, err := DecodeState(token)
	require.NoError(t, err)
	require.Equal(t, state, decoded)

	again, err := EncodeState(decoded)
	require.NoError(t, err)
	require.Equal(t, token, again)
}

func TestEncodeIsDeterministic(t *testing.T) {
	fixedClock(t)
	state := NewState(taskWorkflow())

	first, err := EncodeState(state)
	require.NoError(t, err)
	second, err := EncodeState(state.Copy())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDecodeStateErrors(t *testing.T) {
	fixedClock(t)

	t.Run("wrong prefix", func(t *testing.T) {
		_, err := DecodeState("not-a-token")
		requireCodecError(t, err, ErrInvalidFormat)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := DecodeState("v2.gzB64.AAAA")
		requireCodecError(t, err, ErrInvalidFormat)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := DecodeState("v1.gzB64.")
		requireCodecError(t, err, ErrInvalidFormat)
	})

	t.Run("bad base64", func(t *testing.T) {
		_, err := DecodeState("v1.gzB64.!!!not-base64!!!")
		codecErr := requireCodecError(t, err, ErrDecodeFailed)
		require.Error(t, codecErr.Unwrap())
	})

	t.Run("not gzip", func(t *testing.T) {
		token := "v1.gzB64." + base64.StdEncoding.EncodeToString([]byte("plain text"))
		_, err := DecodeState(token)
		requireCodecError(t, err, ErrDecompressFailed)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeState(tokenFor(t, []byte("{not json")))
		requireCodecError(t, err, ErrDecodeFailed)
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := DecodeState(tokenFor(t, []byte(`{"workflowId":"simple"}`)))
		codecErr := requireCodecError(t, err, ErrValidationFailed)
		require.NotEmpty(t, codecErr.Details)
		joined := strings.Join(codecErr.Details, "\n")
		require.Contains(t, joined, "currentActivity: is required")
		require.Contains(t, joined, "status: is required")
	})

	t.Run("loop iteration out of range", func(t *testing.T) {
		state := mustSucceed(t, AdvanceLoop(taskWorkflow(), NewState(taskWorkflow()), "loop", []any{"a"}))
		state.ActiveLoops[0].CurrentIteration = 1
		raw, err := json.Marshal(state)
		require.NoError(t, err)

		_, err = DecodeState(tokenFor(t, raw))
		codecErr := requireCodecError(t, err, ErrValidationFailed)
		require.Contains(t, strings.Join(codecErr.Details, "\n"), "activeLoops[0].currentIteration")
	})

	t.Run("duplicate completed index", func(t *testing.T) {
		state := NewState(taskWorkflow())
		state.CompletedSteps["task"] = []int{1, 1}
		raw, err := json.Marshal(state)
		require.NoError(t, err)

		_, err = DecodeState(tokenFor(t, raw))
		codecErr := requireCodecError(t, err, ErrValidationFailed)
		require.Contains(t, strings.Join(codecErr.Details, "\n"), "must not contain duplicates")
	})

	t.Run("unknown status", func(t *testing.T) {
		state := NewState(taskWorkflow())
		state.Status = "sleeping"
		raw, err := json.Marshal(state)
		require.NoError(t, err)

		_, err = DecodeState(tokenFor(t, raw))
		requireCodecError(t, err, ErrValidationFailed)
	})
}

func TestDecodeNormalizesCollections(t *testing.T) {
	payload := `{
		"workflowId": "simple",
		"workflowVersion": "1.0.0",
		"currentActivity": "task",
		"currentStep": 1,
		"status": "running",
		"startedAt": "2025-07-21T12:00:00Z",
		"updatedAt": "2025-07-21T12:00:00Z"
	}`
	state, err := DecodeState(tokenFor(t, []byte(payload)))
	require.NoError(t, err)
	require.NotNil(t, state.CompletedSteps)
	require.NotNil(t, state.CheckpointResponses)
	require.NotNil(t, state.DecisionOutcomes)
	require.NotNil(t, state.ActiveLoops)
	require.NotNil(t, state.Variables)
	require.NotNil(t, state.History)

	// A minimal state from another producer is usable straight away.
	result := CompleteStep(taskWorkflow(), state, "step-1")
	require.True(t, result.Success)
}

func TestIsValidTokenFormat(t *testing.T) {
	token, err := EncodeState(NewState(taskWorkflow()))
	require.NoError(t, err)

	require.True(t, IsValidTokenFormat(token))
	require.True(t, IsValidTokenFormat("v1.gzB64.AAAA"), "format check does not decompress")
	require.False(t, IsValidTokenFormat(""))
	require.False(t, IsValidTokenFormat("v1.gzB64."))
	require.False(t, IsValidTokenFormat("v1.gzB64.***"))
	require.False(t, IsValidTokenFormat("v2.gzB64.AAAA"))
}

func TestGetTokenVersion(t *testing.T) {
	version, ok := GetTokenVersion("v1.gzB64.AAAA")
	require.True(t, ok)
	require.Equal(t, "v1", version)

	version, ok = GetTokenVersion("v12.other.payload")
	require.True(t, ok)
	require.Equal(t, "v12", version)

	_, ok = GetTokenVersion("garbage")
	require.False(t, ok)
	_, ok = GetTokenVersion("vx.gzB64.AAAA")
	require.False(t, ok)
}

func TestCompressionRatio(t *testing.T) {
	wf := taskWorkflow()
	state := NewState(wf)
	for i := 0; i < 20; i++ {
		state = mustSucceed(t, SetVariable(state, "counter", i))
	}
	ratio, err := CompressionRatio(state)
	require.NoError(t, err)
	require.Greater(t, ratio, 0.0)
	require.Less(t, ratio, 1.0)
}

func TestDecodeRejectsOversizedPayload(t *testing.T) {
	huge := bytes.Repeat([]byte(" "), maxStatePayload+1)
	_, err := DecodeState(tokenFor(t, huge))
	requireCodecError(t, err, ErrDecompressFailed)
}
