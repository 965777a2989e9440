package navigator

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Token layout: "{version}.{encoding}.{payload}".
const (
	TokenVersion  = "v1"
	TokenEncoding = "gzB64"
	tokenPrefix   = TokenVersion + "." + TokenEncoding + "."

	// maxStatePayload bounds the decompressed size of a token payload.
	maxStatePayload = 4 << 20
)

var tokenVersionPattern = regexp.MustCompile(`^(v\d+)\.`)

// EncodeState serializes a state into an opaque token of the form
// v1.gzB64.<base64(gzip(json))>. The output is deterministic for a given
// state: JSON object keys are sorted and the gzip header carries no name or
// modification time.
func EncodeState(state *WorkflowState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state: %w", err)
	}
	compressed, err := compress(raw)
	if err != nil {
		return "", err
	}
	return tokenPrefix + base64.StdEncoding.EncodeToString(compressed), nil
}

// DecodeState parses a token produced by EncodeState. Any failure is returned
// as a *CodecError. The decoded state is validated against the full state
// schema before it is returned.
func DecodeState(token string) (*WorkflowState, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return nil, newCodecError(ErrInvalidFormat, "token must start with "+tokenPrefix, nil)
	}
	payload := token[len(tokenPrefix):]
	if payload == "" {
		return nil, newCodecError(ErrInvalidFormat, "token payload is empty", nil)
	}
	compressed, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newCodecError(ErrDecodeFailed, "payload is not valid base64", err)
	}
	raw, err := decompress(compressed)
	if err != nil {
		return nil, newCodecError(ErrDecompressFailed, err.Error(), err)
	}
	var state WorkflowState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, newCodecError(ErrDecodeFailed, "payload is not a valid state document", err)
	}
	if err := validate.Struct(&state); err != nil {
		codecErr := newCodecError(ErrValidationFailed, "state failed schema validation", err)
		var schemaErr *SchemaError
		if errors.As(newSchemaError(err), &schemaErr) {
			codecErr.Details = schemaErr.Problems
			codecErr.Cause = schemaErr.Error()
		}
		return nil, codecErr
	}
	normalize(&state)
	return &state, nil
}

// IsValidTokenFormat is a cheap check of the prefix and base64 payload. It
// does not decompress or validate the state.
func IsValidTokenFormat(token string) bool {
	if !strings.HasPrefix(token, tokenPrefix) {
		return false
	}
	payload := token[len(tokenPrefix):]
	if payload == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

// GetTokenVersion returns the version tag of a token without decoding it.
func GetTokenVersion(token string) (string, bool) {
	m := tokenVersionPattern.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CompressionRatio returns compressed size divided by raw JSON size.
func CompressionRatio(state *WorkflowState) (float64, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal state: %w", err)
	}
	compressed, err := compress(raw)
	if err != nil {
		return 0, err
	}
	return float64(len(compressed)) / float64(len(raw)), nil
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("failed to compress state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress state: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("payload is not gzip data: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxStatePayload+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	if len(raw) > maxStatePayload {
		return nil, fmt.Errorf("decompressed payload exceeds %d bytes", maxStatePayload)
	}
	return raw, nil
}

// normalize replaces absent collections with empty ones so decoded states can
// be handed straight to the transition functions.
func normalize(state *WorkflowState) {
	if state.CompletedSteps == nil {
		state.CompletedSteps = map[string][]int{}
	}
	if state.CheckpointResponses == nil {
		state.CheckpointResponses = map[string]CheckpointResponse{}
	}
	if state.DecisionOutcomes == nil {
		state.DecisionOutcomes = map[string]DecisionOutcome{}
	}
	if state.ActiveLoops == nil {
		state.ActiveLoops = []LoopState{}
	}
	if state.Variables == nil {
		state.Variables = map[string]any{}
	}
	if state.History == nil {
		state.History = []HistoryEntry{}
	}
}
