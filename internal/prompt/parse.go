package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"prompt-image-editor/internal/ops"
)

// envelope accepts both reply shapes: a list under "operations" or a single
// tag under "operation".
type envelope struct {
	Operations []json.RawMessage `json:"operations"`
	Operation  *json.RawMessage  `json:"operation"`
}

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}
	return text[start : end+1], nil
}

// ParseOperations extracts the operation list from model output. Unknown
// types are kept; they are rejected when dispatched.
func ParseOperations(text string) ([]ops.Request, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	entries := env.Operations
	if len(entries) == 0 && env.Operation != nil {
		entries = []json.RawMessage{*env.Operation}
	}

	out := make([]ops.Request, 0, len(entries))
	var lastErr error
	for _, raw := range entries {
		req, err := decodeOperation(raw)
		if err != nil {
			lastErr = err
			continue
		}
		req.Type = strings.TrimSpace(req.Type)
		if req.Type == "" || req.Type == "none" {
			continue
		}
		out = append(out, req)
	}
	if len(out) == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: no operations", ErrMalformedResponse)
	}
	return out, nil
}

// decodeOperation reads one entry as either a bare tag or a descriptor.
// Entries with an unreadable intensity or direction are dropped.
func decodeOperation(raw json.RawMessage) (ops.Request, error) {
	var tag string
	if err := json.Unmarshal(raw, &tag); err == nil {
		return ops.Request{Type: tag}, nil
	}
	var req ops.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return ops.Request{}, fmt.Errorf("%w: operation: %v", ErrMalformedResponse, err)
	}
	return req, nil
}
