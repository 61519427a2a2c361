package generator

import (
	"context"
	"encoding/json"
	"fmt"
)

// TextGenerator turns a prompt into generated text. Implementations call an
// external service; every call is expected to honor ctx deadlines.
type TextGenerator interface {
	// GenerateText returns the raw model output for the prompt. When
	// structured is true the caller expects the output to parse as the
	// problem-set JSON schema (see ParseProblemPayload).
	GenerateText(ctx context.Context, prompt, model, systemInstruction string, maxOutputTokens int, structured bool) (string, error)
}

// GenerationError indicates the remote generation call failed: transport
// error, timeout or a non-success response.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// MalformedResponseError indicates the call succeeded at the transport level
// but the returned content did not match the expected structured schema.
type MalformedResponseError struct {
	Message string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed generator response: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("malformed generator response: %s", e.Message)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// GeneratedProblem is one problem/solution pair produced by a structured
// generation call. Text uses the {name} placeholder.
type GeneratedProblem struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}

type problemPayload struct {
	Problems []GeneratedProblem `json:"problems"`
}

// ParseProblemPayload parses the structured problem-set schema
// {"problems": [{"problem": "...", "solution": "..."}, ...]}.
// Any deviation from the schema is a MalformedResponseError.
func ParseProblemPayload(raw string) ([]GeneratedProblem, error) {
	var payload problemPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &MalformedResponseError{Message: "response is not valid JSON", Err: err}
	}
	if payload.Problems == nil {
		return nil, &MalformedResponseError{Message: `response is missing the "problems" list`}
	}
	for i, p := range payload.Problems {
		if p.Problem == "" || p.Solution == "" {
			return nil, &MalformedResponseError{Message: fmt.Sprintf("problem %d is missing text or solution", i+1)}
		}
	}
	return payload.Problems, nil
}
