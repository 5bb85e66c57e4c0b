package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON value in completion")

// Decode interprets completion text as T. It extracts the JSON value, tries it
// verbatim, then once more after RepairJSON. Empty text yields ErrEmptyCompletion;
// anything still undecodable yields a *MalformedError.
func Decode[T any](content string) (T, error) {
	var out T
	if strings.TrimSpace(content) == "" {
		return out, ErrEmptyCompletion
	}

	candidate := ExtractJSON(content)
	if candidate == "" {
		return out, &MalformedError{Content: content, Err: errNoJSON}
	}

	err := json.Unmarshal([]byte(candidate), &out)
	if err == nil {
		return out, nil
	}

	repaired := cleanJSON(RepairJSON(candidate))
	if repaired == candidate {
		return out, &MalformedError{Content: content, Err: err}
	}

	out = *new(T)
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return out, &MalformedError{Content: content, Err: err}
	}
	return out, nil
}
