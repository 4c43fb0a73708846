package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is a sub-result produced by an upstream analyzer. It is either a
// value (Ok), an upstream error marker (Err), or missing entirely. Err and
// missing both mean "not evaluable".
//
// On the wire an Err is the object {"error": "..."}; anything else that is
// not null decodes as the value.
type Result[T any] struct {
	value  *T
	reason string
	failed bool
}

// Ok wraps a present value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: &v}
}

// Err builds an upstream error marker with the given reason.
func Err[T any](reason string) Result[T] {
	return Result[T]{reason: reason, failed: true}
}

// Get returns the value and whether it is present.
func (r Result[T]) Get() (T, bool) {
	if r.value == nil {
		var zero T
		return zero, false
	}
	return *r.value, true
}

// IsErr reports whether the producer returned an error marker.
func (r Result[T]) IsErr() bool { return r.failed }

// IsMissing reports whether the sub-result is absent (neither value nor error).
func (r Result[T]) IsMissing() bool { return r.value == nil && !r.failed }

// Reason returns the error marker's reason, or "" for Ok and missing results.
func (r Result[T]) Reason() string { return r.reason }

func (r Result[T]) MarshalJSON() ([]byte, error) {
	switch {
	case r.failed:
		return json.Marshal(errorMarker{Error: r.reason})
	case r.value != nil:
		return json.Marshal(r.value)
	default:
		return []byte("null"), nil
	}
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	*r = Result[T]{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return err
		}
		if raw, ok := fields["error"]; ok {
			var reason string
			if err := json.Unmarshal(raw, &reason); err != nil {
				reason = string(raw)
			}
			r.reason = reason
			r.failed = true
			return nil
		}
	}

	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	r.value = &v
	return nil
}

type errorMarker struct {
	Error string `json:"error"`
}
