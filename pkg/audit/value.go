package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawValue is a measurement as reported upstream: free-form text such as
// "1.2 s" or "350 ms", or a bare number. JSON numbers keep their literal text.
type RawValue string

func (v *RawValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*v = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = RawValue(s)
	case trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return err
		}
		*v = RawValue(n.String())
	default:
		return fmt.Errorf("raw value must be a string or number, got %s", shapeOf(trimmed))
	}
	return nil
}

// IsEmpty reports whether no value was reported.
func (v RawValue) IsEmpty() bool { return len(bytes.TrimSpace([]byte(v))) == 0 }
