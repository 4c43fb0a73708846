package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DesignCriterion is one graded design attribute.
type DesignCriterion struct {
	Attribute string   `json:"attribute"`
	Grade     RawValue `json:"grade"`
	Comment   string   `json:"comment"`
}

// DesignGradeReport is a design grader's verdict: per-criterion grades and a
// final grade, both on a 0-100 scale.
type DesignGradeReport struct {
	Criteria   []DesignCriterion `json:"criteria"`
	FinalGrade RawValue          `json:"finalGrade"`
}

// UnmarshalJSON accepts the grader wire format in either spelling
// (finalGrade/final_grade, comment/output). Grader responses wrapped as
// {"name": ..., "message": <report or JSON-encoded report>} are unwrapped.
func (r *DesignGradeReport) UnmarshalJSON(data []byte) error {
	var wire struct {
		Criteria []struct {
			Attribute string   `json:"attribute"`
			Grade     RawValue `json:"grade"`
			Comment   *string  `json:"comment"`
			Output    *string  `json:"output"`
		} `json:"criteria"`
		FinalGrade    RawValue        `json:"finalGrade"`
		FinalGradeAlt RawValue        `json:"final_grade"`
		Message       json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("decoding design report: %w", err)
	}

	if msg := bytes.TrimSpace(wire.Message); len(msg) > 0 && wire.Criteria == nil {
		if msg[0] == '"' {
			var inner string
			if err := json.Unmarshal(msg, &inner); err != nil {
				return fmt.Errorf("decoding design report message: %w", err)
			}
			msg = []byte(inner)
		}
		return r.UnmarshalJSON(msg)
	}

	*r = DesignGradeReport{FinalGrade: wire.FinalGrade}
	if r.FinalGrade.IsEmpty() {
		r.FinalGrade = wire.FinalGradeAlt
	}
	for _, c := range wire.Criteria {
		dc := DesignCriterion{Attribute: c.Attribute, Grade: c.Grade}
		switch {
		case c.Comment != nil:
			dc.Comment = *c.Comment
		case c.Output != nil:
			dc.Comment = *c.Output
		}
		r.Criteria = append(r.Criteria, dc)
	}
	return nil
}
