package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidEvidence marks an issue value whose shape is neither a flag nor a
// list of strings and link/error pairs.
var ErrInvalidEvidence = errors.New("invalid evidence shape")

// Issue keys reported per page by the crawler.
const (
	IssueTitle          = "title"
	IssueDescription    = "description"
	IssueImageSeo       = "imageSeo"
	IssueInlineCode     = "inlineCode"
	IssueH1Missing      = "h1Missing"
	IssueBrokenLinks    = "brokenLinks"
	IssueCanonicalURL   = "canonicalUrl"
	IssueStructuredData = "structuredData"
	IssueCharset        = "charset"
	IssueDoctype        = "doctype"
	IssueNoindex        = "noindex"
	IssueFlashContent   = "flashContent"
	IssueFramesetUsed   = "framesetUsed"
)

// PageIssueReport lists the issues found on one crawled URL. URLs are unique
// within an audit run.
type PageIssueReport struct {
	URL    string                `json:"url"`
	Issues map[string]IssueValue `json:"issues"`
}

// Evidence is a location substantiating a failed check: either a bare string
// or a link paired with the error it produced.
type Evidence struct {
	text       string
	link       string
	err        string
	structured bool
}

// Location builds bare-string evidence.
func Location(s string) Evidence { return Evidence{text: s} }

// LinkError builds structured link/error evidence.
func LinkError(link, errText string) Evidence {
	return Evidence{link: link, err: errText, structured: true}
}

// String renders the evidence for display: "<link> (<error>)" for structured
// evidence, the text verbatim otherwise.
func (e Evidence) String() string {
	if e.structured {
		return fmt.Sprintf("%s (%s)", e.link, e.err)
	}
	return e.text
}

func (e Evidence) MarshalJSON() ([]byte, error) {
	if e.structured {
		return json.Marshal(struct {
			Link  string `json:"link"`
			Error string `json:"error"`
		}{e.link, e.err})
	}
	return json.Marshal(e.text)
}

// IssueValue is one entry of a page's issue map: a presence flag or a list of
// evidence. A value of any other shape still decodes, but carries an error
// that surfaces when the value is read.
type IssueValue struct {
	flag     bool
	evidence []Evidence
	list     bool
	invalid  error
}

// Flag builds a presence-only issue value.
func Flag(present bool) IssueValue { return IssueValue{flag: present} }

// EvidenceList builds a list-valued issue.
func EvidenceList(items ...Evidence) IssueValue {
	return IssueValue{evidence: items, list: true}
}

// IsList reports whether the value is an evidence list.
func (v IssueValue) IsList() bool { return v.list }

// Flagged reports whether the value is the boolean true.
func (v IssueValue) Flagged() bool { return !v.list && v.flag }

// Evidence returns the list elements; nil for flags.
func (v IssueValue) Evidence() []Evidence { return v.evidence }

// Err returns the shape error recorded at decode time, if any.
func (v IssueValue) Err() error { return v.invalid }

func (v IssueValue) MarshalJSON() ([]byte, error) {
	if v.list {
		if v.evidence == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.evidence)
	}
	return json.Marshal(v.flag)
}

func (v *IssueValue) UnmarshalJSON(data []byte) error {
	*v = IssueValue{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case 't', 'f':
		return json.Unmarshal(trimmed, &v.flag)
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return err
		}
		v.list = true
		for i, raw := range elems {
			ev, err := decodeEvidence(raw)
			if err != nil {
				v.evidence = nil
				v.invalid = fmt.Errorf("element %d: %w", i, err)
				return nil
			}
			v.evidence = append(v.evidence, ev)
		}
		return nil
	default:
		v.invalid = fmt.Errorf("%w: expected bool or list, got %s", ErrInvalidEvidence, shapeOf(trimmed))
		return nil
	}
}

func decodeEvidence(raw json.RawMessage) (Evidence, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Evidence{}, err
		}
		return Location(s), nil
	}
	if len(raw) > 0 && raw[0] == '{' {
		var pair struct {
			Link  *string `json:"link"`
			Error *string `json:"error"`
		}
		if err := json.Unmarshal(raw, &pair); err == nil && pair.Link != nil && pair.Error != nil {
			return LinkError(*pair.Link, *pair.Error), nil
		}
	}
	return Evidence{}, fmt.Errorf("%w: %s", ErrInvalidEvidence, shapeOf(raw))
}

func shapeOf(raw []byte) string {
	if len(raw) == 0 {
		return "empty"
	}
	switch raw[0] {
	case '{':
		return "object"
	case '[':
		return "list"
	case '"':
		return "string"
	case 'n':
		return "null"
	case 't', 'f':
		return "bool"
	default:
		return "number"
	}
}
