package audit

import (
	"encoding/json"
	"fmt"
)

// PayloadKind names one upstream payload of an audit run.
type PayloadKind string

const (
	PayloadSEO         PayloadKind = "seo"
	PayloadPerformance PayloadKind = "performance"
	PayloadSecurity    PayloadKind = "security"
	PayloadPages       PayloadKind = "pages"
	PayloadDesignCode  PayloadKind = "design_code"
	PayloadDesignImage PayloadKind = "design_image"
)

// PayloadKinds lists every payload kind in canonical order.
func PayloadKinds() []PayloadKind {
	return []PayloadKind{
		PayloadSEO, PayloadPerformance, PayloadSecurity,
		PayloadPages, PayloadDesignCode, PayloadDesignImage,
	}
}

// ParsePayloadKind validates a payload kind name.
func ParsePayloadKind(s string) (PayloadKind, error) {
	for _, k := range PayloadKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown payload kind %q", s)
}

// FileName is the file a payload is stored under in a run directory.
func (k PayloadKind) FileName() string { return string(k) + ".json" }

// Run is the set of payloads collected for one audit run so far. Every
// payload is optional; the run fills in as upstream analyzers finish.
type Run struct {
	SiteURL     string             `json:"siteUrl,omitempty"`
	SEO         *SeoBundle         `json:"seo,omitempty"`
	Performance *PerformanceBundle `json:"performance,omitempty"`
	Security    *SecurityBundle    `json:"security,omitempty"`
	Pages       []PageIssueReport  `json:"pageReport,omitempty"`
	DesignCode  *DesignGradeReport `json:"designCode,omitempty"`
	DesignImage *DesignGradeReport `json:"designImage,omitempty"`
}

// Apply decodes a payload of the given kind and stores it on the run.
// The run is left unchanged when decoding fails.
func (r *Run) Apply(kind PayloadKind, data []byte) error {
	switch kind {
	case PayloadSEO:
		var b SeoBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decoding %s payload: %w", kind, err)
		}
		r.SEO = &b
	case PayloadPerformance:
		var b PerformanceBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decoding %s payload: %w", kind, err)
		}
		r.Performance = &b
	case PayloadSecurity:
		var b SecurityBundle
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("decoding %s payload: %w", kind, err)
		}
		r.Security = &b
	case PayloadPages:
		var pages []PageIssueReport
		if err := json.Unmarshal(data, &pages); err != nil {
			return fmt.Errorf("decoding %s payload: %w", kind, err)
		}
		r.Pages = pages
	case PayloadDesignCode, PayloadDesignImage:
		var d DesignGradeReport
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("decoding %s payload: %w", kind, err)
		}
		if kind == PayloadDesignCode {
			r.DesignCode = &d
		} else {
			r.DesignImage = &d
		}
	default:
		return fmt.Errorf("unknown payload kind %q", kind)
	}
	return nil
}

// Has reports whether the payload of the given kind is present.
func (r *Run) Has(kind PayloadKind) bool {
	switch kind {
	case PayloadSEO:
		return r.SEO != nil
	case PayloadPerformance:
		return r.Performance != nil
	case PayloadSecurity:
		return r.Security != nil
	case PayloadPages:
		return r.Pages != nil
	case PayloadDesignCode:
		return r.DesignCode != nil
	case PayloadDesignImage:
		return r.DesignImage != nil
	}
	return false
}

// Payload returns the JSON encoding of one payload, or nil when absent.
func (r *Run) Payload(kind PayloadKind) ([]byte, error) {
	if !r.Has(kind) {
		return nil, nil
	}
	var v any
	switch kind {
	case PayloadSEO:
		v = r.SEO
	case PayloadPerformance:
		v = r.Performance
	case PayloadSecurity:
		v = r.Security
	case PayloadPages:
		v = r.Pages
	case PayloadDesignCode:
		v = r.DesignCode
	case PayloadDesignImage:
		v = r.DesignImage
	}
	return json.MarshalIndent(v, "", "  ")
}
