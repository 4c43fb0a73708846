// Package webhook handles signed callbacks from audit workers.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

// Headers set by audit workers on every callback.
const (
	SignatureHeader = "X-Pagegrade-Signature-256"
	EventHeader     = "X-Pagegrade-Event"
)

// Event types.
const (
	EventRunStarted       = "run.started"
	EventPayloadCompleted = "payload.completed"
	EventPayloadFailed    = "payload.failed"
)

// VerifySignature validates a "sha256=<hex hmac>" signature of payload.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("invalid signature format")
	}
	sig, err := hex.DecodeString(signature[7:])
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(sig, expected) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign returns the signature header value for payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// RunStartedEvent is sent when a worker begins auditing a site.
type RunStartedEvent struct {
	SiteURL string `json:"site_url"`
}

// PayloadCompletedEvent carries one finished audit payload.
type PayloadCompletedEvent struct {
	RunID   string            `json:"run_id"`
	Kind    audit.PayloadKind `json:"kind"`
	Payload json.RawMessage   `json:"payload"`
}

// PayloadFailedEvent reports a worker that gave up on a payload.
type PayloadFailedEvent struct {
	RunID string            `json:"run_id"`
	Kind  audit.PayloadKind `json:"kind"`
	Error string            `json:"error"`
}

// ParseEvent parses a callback body based on the event type.
func ParseEvent(eventType string, payload []byte) (any, error) {
	switch eventType {
	case EventRunStarted:
		var e RunStartedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse %s event: %w", eventType, err)
		}
		if e.SiteURL == "" {
			return nil, fmt.Errorf("%s event: site_url is required", eventType)
		}
		return &e, nil
	case EventPayloadCompleted:
		var e PayloadCompletedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse %s event: %w", eventType, err)
		}
		if err := checkKind(e.RunID, e.Kind); err != nil {
			return nil, fmt.Errorf("%s event: %w", eventType, err)
		}
		if len(e.Payload) == 0 {
			return nil, fmt.Errorf("%s event: payload is required", eventType)
		}
		return &e, nil
	case EventPayloadFailed:
		var e PayloadFailedEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("parse %s event: %w", eventType, err)
		}
		if err := checkKind(e.RunID, e.Kind); err != nil {
			return nil, fmt.Errorf("%s event: %w", eventType, err)
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func checkKind(runID string, kind audit.PayloadKind) error {
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	_, err := audit.ParsePayloadKind(string(kind))
	return err
}
