package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/runs"
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

var testSecret = []byte("webhook-secret-123")

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"site_url":"https://example.com/"}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		wantErr   bool
	}{
		{
			name:      "valid signature",
			payload:   payload,
			signature: Sign(payload, testSecret),
		},
		{
			name:      "wrong secret",
			payload:   payload,
			signature: Sign(payload, []byte("wrong-secret")),
			wantErr:   true,
		},
		{
			name:      "tampered payload",
			payload:   []byte(`{"site_url":"https://evil.example.com/"}`),
			signature: Sign(payload, testSecret),
			wantErr:   true,
		},
		{
			name:      "missing sha256= prefix",
			payload:   payload,
			signature: "not-a-valid-sig",
			wantErr:   true,
		},
		{
			name:      "invalid hex after prefix",
			payload:   payload,
			signature: "sha256=zzzz",
			wantErr:   true,
		},
		{
			name:      "empty signature",
			payload:   payload,
			signature: "",
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := VerifySignature(tc.payload, tc.signature, testSecret)
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		body      string
		wantErr   bool
	}{
		{"run started", EventRunStarted, `{"site_url":"https://example.com/"}`, false},
		{"run started without url", EventRunStarted, `{}`, true},
		{"payload completed", EventPayloadCompleted, `{"run_id":"r1","kind":"seo","payload":{}}`, false},
		{"payload completed without payload", EventPayloadCompleted, `{"run_id":"r1","kind":"seo"}`, true},
		{"payload completed unknown kind", EventPayloadCompleted, `{"run_id":"r1","kind":"lighthouse","payload":{}}`, true},
		{"payload failed", EventPayloadFailed, `{"run_id":"r1","kind":"performance","error":"timeout"}`, false},
		{"payload failed without run", EventPayloadFailed, `{"kind":"performance"}`, true},
		{"malformed json", EventRunStarted, `{`, true},
		{"unsupported type", "run.deleted", `{}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseEvent(tc.eventType, []byte(tc.body))
			if tc.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(runID string) {
	c.invalidated = append(c.invalidated, runID)
}

type harness struct {
	store   *runs.MemoryStore
	cache   *recordingCache
	handler *Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := runs.NewMemoryStore()
	engine := scoring.NewEngine(scoring.DefaultScorers(scoring.Defaults())...)
	svc := ingestion.NewService(store, ingestion.NewLocalStorage(t.TempDir()), engine, nil, nil)
	cache := &recordingCache{}
	return &harness{
		store:   store,
		cache:   cache,
		handler: NewHandler(testSecret, store, svc, cache, nil),
	}
}

func (h *harness) post(t *testing.T, eventType string, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/audit", strings.NewReader(string(body)))
	req.Header.Set(EventHeader, eventType)
	req.Header.Set(SignatureHeader, signature)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestHandlerRunLifecycle(t *testing.T) {
	h := newHarness(t)

	body := []byte(`{"site_url":"https://shop.example.com/"}`)
	rec := h.post(t, EventRunStarted, body, Sign(body, testSecret))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("run.started status = %d: %s", rec.Code, rec.Body.String())
	}
	runID := decodeResponse(t, rec)["run_id"]
	if runID == "" {
		t.Fatal("expected run_id in response")
	}

	seo, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample-run", audit.PayloadSEO.FileName()))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	body, _ = json.Marshal(PayloadCompletedEvent{RunID: runID, Kind: audit.PayloadSEO, Payload: seo})
	rec = h.post(t, EventPayloadCompleted, body, Sign(body, testSecret))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("payload.completed status = %d: %s", rec.Code, rec.Body.String())
	}
	if state := decodeResponse(t, rec)["state"]; state != string(scoring.StateSeoReady) {
		t.Errorf("state = %q, want %q", state, scoring.StateSeoReady)
	}
	if len(h.cache.invalidated) != 1 || h.cache.invalidated[0] != runID {
		t.Errorf("invalidated = %v", h.cache.invalidated)
	}

	run, err := h.store.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.State != scoring.StateSeoReady || len(run.Payloads) != 1 {
		t.Errorf("run = %+v", run)
	}

	body = []byte(`{"run_id":"` + runID + `","kind":"performance","error":"lighthouse timed out"}`)
	rec = h.post(t, EventPayloadFailed, body, Sign(body, testSecret))
	if rec.Code != http.StatusAccepted {
		t.Errorf("payload.failed status = %d", rec.Code)
	}
	run, _ = h.store.GetRun(context.Background(), runID)
	if run.State != scoring.StateSeoReady {
		t.Errorf("failed payload must not change state, got %s", run.State)
	}
}

func TestHandlerRejects(t *testing.T) {
	h := newHarness(t)
	run, _ := h.store.CreateRun(context.Background(), "https://example.com/")

	valid := []byte(`{"site_url":"https://example.com/"}`)
	invalidPayload := []byte(`{"run_id":"` + run.ID + `","kind":"seo","payload":[1,2]}`)
	unknownRun := []byte(`{"run_id":"missing","kind":"seo","payload":{}}`)

	tests := []struct {
		name      string
		method    string
		eventType string
		body      []byte
		signature string
		want      int
	}{
		{"wrong method", http.MethodGet, EventRunStarted, valid, Sign(valid, testSecret), http.StatusMethodNotAllowed},
		{"bad signature", http.MethodPost, EventRunStarted, valid, Sign(valid, []byte("nope")), http.StatusUnauthorized},
		{"missing event header", http.MethodPost, "", valid, Sign(valid, testSecret), http.StatusBadRequest},
		{"unsupported event", http.MethodPost, "run.deleted", valid, Sign(valid, testSecret), http.StatusBadRequest},
		{"invalid payload", http.MethodPost, EventPayloadCompleted, invalidPayload, Sign(invalidPayload, testSecret), http.StatusBadRequest},
		{"unknown run", http.MethodPost, EventPayloadCompleted, unknownRun, Sign(unknownRun, testSecret), http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/webhooks/audit", strings.NewReader(string(tc.body)))
			if tc.eventType != "" {
				req.Header.Set(EventHeader, tc.eventType)
			}
			req.Header.Set(SignatureHeader, tc.signature)
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}

	if len(h.cache.invalidated) != 0 {
		t.Errorf("rejected events must not invalidate, got %v", h.cache.invalidated)
	}
}

func TestHandlerRejectsOversizedCallback(t *testing.T) {
	h := newHarness(t)
	run, _ := h.store.CreateRun(context.Background(), "https://example.com/")

	// A validly signed body one byte over the cap.
	prefix := `{"run_id":"` + run.ID + `","kind":"pages","payload":"`
	filler := strings.Repeat("x", maxBodyBytes+1-len(prefix)-len(`"}`))
	body := []byte(prefix + filler + `"}`)
	if len(body) != maxBodyBytes+1 {
		t.Fatalf("body length = %d", len(body))
	}

	rec := h.post(t, EventPayloadCompleted, body, Sign(body, testSecret))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
	got, _ := h.store.GetRun(context.Background(), run.ID)
	if len(got.Payloads) != 0 {
		t.Errorf("oversized callback must not store payloads, got %d", len(got.Payloads))
	}
}
