package api_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pagegrade/pagegrade/internal/api"
	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/runs"
	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

const testAPIKey = "secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newServerWithStorage(t, ingestion.NewLocalStorage(t.TempDir()))
}

func newServerWithStorage(t *testing.T, storage ingestion.StorageClient) *httptest.Server {
	t.Helper()
	store := runs.NewMemoryStore()
	engine := scoring.NewEngine(scoring.DefaultScorers(scoring.Defaults())...)
	svc := ingestion.NewService(store, storage, engine, nil, nil)

	h := api.NewHandler(store, svc, api.NewReportCache(10), nil)
	apiMux := http.NewServeMux()
	h.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	api.RegisterHealth(mux, nil)
	mux.Handle("/api/", api.APIKeyAuth(testAPIKey)(apiMux))

	srv := httptest.NewServer(api.CORS(mux))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-API-Key", testAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createRun(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/v1/runs", []byte(`{"site_url":"https://shop.example.com/"}`), nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create run: status %d", resp.StatusCode)
	}
	var run runs.Run
	decode(t, resp, &run)
	return run.ID
}

func fixture(t *testing.T, kind audit.PayloadKind) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "sample-run", kind.FileName()))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestHealthz(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestHealthzReportsFailingCheck(t *testing.T) {
	mux := http.NewServeMux()
	api.RegisterHealth(mux, func(context.Context) error { return errors.New("database unreachable") })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "database unreachable") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newServer(t)
	resp, err := srv.Client().Get(srv.URL + "/api/v1/runs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateRunValidation(t *testing.T) {
	srv := newServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"site_url":`},
		{"missing url", `{}`},
		{"not a url", `{"site_url":"shop"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/api/v1/runs", []byte(tc.body), nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newServer(t)
	runID := createRun(t, srv)

	// No report before any payload.
	resp := do(t, srv, http.MethodGet, "/api/v1/runs/"+runID+"/report", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("report before payloads: status %d, want 404", resp.StatusCode)
	}

	for _, kind := range audit.PayloadKinds() {
		resp := do(t, srv, http.MethodPut, "/api/v1/runs/"+runID+"/payloads/"+string(kind), fixture(t, kind), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("submit %s: status %d", kind, resp.StatusCode)
		}
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs/"+runID, nil, nil)
	var run runs.Run
	decode(t, resp, &run)
	if run.State != scoring.StateComplete || len(run.Payloads) != len(audit.PayloadKinds()) {
		t.Errorf("run = %+v", run)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs/"+runID+"/report", nil, nil)
	var report scoring.Report
	decode(t, resp, &report)
	if report.Composite == nil || *report.Composite != 74.25 || report.Grade != "C" {
		t.Errorf("report composite = %v grade = %q", report.Composite, report.Grade)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs/"+runID+"/scores", nil, nil)
	var scores []runs.Score
	decode(t, resp, &scores)
	if len(scores) != len(audit.PayloadKinds()) {
		t.Errorf("expected %d score rows, got %d", len(audit.PayloadKinds()), len(scores))
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs", nil, nil)
	var list []runs.Run
	decode(t, resp, &list)
	if len(list) != 1 || list[0].ID != runID {
		t.Errorf("list = %+v", list)
	}
}

func TestSubmitGzipPayload(t *testing.T) {
	srv := newServer(t)
	runID := createRun(t, srv)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(fixture(t, audit.PayloadSEO)); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	gz.Close()

	resp := do(t, srv, http.MethodPut, "/api/v1/runs/"+runID+"/payloads/seo", buf.Bytes(), map[string]string{"Content-Encoding": "gzip"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var sub ingestion.Submission
	decode(t, resp, &sub)
	if sub.State != scoring.StateSeoReady || sub.ReportID == "" {
		t.Errorf("submission = %+v", sub)
	}
}

func TestSubmitErrors(t *testing.T) {
	srv := newServer(t)
	runID := createRun(t, srv)

	tests := []struct {
		name    string
		path    string
		body    []byte
		headers map[string]string
		want    int
	}{
		{"unknown kind", "/api/v1/runs/" + runID + "/payloads/lighthouse", []byte(`{}`), nil, http.StatusBadRequest},
		{"invalid json", "/api/v1/runs/" + runID + "/payloads/seo", []byte(`{"seoFiles": [`), nil, http.StatusBadRequest},
		{"bad gzip", "/api/v1/runs/" + runID + "/payloads/seo", []byte("plain"), map[string]string{"Content-Encoding": "gzip"}, http.StatusBadRequest},
		{"unknown run", "/api/v1/runs/missing/payloads/seo", []byte(`{}`), nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPut, tc.path, tc.body, tc.headers)
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestGetUnknownRun(t *testing.T) {
	srv := newServer(t)
	for _, path := range []string{"/api/v1/runs/missing", "/api/v1/runs/missing/report", "/api/v1/runs/missing/scores"} {
		resp := do(t, srv, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s: status %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestRescore(t *testing.T) {
	srv := newServer(t)
	runID := createRun(t, srv)
	do(t, srv, http.MethodPut, "/api/v1/runs/"+runID+"/payloads/seo", fixture(t, audit.PayloadSEO), nil)

	resp := do(t, srv, http.MethodPost, "/api/v1/runs/"+runID+"/rescore", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rescore: status %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs/"+runID+"/scores", nil, nil)
	var scores []runs.Score
	decode(t, resp, &scores)
	if len(scores) != 2 {
		t.Errorf("expected 2 score rows after rescore, got %d", len(scores))
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/runs/missing/rescore", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("rescore unknown run: status %d", resp.StatusCode)
	}
}

func TestListRunsLimit(t *testing.T) {
	srv := newServer(t)
	resp := do(t, srv, http.MethodGet, "/api/v1/runs?limit=zero", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/runs", nil, nil)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("empty list should be [], got %s", body)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/runs", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "PUT") {
		t.Error("expected PUT in allowed methods")
	}
}

// gatedStorage blocks the next report blob read until released.
type gatedStorage struct {
	ingestion.StorageClient

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	gate := s.armed && strings.Contains(key, "/reports/")
	if gate {
		s.armed = false
	}
	s.mu.Unlock()

	if gate {
		close(s.entered)
		<-s.release
	}
	return s.StorageClient.Get(ctx, key)
}

func TestReportReadRacingSubmissionIsNotCached(t *testing.T) {
	storage := &gatedStorage{
		StorageClient: ingestion.NewLocalStorage(t.TempDir()),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	srv := newServerWithStorage(t, storage)
	runID := createRun(t, srv)
	reportPath := "/api/v1/runs/" + runID + "/report"

	if resp := do(t, srv, http.MethodPut, "/api/v1/runs/"+runID+"/payloads/seo", fixture(t, audit.PayloadSEO), nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit seo: status %d", resp.StatusCode)
	}

	storage.mu.Lock()
	storage.armed = true
	storage.mu.Unlock()

	// The slow read loads the seo_ready report and stalls before returning.
	type result struct {
		state scoring.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+reportPath, nil)
		req.Header.Set("X-API-Key", testAPIKey)
		resp, err := srv.Client().Do(req)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer resp.Body.Close()
		var report scoring.Report
		err = json.NewDecoder(resp.Body).Decode(&report)
		done <- result{state: report.State, err: err}
	}()
	<-storage.entered

	if resp := do(t, srv, http.MethodPut, "/api/v1/runs/"+runID+"/payloads/performance", fixture(t, audit.PayloadPerformance), nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit performance: status %d", resp.StatusCode)
	}
	close(storage.release)

	slow := <-done
	if slow.err != nil {
		t.Fatalf("slow report read: %v", slow.err)
	}
	if slow.state != scoring.StateSeoReady {
		t.Errorf("slow read state = %s, want %s", slow.state, scoring.StateSeoReady)
	}

	for i := 0; i < 2; i++ {
		resp := do(t, srv, http.MethodGet, reportPath, nil, nil)
		var report scoring.Report
		decode(t, resp, &report)
		if report.State != scoring.StatePerformanceReady {
			t.Fatalf("read %d served state %s, latest is %s", i+1, report.State, scoring.StatePerformanceReady)
		}
	}
}
