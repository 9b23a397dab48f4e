package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/progress/sinks"
	"github.com/JakeFAU/catalog-prober/internal/prober"
	"github.com/JakeFAU/catalog-prober/internal/scraper"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(), "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_ReadyzRequiresScraper(t *testing.T) {
	t.Parallel()

	rec := serve(t, NewServer(Deps{}, zap.NewNop()), "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(t, newTestServer(), "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(), "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_ListTargets(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(), "/v1/targets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"targets":["courir","size"]}`, rec.Body.String())
}

func TestServer_Progress(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(), "/v1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got scraper.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "size", got.Target)
	require.True(t, got.Running)
	require.Equal(t, int64(12), got.Stats.Checked)
}

func TestServer_LastRun(t *testing.T) {
	t.Parallel()

	src := &fakeScraper{}
	server := NewServer(Deps{Scraper: src}, zap.NewNop())
	rec := serve(t, server, "/v1/runs/last", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	src.last = &prober.RunSummary{RunID: "run-9", Target: "size", Discovered: []int64{4}}
	rec = serve(t, server, "/v1/runs/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"run_id":"run-9"`)
}

func TestServer_ListRunsHonorsLimit(t *testing.T) {
	t.Parallel()

	server := newTestServer()
	rec := serve(t, server, "/v1/runs?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []sinks.RunStatus `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	require.Equal(t, "r2", body.Runs[0].RunID)

	rec = serve(t, server, "/v1/runs?limit=zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetRun(t *testing.T) {
	t.Parallel()

	server := newTestServer()
	rec := serve(t, server, "/v1/runs/r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"run_id":"r1"`)

	rec = serve(t, server, "/v1/runs/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RunsUnavailableWithoutTracker(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{Scraper: &fakeScraper{}}, zap.NewNop())
	require.Equal(t, http.StatusServiceUnavailable, serve(t, server, "/v1/runs", nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, serve(t, server, "/v1/runs/r1", nil).Code)
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{Scraper: &fakeScraper{}, APIKey: "secret"}, zap.NewNop())

	require.Equal(t, http.StatusForbidden, serve(t, server, "/v1/progress", nil).Code)
	require.Equal(t, http.StatusOK, serve(t, server, "/v1/progress", map[string]string{"X-API-Key": "secret"}).Code)
	require.Equal(t, http.StatusOK, serve(t, server, "/v1/progress?api_key=secret", nil).Code)
	require.Equal(t, http.StatusOK, serve(t, server, "/healthz", nil).Code)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	t.Parallel()

	server := NewServer(Deps{Scraper: panicScraper{}}, zap.NewNop())
	rec := serve(t, server, "/v1/progress", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddlewareSetsHeader(t *testing.T) {
	t.Parallel()

	rec := serve(t, newTestServer(), "/healthz", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = serve(t, newTestServer(), "/healthz", map[string]string{"X-Request-ID": "abc"})
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestResponseWriterHijackBehavior(t *testing.T) {
	t.Parallel()

	rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}
	if _, _, err := rw.Hijack(); err == nil || err.Error() != "hijacker not supported" {
		t.Fatalf("expected unsupported hijacker error, got %v", err)
	}

	h := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	rw = &responseWriter{ResponseWriter: h}
	conn, buf, err := rw.Hijack()
	if err != nil {
		t.Fatalf("expected successful hijack, got %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("close hijacked conn: %v", err)
	}
	if err := h.CloseClient(); err != nil {
		t.Fatalf("close hijacked client: %v", err)
	}
	if buf == nil {
		t.Fatal("expected buf to be non-nil")
	}
}

// --- helpers/fakes ---

func serve(t *testing.T, server *Server, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

type fakeScraper struct {
	last *prober.RunSummary
}

func (f *fakeScraper) Progress() scraper.Progress {
	return scraper.Progress{
		RunID:   "r2",
		Target:  "size",
		Running: true,
		Stats:   prober.StatsSnapshot{Checked: 12},
	}
}

func (f *fakeScraper) LastRun() (prober.RunSummary, bool) {
	if f.last == nil {
		return prober.RunSummary{}, false
	}
	return *f.last, true
}

type panicScraper struct{}

func (panicScraper) Progress() scraper.Progress { panic("boom") }

func (panicScraper) LastRun() (prober.RunSummary, bool) { return prober.RunSummary{}, false }

type fakeRuns struct {
	runs []sinks.RunStatus
}

func (f fakeRuns) Runs() []sinks.RunStatus { return f.runs }

func (f fakeRuns) Run(runID string) (sinks.RunStatus, bool) {
	for _, run := range f.runs {
		if run.RunID == runID {
			return run, true
		}
	}
	return sinks.RunStatus{}, false
}

func newTestServer() *Server {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	runs := fakeRuns{runs: []sinks.RunStatus{
		{RunID: "r2", Target: "size", Status: sinks.RunRunning, StartedAt: now.Add(time.Hour)},
		{RunID: "r1", Target: "size", Status: sinks.RunSuccess, StartedAt: now},
	}}
	return NewServer(Deps{
		Scraper: &fakeScraper{},
		Runs:    runs,
		Targets: []string{"courir", "size"},
	}, zap.NewNop())
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	client net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	server, client := net.Pipe()
	h.client = client
	return server, bufio.NewReadWriter(bufio.NewReader(client), bufio.NewWriter(client)), nil
}

func (h *hijackableRecorder) CloseClient() error {
	if h.client != nil {
		if err := h.client.Close(); err != nil {
			return fmt.Errorf("close hijacker client: %w", err)
		}
	}
	return nil
}
