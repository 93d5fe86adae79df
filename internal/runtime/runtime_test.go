package runtime

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/oraclelabs/oracle-voice/internal/config"
	"github.com/oraclelabs/oracle-voice/internal/faq"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := config.Default()
	router, err := faq.NewRouter(faq.Config{
		DatabasePath:        filepath.Join(t.TempDir(), "faq.json"),
		SimilarityThreshold: cfg.FAQ.SimilarityThreshold,
		MaxEntries:          cfg.FAQ.MaxEntries,
	}, newLogger())
	if err != nil {
		t.Fatalf("faq router: %v", err)
	}
	rt := New(cfg, newLogger())
	rt.faqRouter = router
	rt.ready.Store(true)
	return rt
}

func TestHealthAndReadyHandlers(t *testing.T) {
	rt := newTestRuntime(t)

	rec := httptest.NewRecorder()
	rt.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	rt.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d", rec.Code)
	}

	rt.ready.Store(false)
	rec = httptest.NewRecorder()
	rt.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz while stopping = %d", rec.Code)
	}
}

func TestFAQAddHandler(t *testing.T) {
	rt := newTestRuntime(t)

	body, _ := json.Marshal(faqAddRequest{
		TriggerPhrases: []string{"lilly library"},
		Response:       "My papers live at the Lilly Library.",
	})
	rec := httptest.NewRecorder()
	rt.handleFAQAdd(rec, httptest.NewRequest(http.MethodPost, "/v1/faq/entries", bytes.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["id"]; !ok {
		t.Fatalf("response = %s", rec.Body.String())
	}

	if _, ok := rt.faqRouter.Check("lilly library"); !ok {
		t.Fatal("added entry not matchable")
	}
}

func TestFAQAddRejectsBadRequests(t *testing.T) {
	rt := newTestRuntime(t)

	rec := httptest.NewRecorder()
	rt.handleFAQAdd(rec, httptest.NewRequest(http.MethodPost, "/v1/faq/entries", bytes.NewReader([]byte("{"))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status = %d", rec.Code)
	}

	body, _ := json.Marshal(faqAddRequest{Response: "no triggers"})
	rec = httptest.NewRecorder()
	rt.handleFAQAdd(rec, httptest.NewRequest(http.MethodPost, "/v1/faq/entries", bytes.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty triggers status = %d", rec.Code)
	}
}

func TestFAQStatsHandler(t *testing.T) {
	rt := newTestRuntime(t)

	rec := httptest.NewRecorder()
	rt.handleFAQStats(rec, httptest.NewRequest(http.MethodGet, "/v1/faq/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats faq.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalEntries == 0 {
		t.Fatal("stats show no entries")
	}
}
