package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if crawlerPagesTotal == nil || crawlerVisitDecisionsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveSessionLifecycle(t *testing.T) {
	Init()
	startedBefore := testutil.ToFloat64(crawlerSessionsStartedTotal)
	activeBefore := testutil.ToFloat64(crawlerActiveSessions)
	finishedBefore := testutil.ToFloat64(crawlerSessionsFinishedTotal.WithLabelValues("completed"))

	ObserveSessionStarted()
	if got := testutil.ToFloat64(crawlerActiveSessions); got != activeBefore+1 {
		t.Fatalf("expected active sessions %f, got %f", activeBefore+1, got)
	}

	ObserveSessionFinished("completed")
	if got := testutil.ToFloat64(crawlerSessionsStartedTotal); got != startedBefore+1 {
		t.Errorf("expected started %f, got %f", startedBefore+1, got)
	}
	if got := testutil.ToFloat64(crawlerSessionsFinishedTotal.WithLabelValues("completed")); got != finishedBefore+1 {
		t.Errorf("expected finished %f, got %f", finishedBefore+1, got)
	}
	if got := testutil.ToFloat64(crawlerActiveSessions); got != activeBefore {
		t.Errorf("expected active sessions back to %f, got %f", activeBefore, got)
	}
}

func TestObservePage(t *testing.T) {
	Init()
	before := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("pages.example"))

	ObservePage("https://Pages.example/a", "success", 42)
	ObservePage("https://pages.example/b", "failure", 0)

	if got := testutil.ToFloat64(crawlerBytesTotal.WithLabelValues("pages.example")); got != before+42 {
		t.Errorf("expected bytes %f, got %f", before+42, got)
	}
	if got := testutil.ToFloat64(crawlerPagesTotal.WithLabelValues("pages.example", "failure")); got < 1 {
		t.Errorf("expected a failure to be recorded, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
