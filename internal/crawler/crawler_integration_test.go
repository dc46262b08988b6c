package crawler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/domain-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/domain-crawler/internal/parser"
	"github.com/JakeFAU/domain-crawler/internal/visit"
)

func TestCrawlAgainstHTTPServer(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /secret\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<a href="/foo">foo</a><a href="/bar">bar</a><a href="/secret">s</a><a href="https://elsewhere.example/">x</a>`))
	})
	mux.HandleFunc("/foo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("no links here"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	domain, err := url.Parse(srv.URL)
	require.NoError(t, err)

	fetcher, err := collyfetcher.New(collyfetcher.Config{UserAgent: "integration-test", Timeout: 2 * time.Second})
	require.NoError(t, err)
	store := visit.NewStore()

	o, err := crawler.NewOrchestrator(crawler.Session{
		ID:           "integration",
		Domain:       domain,
		Store:        store,
		Downloader:   fetcher,
		ExtractLinks: parser.ExtractLinks,
		Logger:       zap.NewNop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report := o.Run(ctx)

	require.Equal(t, crawler.ReasonCompleted, report.Reason)
	require.Equal(t, 3, report.UniqueURLs)

	urls, err := store.UniqueURLsForDomain(domain)
	require.NoError(t, err)
	got := make([]string, 0, len(urls))
	for _, u := range urls {
		got = append(got, u.String())
	}
	require.Equal(t, []string{srv.URL + "/", srv.URL + "/bar", srv.URL + "/foo"}, got)
}
