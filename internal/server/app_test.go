package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:              1,
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		},
		Crawler: config.CrawlerConfig{
			UserAgent:      "server-test",
			RobotsAgent:    "*",
			RequestTimeout: 2 * time.Second,
			DrainTimeout:   2 * time.Second,
		},
		Logging: config.LoggingConfig{Development: true},
		Notify:  config.NotifyConfig{Provider: config.NotifyMemory},
	}
}

func startApp(t *testing.T) (*App, string, <-chan error) {
	t.Helper()
	app, err := build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Serve(context.Background(), ln) }()
	return app, "http://" + ln.Addr().String(), done
}

func TestAppServesAndShutsDown(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<a href="/about">about</a>`))
		case "/about":
			_, _ = w.Write([]byte("about us"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.Close)

	app, base, done := startApp(t)

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := json.Marshal(map[string]string{"domain": site.URL})
	require.NoError(t, err)
	resp, err = http.Post(base+"/domains", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/domains?domain=" + site.URL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var urls []string
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&urls) != nil {
			return false
		}
		return len(urls) == 2
	}, 5*time.Second, 20*time.Millisecond)

	app.Shutdown()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after shutdown")
	}
}

func TestAppStopsWhenContextIsCancelled(t *testing.T) {
	app, err := build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestSetupPublisherProviders(t *testing.T) {
	t.Parallel()

	for _, provider := range []string{config.NotifyNoop, config.NotifyMemory} {
		cfg := testConfig()
		cfg.Notify.Provider = provider
		app, err := build(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err, provider)
		require.Nil(t, app.pubsubPublisher)
		require.NotNil(t, app.Handler())
	}
}
