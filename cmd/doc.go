// Package cmd defines the domain-crawler CLI.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the crawl control routes plus health and metrics. POST /domains hands
//     the domain to the session manager; list and count queries read the visit store directly.
//   - Sessions: internal/session.Manager checks the registry so each domain has at most one running session, builds a
//     Colly downloader for it and runs a crawler.Orchestrator on the shutdown coordinator. When the orchestrator
//     returns the domain leaves the registry and a session report is published (noop, memory or Pub/Sub).
//   - Crawl engine: the orchestrator fetches robots.txt once, seeds a channel with the domain URL and pulls
//     discovered URLs from a multiplexer over every task's output channel. Accepted URLs get a fetch task of their
//     own. The crawl is complete when the multiplexer has no open inputs left.
//   - Visit store: internal/visit partitions counts by host so sessions for different domains never contend on
//     the same lock. Record checks and marks a URL in one step, so a URL is fetched at most once.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: one goroutine per page being fetched, unbounded. There is no politeness delay and no retry.
//   - Shutdown: SIGINT, SIGTERM or SIGQUIT triggers the coordinator once. The HTTP server shuts down within
//     server.shutdown_timeout, then sessions have crawler.drain_timeout to let every fetch task exit.
//   - Nothing is persisted; restarting the process forgets every crawl.
//
// Quick checklist:
//   - Configure env vars: CRAWLER_SERVER_PORT, CRAWLER_CRAWLER_USER_AGENT, CRAWLER_CRAWLER_REQUEST_TIMEOUT,
//     CRAWLER_NOTIFY_PROVIDER=pubsub with CRAWLER_NOTIFY_PROJECT_ID and CRAWLER_NOTIFY_TOPIC_ID to publish reports.
//   - Run locally: go run . serve --config config.yaml (or rely solely on env overrides).
package cmd
