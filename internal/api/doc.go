// Package api hosts the HTTP server, middleware, and REST handlers that
// control crawl sessions. Notable routes:
//   - POST /domains starts a session for {"domain": "<url>"}.
//   - GET /domains?domain=<url> lists every URL discovered for a domain.
//   - GET /domains/urls?url=<url> reports how often a URL was discovered.
//   - GET /sessions lists domains with a running session.
//   - GET /healthz for probes and GET /metrics for Prometheus scraping.
package api
