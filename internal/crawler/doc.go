// Package crawler implements the crawl orchestration engine: one Orchestrator
// per domain session that turns a seed URL into a dynamically growing set of
// fetch tasks, deduplicates discovered URLs through a shared visit store and
// detects when the fan-out has quiesced.
//
// Every fetch task owns one Input of a Multiplexer and sends discovered links
// through it. All inputs share a single channel read by the orchestrator,
// which counts open inputs and stops once the count drops to zero with
// nothing queued. That happens only after every task has closed its Input.
// Cancelling the context passed to Run stops the loop immediately; Run still
// waits for every task to exit before it returns.
package crawler
