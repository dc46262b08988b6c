package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/crawler"
	"github.com/JakeFAU/domain-crawler/internal/metrics"
	"github.com/JakeFAU/domain-crawler/internal/visit"
)

// DefaultTopic is the topic session reports are published under.
const DefaultTopic = "crawl-sessions"

const publishTimeout = 10 * time.Second

// reasonAborted is the finish reason recorded for sessions that panicked.
const reasonAborted = "aborted"

// Publisher pushes session reports to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// IDGenerator produces session IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Runner tracks session goroutines so shutdown can wait for them.
type Runner interface {
	Go(fn func(ctx context.Context)) error
}

// DownloaderFactory builds the downloader for one session.
type DownloaderFactory func() (crawler.Downloader, error)

// Dependencies wires a Manager.
type Dependencies struct {
	Registry      *Registry
	Store         crawler.VisitStore
	NewDownloader DownloaderFactory
	ExtractLinks  crawler.LinkExtractor
	Runner        Runner
	Publisher     Publisher
	IDs           IDGenerator
	Clock         crawler.Clock
	Logger        *zap.Logger
	RobotsAgent   string
	Topic         string
}

// Manager starts crawl sessions and cleans up after them.
type Manager struct {
	deps   Dependencies
	logger *zap.Logger
}

// NewManager validates deps.
func NewManager(deps Dependencies) (*Manager, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("session registry is required")
	case deps.Store == nil:
		return nil, errors.New("visit store is required")
	case deps.NewDownloader == nil:
		return nil, errors.New("downloader factory is required")
	case deps.Runner == nil:
		return nil, errors.New("runner is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if deps.Topic == "" {
		deps.Topic = DefaultTopic
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{deps: deps, logger: logger.Named("session")}, nil
}

// Start launches a session for domain unless one is already running. It
// reports whether a new session was started. Errors mean the session could
// not be constructed.
func (m *Manager) Start(domain *url.URL) (bool, error) {
	key, err := visit.DomainOf(domain)
	if err != nil {
		return false, err
	}
	if m.deps.Registry.IsActive(key) {
		return false, nil
	}

	downloader, err := m.deps.NewDownloader()
	if err != nil {
		return false, fmt.Errorf("build downloader: %w", err)
	}
	id, err := m.deps.IDs.NewID()
	if err != nil {
		return false, fmt.Errorf("session id: %w", err)
	}
	orchestrator, err := crawler.NewOrchestrator(crawler.Session{
		ID:           id,
		Domain:       domain,
		Store:        m.deps.Store,
		Downloader:   downloader,
		ExtractLinks: m.deps.ExtractLinks,
		RobotsAgent:  m.deps.RobotsAgent,
		Clock:        m.deps.Clock,
		Logger:       m.logger,
	})
	if err != nil {
		return false, fmt.Errorf("build orchestrator: %w", err)
	}

	if !m.deps.Registry.TryStart(key) {
		return false, nil
	}
	err = m.deps.Runner.Go(func(ctx context.Context) {
		m.run(ctx, key, orchestrator)
	})
	if err != nil {
		m.deps.Registry.Finish(key)
		return false, fmt.Errorf("schedule session: %w", err)
	}
	return true, nil
}

// Active lists domains with a running session.
func (m *Manager) Active() []string {
	return m.deps.Registry.Active()
}

func (m *Manager) run(ctx context.Context, key string, o *crawler.Orchestrator) {
	metrics.ObserveSessionStarted()
	report, err := runRecovered(ctx, o)
	m.deps.Registry.Finish(key)
	if err != nil {
		metrics.ObserveSessionFinished(reasonAborted)
		m.logger.Error("crawl session aborted", zap.String("domain", key), zap.Error(err))
		return
	}
	metrics.ObserveSessionFinished(string(report.Reason))

	if m.deps.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	id, err := m.deps.Publisher.Publish(pubCtx, m.deps.Topic, report)
	if err != nil {
		m.logger.Warn("failed to publish session report",
			zap.String("session_id", report.SessionID),
			zap.Error(err),
		)
		return
	}
	m.logger.Debug("session report published",
		zap.String("session_id", report.SessionID),
		zap.String("message_id", id),
	)
}

// runRecovered keeps a panicking session from taking the process down.
func runRecovered(ctx context.Context, o *crawler.Orchestrator) (report crawler.Report, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("session panicked: %v", rec)
		}
	}()
	return o.Run(ctx), nil
}
