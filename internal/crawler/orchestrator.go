package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/metrics"
	"github.com/JakeFAU/domain-crawler/internal/robots"
)

// Reason explains why a session ended.
type Reason string

const (
	// ReasonCompleted means every task finished and nothing was left to visit.
	ReasonCompleted Reason = "completed"
	// ReasonShutdown means the session context was cancelled first.
	ReasonShutdown Reason = "shutdown"
)

// Visit decisions reported to metrics.
const (
	decisionAccepted    = "accepted"
	decisionDuplicate   = "duplicate"
	decisionOutOfDomain = "out_of_domain"
	decisionScheme      = "unsupported_scheme"
	decisionRobots      = "robots_denied"
	decisionInvalid     = "invalid"
)

const defaultRobotsAgent = "*"

// Session describes one crawl of one domain.
type Session struct {
	ID         string
	Domain     *url.URL
	Store      VisitStore
	Downloader Downloader
	// ExtractLinks defaults to nothing found when nil.
	ExtractLinks LinkExtractor
	// RobotsAgent selects the robots.txt group; defaults to "*".
	RobotsAgent string
	Clock       Clock
	Logger      *zap.Logger
}

// Report summarizes a finished session.
type Report struct {
	SessionID    string    `json:"session_id"`
	Domain       string    `json:"domain"`
	Reason       Reason    `json:"reason"`
	UniqueURLs   int       `json:"unique_urls"`
	TasksSpawned int       `json:"tasks_spawned"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Orchestrator runs a single crawl session.
type Orchestrator struct {
	session Session
	logger  *zap.Logger
}

// NewOrchestrator validates s and fills in defaults.
func NewOrchestrator(s Session) (*Orchestrator, error) {
	if s.Domain == nil || s.Domain.Host == "" {
		return nil, errors.New("session domain must be an absolute URL")
	}
	if !supportedScheme(s.Domain) {
		return nil, fmt.Errorf("unsupported domain scheme %q", s.Domain.Scheme)
	}
	if s.Store == nil {
		return nil, errors.New("visit store is required")
	}
	if s.Downloader == nil {
		return nil, errors.New("downloader is required")
	}
	if s.ExtractLinks == nil {
		s.ExtractLinks = func(string) []string { return nil }
	}
	if s.RobotsAgent == "" {
		s.RobotsAgent = defaultRobotsAgent
	}
	if s.Clock == nil {
		s.Clock = wallClock{}
	}
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		session: s,
		logger: logger.Named("orchestrator").With(
			zap.String("session_id", s.ID),
			zap.String("domain", s.Domain.String()),
		),
	}, nil
}

// Run crawls the session domain until the fan-out quiesces or ctx is
// cancelled. It returns only after every fetch task it spawned has exited.
func (o *Orchestrator) Run(ctx context.Context) Report {
	s := o.session
	report := Report{
		SessionID: s.ID,
		Domain:    s.Domain.String(),
		Reason:    ReasonCompleted,
		StartedAt: s.Clock.Now(),
	}
	o.logger.Info("crawl session started")

	policy := o.fetchRobots(ctx)

	mux := NewMultiplexer[*url.URL]()
	mux.Push(s.Domain)

	var tasks sync.WaitGroup
	for {
		next, err := mux.Next(ctx)
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			report.Reason = ReasonShutdown
			break
		}

		decision := o.decide(policy, next)
		metrics.ObserveVisitDecision(decision)
		if decision != decisionAccepted {
			continue
		}

		task := &fetchTask{
			target:     next,
			domain:     s.Domain,
			downloader: s.Downloader,
			extract:    s.ExtractLinks,
			out:        mux.Add(),
			logger:     o.logger.With(zap.String("url", next.String())),
		}
		tasks.Add(1)
		report.TasksSpawned++
		metrics.IncActiveFetchTasks()
		go func() {
			defer tasks.Done()
			defer metrics.DecActiveFetchTasks()
			task.run(ctx)
		}()
	}

	tasks.Wait()

	if urls, err := s.Store.UniqueURLsForDomain(s.Domain); err == nil {
		report.UniqueURLs = len(urls)
	}
	report.FinishedAt = s.Clock.Now()
	o.logger.Info("crawl session finished",
		zap.String("reason", string(report.Reason)),
		zap.Int("tasks_spawned", report.TasksSpawned),
		zap.Int("unique_urls", report.UniqueURLs),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

// decide runs the visit decision for candidate. Every in-domain, allowed
// candidate is recorded, so repeated discoveries still raise its count.
func (o *Orchestrator) decide(policy *robots.Policy, candidate *url.URL) string {
	s := o.session
	if !sameAuthority(candidate, s.Domain) {
		return decisionOutOfDomain
	}
	if !supportedScheme(candidate) {
		return decisionScheme
	}
	if !policy.Allowed(s.RobotsAgent, candidate) {
		o.logger.Debug("disallowed by robots.txt", zap.String("url", candidate.String()))
		return decisionRobots
	}
	first, err := s.Store.Record(candidate)
	if err != nil {
		o.logger.Warn("failed to record visit", zap.String("url", candidate.String()), zap.Error(err))
		return decisionInvalid
	}
	if !first {
		return decisionDuplicate
	}
	return decisionAccepted
}

// fetchRobots downloads the domain's robots.txt once. Any failure yields an
// allow-all policy.
func (o *Orchestrator) fetchRobots(ctx context.Context) *robots.Policy {
	target := robotsURL(o.session.Domain)
	text, err := o.session.Downloader.Download(ctx, target)
	if err != nil {
		o.logger.Info("robots.txt unavailable, allowing all paths", zap.Error(err))
		text = ""
	}
	policy, err := robots.Parse(text)
	if err != nil {
		o.logger.Warn("unparsable robots.txt, allowing all paths", zap.Error(err))
	}
	return policy
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }
