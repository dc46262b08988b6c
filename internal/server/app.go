// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/api"
	"github.com/JakeFAU/domain-crawler/internal/clock/system"
	"github.com/JakeFAU/domain-crawler/internal/config"
	"github.com/JakeFAU/domain-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/domain-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/domain-crawler/internal/id/uuid"
	"github.com/JakeFAU/domain-crawler/internal/logging"
	"github.com/JakeFAU/domain-crawler/internal/metrics"
	"github.com/JakeFAU/domain-crawler/internal/parser"
	memorypublisher "github.com/JakeFAU/domain-crawler/internal/publisher/memory"
	noppublisher "github.com/JakeFAU/domain-crawler/internal/publisher/noop"
	gcppublisher "github.com/JakeFAU/domain-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/domain-crawler/internal/session"
	"github.com/JakeFAU/domain-crawler/internal/shutdown"
	"github.com/JakeFAU/domain-crawler/internal/visit"
)

// memoryReportLimit bounds how many session reports the memory provider keeps.
const memoryReportLimit = 1000

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	apiServer       *api.Server
	coordinator     *shutdown.Coordinator
	pubsubPublisher *gcppublisher.Publisher
}

// Build creates the application's dependencies. Cancelling ctx has the same
// effect as a termination signal.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return build(ctx, cfg, logger)
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		cfg:         cfg,
		logger:      logger,
		coordinator: shutdown.New(ctx, logger),
	}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("notify_provider", cfg.Notify.Provider),
	)
	metrics.Init()

	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return nil, err
	}

	ids := uuid.New()
	store := visit.NewStore()
	manager, err := session.NewManager(session.Dependencies{
		Registry:      session.NewRegistry(),
		Store:         store,
		NewDownloader: app.newDownloader,
		ExtractLinks:  parser.ExtractLinks,
		Runner:        app.coordinator,
		Publisher:     publisher,
		IDs:           ids,
		Clock:         system.New(),
		Logger:        logger,
		RobotsAgent:   cfg.Crawler.RobotsAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("session manager init failed: %w", err)
	}

	app.apiServer = api.NewServer(manager, store, ids, logger)
	return app, nil
}

func (a *App) newDownloader() (crawler.Downloader, error) {
	f, err := collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Crawler.UserAgent,
		Timeout:   a.cfg.Crawler.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("colly fetcher init failed: %w", err)
	}
	return f, nil
}

func (a *App) setupPublisher(ctx context.Context) (session.Publisher, error) {
	switch a.cfg.Notify.Provider {
	case config.NotifyPubSub:
		pub, err := gcppublisher.New(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.TopicID)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		a.pubsubPublisher = pub
		a.logger.Info("Pub/Sub publisher initialized",
			zap.String("project", a.cfg.Notify.ProjectID),
			zap.String("topic", a.cfg.Notify.TopicID),
		)
		return pub, nil
	case config.NotifyMemory:
		a.logger.Info("using in-memory session report publisher")
		return memorypublisher.New(memoryReportLimit), nil
	default:
		a.logger.Info("session reports are not published")
		return noppublisher.New(), nil
	}
}

// Handler exposes the HTTP API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Shutdown triggers the same sequence as a termination signal.
func (a *App) Shutdown() {
	a.coordinator.Trigger()
}

// Run listens on the configured port and blocks until shutdown completes.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve handles requests on ln until SIGINT, SIGTERM, SIGQUIT, ctx
// cancellation or Shutdown. The listener stops first; crawl sessions then
// get up to crawler.drain_timeout to finish.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	stop := a.coordinator.TriggerOnSignal(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: a.cfg.Server.ReadHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			a.coordinator.Trigger()
		}
	}()

	<-a.coordinator.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), a.cfg.Crawler.DrainTimeout)
	defer cancelDrain()
	if err := a.coordinator.Wait(drainCtx); err != nil {
		a.logger.Warn("crawl sessions did not drain in time", zap.Error(err))
	}

	closeErr := a.Close()
	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return closeErr
	}
}

// Close releases external clients and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if a.pubsubPublisher != nil {
		if err := a.pubsubPublisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	a.logger.Info("shutdown complete")
	if err := logging.Sync(a.logger); err != nil && !isSyncNoise(err) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// isSyncNoise filters the error zap returns when syncing a terminal.
func isSyncNoise(err error) bool {
	return errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL)
}
