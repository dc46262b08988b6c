package crawler

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/domain-crawler/internal/metrics"
)

// Download outcomes reported to metrics.
const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeCanceled = "canceled"
)

// fetchTask downloads one accepted URL and emits every link found on it.
// It never spawns other tasks.
type fetchTask struct {
	target     *url.URL
	domain     *url.URL
	downloader Downloader
	extract    LinkExtractor
	out        *Input[*url.URL]
	logger     *zap.Logger
}

// run closes out on return. Cancellation is checked before and after the
// download and on every send.
func (t *fetchTask) run(ctx context.Context) {
	defer t.out.Close(ctx)

	if ctx.Err() != nil {
		return
	}
	body, err := t.downloader.Download(ctx, t.target)
	if ctx.Err() != nil {
		metrics.ObservePage(t.target.Host, outcomeCanceled, 0)
		return
	}
	if err != nil {
		metrics.ObservePage(t.target.Host, outcomeFailure, 0)
		t.logger.Warn("download failed", zap.Error(err))
		return
	}
	metrics.ObservePage(t.target.Host, outcomeSuccess, len(body))

	for _, href := range t.extract(body) {
		link, err := resolveLink(t.domain, href)
		if err != nil {
			t.logger.Warn("dropping malformed link", zap.String("href", href), zap.Error(err))
			continue
		}
		if err := t.out.Send(ctx, link); err != nil {
			return
		}
	}
}
