package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NestLink/entity"
	"NestLink/internal/lib/sl"
)

// InboxFetcher is the slice of the gateway the refresher needs.
type InboxFetcher interface {
	FetchInbox(ctx context.Context) ([]entity.ConversationSummary, error)
}

// Refresher polls the backend inbox list into the reconciler. It is the
// belt to the notification channel's suspenders: either may be the only
// delivery path working, and both feed the same idempotent merge.
type Refresher struct {
	gw       InboxFetcher
	rec      *Reconciler
	interval time.Duration
	log      *slog.Logger
}

func NewRefresher(gw InboxFetcher, rec *Reconciler, interval time.Duration, logger *slog.Logger) *Refresher {
	return &Refresher{
		gw:       gw,
		rec:      rec,
		interval: interval,
		log:      logger.With(sl.Module("inbox.refresher")),
	}
}

// RefreshNow fetches the inbox list once and seeds the reconciler. Used for
// the initial load and by every poll tick.
func (f *Refresher) RefreshNow(ctx context.Context) error {
	list, err := f.gw.FetchInbox(ctx)
	if err != nil {
		return fmt.Errorf("refresh inbox: %w", err)
	}
	f.rec.Seed(list)
	f.log.Debug("inbox refreshed", slog.Int("conversations", len(list)))
	return nil
}

// Run polls until the session context is cancelled. A failed poll is logged
// and skipped; the next tick or a push event covers for it.
func (f *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.RefreshNow(ctx); err != nil {
				f.log.Warn("inbox poll failed", sl.Err(err))
			}
		}
	}
}
