package inbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"NestLink/internal/lib/sl"
)

// MarkReader is the slice of the gateway the read tracker needs.
type MarkReader interface {
	MarkRead(ctx context.Context, chatID string) error
}

const markReadTimeout = 10 * time.Second

// ReadTracker turns bursts of messages arriving in an open conversation
// into a single mark-read call against the backend. The call fires only
// after the debounce window passes with no further arrivals, and only when
// the session user is the property owner reading buyer messages.
type ReadTracker struct {
	gw     MarkReader
	selfID string
	window time.Duration
	log    *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewReadTracker(gw MarkReader, selfID string, window time.Duration, logger *slog.Logger) *ReadTracker {
	return &ReadTracker{
		gw:     gw,
		selfID: selfID,
		window: window,
		log:    logger.With(sl.Module("inbox.readtracker")),
		timers: make(map[string]*time.Timer),
	}
}

// Observe is the reconciler change hook. Every qualifying arrival pushes
// the conversation's quiescence deadline out by the full window.
func (t *ReadTracker) Observe(ch Change) {
	if ch.Message == nil || !ch.Open {
		return
	}
	if ch.Summary.OwnerID != t.selfID {
		return
	}
	if ch.Message.Sender == t.selfID {
		return
	}

	chatID := ch.Summary.ChatID

	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[chatID]; ok {
		timer.Stop()
	}
	t.timers[chatID] = time.AfterFunc(t.window, func() {
		t.fire(chatID)
	})
}

// Cancel drops any pending mark-read for a conversation that just closed.
func (t *ReadTracker) Cancel(chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[chatID]; ok {
		timer.Stop()
		delete(t.timers, chatID)
	}
}

func (t *ReadTracker) fire(chatID string) {
	t.mu.Lock()
	delete(t.timers, chatID)
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), markReadTimeout)
	defer cancel()

	if err := t.gw.MarkRead(ctx, chatID); err != nil {
		// Not retried here; the next burst of arrivals is the retry.
		t.log.Warn("mark read failed",
			slog.String("chat_id", chatID),
			sl.Err(err),
		)
		return
	}
	t.log.Debug("marked read", slog.String("chat_id", chatID))
}
