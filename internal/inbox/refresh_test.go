package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"NestLink/entity"
)

type fakeFetcher struct {
	list []entity.ConversationSummary
	err  error
}

func (f *fakeFetcher) FetchInbox(_ context.Context) ([]entity.ConversationSummary, error) {
	return f.list, f.err
}

func TestRefreshNowSeedsReconciler(t *testing.T) {
	rec, _ := startReconciler(t, "me")
	gw := &fakeFetcher{list: []entity.ConversationSummary{
		{ChatID: "c1", UnreadCount: 2},
		{ChatID: "c2", UnreadCount: 0},
	}}

	f := NewRefresher(gw, rec, time.Minute, testLogger())
	if err := f.RefreshNow(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := len(rec.Summaries()); got != 2 {
		t.Fatalf("expected 2 summaries, got %d", got)
	}
	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 2 {
		t.Fatalf("seeded unread lost: %d", s.UnreadCount)
	}
}

func TestRefreshNowSurfacesFailure(t *testing.T) {
	rec, _ := startReconciler(t, "me")
	gw := &fakeFetcher{err: errors.New("backend down")}

	f := NewRefresher(gw, rec, time.Minute, testLogger())
	if err := f.RefreshNow(context.Background()); err == nil {
		t.Fatal("expected error from failed fetch")
	}
	if got := len(rec.Summaries()); got != 0 {
		t.Fatalf("failed refresh mutated state: %d summaries", got)
	}
}
