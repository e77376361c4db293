package inbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"NestLink/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// changeLog collects reconciler changes for assertions.
type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (c *changeLog) record(ch Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, ch)
}

func (c *changeLog) list() []Change {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Change(nil), c.changes...)
}

func startReconciler(t *testing.T, selfID string) (*Reconciler, *changeLog) {
	t.Helper()
	rec := NewReconciler(selfID, testLogger())
	log := &changeLog{}
	rec.SetOnChange(log.record)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go rec.Run(ctx)
	return rec, log
}

func summaryFor(t *testing.T, rec *Reconciler, chatID string) entity.ConversationSummary {
	t.Helper()
	for _, s := range rec.Summaries() {
		if s.ChatID == chatID {
			return s
		}
	}
	t.Fatalf("no summary for %s", chatID)
	return entity.ConversationSummary{}
}

func event(chatID, sender, text string, ts int64) entity.Message {
	return entity.Message{
		ChatID:    chatID,
		Sender:    sender,
		Text:      text,
		Timestamp: ts,
	}
}

func TestUnknownChatCreatesSummary(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	msg := event("c1", "buyer", "hello", 100)
	msg.PropertyID = "p1"
	rec.ApplyEvent(msg)

	s := summaryFor(t, rec, "c1")
	if s.UnreadCount != 1 {
		t.Fatalf("expected unread 1, got %d", s.UnreadCount)
	}
	if s.LastMessage == nil || s.LastMessage.Text != "hello" {
		t.Fatalf("last message not set: %+v", s.LastMessage)
	}
	if s.PropertyID != "p1" {
		t.Fatalf("property not carried: %+v", s)
	}
}

func TestUnreadCountsEveryDistinctEvent(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	for i := 0; i < 7; i++ {
		rec.ApplyEvent(event("c1", "buyer", fmt.Sprintf("m%d", i), int64(i)))
	}

	s := summaryFor(t, rec, "c1")
	if s.UnreadCount != 7 {
		t.Fatalf("expected unread 7, got %d", s.UnreadCount)
	}
	if s.LastMessage.Text != "m6" {
		t.Fatalf("last message must follow arrival order, got %q", s.LastMessage.Text)
	}
}

func TestMarkOpenedResetsToZero(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	for i := 0; i < 4; i++ {
		rec.ApplyEvent(event("c1", "buyer", "m", int64(i)))
	}
	rec.MarkOpened("c1")

	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 0 {
		t.Fatalf("expected unread 0 after open, got %d", s.UnreadCount)
	}
}

func TestOpenConversationDoesNotAccumulateUnread(t *testing.T) {
	rec, log := startReconciler(t, "me")

	rec.MarkOpened("c1")
	rec.ApplyEvent(event("c1", "buyer", "while open", 1))

	s := summaryFor(t, rec, "c1")
	if s.UnreadCount != 0 {
		t.Fatalf("open conversation must stay at 0, got %d", s.UnreadCount)
	}
	if s.LastMessage == nil || s.LastMessage.Text != "while open" {
		t.Fatal("message must still be appended while open")
	}

	var sawOpenDelivery bool
	for _, ch := range log.list() {
		if ch.Message != nil && ch.Open {
			sawOpenDelivery = true
		}
	}
	if !sawOpenDelivery {
		t.Fatal("change feed never reported an open-conversation delivery")
	}
}

func TestClosedConversationCountsAgain(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	rec.MarkOpened("c1")
	rec.MarkClosed("c1")
	rec.ApplyEvent(event("c1", "buyer", "after close", 1))

	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 1 {
		t.Fatalf("expected unread 1 after close, got %d", s.UnreadCount)
	}
}

func TestDuplicateDeliveryCountsOnce(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	// Same message arriving on the chat channel and the notification
	// channel: identical transport id.
	withID := event("c1", "buyer", "hi", 50)
	withID.ID = "m-1"
	rec.ApplyEvent(withID)
	rec.ApplyEvent(withID)

	// And an id-less pair deduplicated by chat+sender+timestamp.
	noID := event("c1", "buyer", "hi again", 60)
	rec.ApplyEvent(noID)
	rec.ApplyEvent(noID)

	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 2 {
		t.Fatalf("duplicates double-counted: unread %d", s.UnreadCount)
	}
}

func TestOwnMessagesNeverUnread(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	rec.ApplyEvent(event("c1", "me", "my own", 1))
	s := summaryFor(t, rec, "c1")
	if s.UnreadCount != 0 {
		t.Fatalf("own message counted as unread: %d", s.UnreadCount)
	}
	if s.LastMessage == nil || s.LastMessage.Text != "my own" {
		t.Fatal("own message must still become last_message")
	}
}

func TestSeedAdoptsAndNeverDecreases(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	rec.Seed([]entity.ConversationSummary{
		{ChatID: "c1", PropertyID: "p1", OwnerID: "me", Peer: "buyer", UnreadCount: 3},
	})

	s := summaryFor(t, rec, "c1")
	if s.UnreadCount != 3 || s.OwnerID != "me" {
		t.Fatalf("seed not adopted: %+v", s)
	}

	// Push beats the poll: a later stale refresh must not uncount it.
	rec.ApplyEvent(event("c1", "buyer", "fresh push", 99))
	rec.Seed([]entity.ConversationSummary{
		{ChatID: "c1", PropertyID: "p1", OwnerID: "me", Peer: "buyer", UnreadCount: 2},
	})

	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 4 {
		t.Fatalf("refresh decreased unread: got %d want 4", s.UnreadCount)
	}
}

func TestSeedKeepsOpenConversationAtZero(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	rec.MarkOpened("c1")
	rec.Seed([]entity.ConversationSummary{
		{ChatID: "c1", UnreadCount: 5},
	})

	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 0 {
		t.Fatalf("seed resurrected unread on an open conversation: %d", s.UnreadCount)
	}
}

func TestMarkReadResetsWithoutOpening(t *testing.T) {
	rec, _ := startReconciler(t, "me")

	rec.ApplyEvent(event("c1", "buyer", "a", 1))
	rec.MarkRead("c1")
	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 0 {
		t.Fatalf("ack did not reset unread: %d", s.UnreadCount)
	}

	// The conversation was never opened, so new arrivals count again.
	rec.ApplyEvent(event("c1", "buyer", "b", 2))
	if s := summaryFor(t, rec, "c1"); s.UnreadCount != 1 {
		t.Fatalf("expected unread 1 after ack, got %d", s.UnreadCount)
	}
}
