package inbox

import (
	"context"
	"log/slog"
	"time"

	"NestLink/entity"
	"NestLink/internal/lib/sl"
)

// Change describes one mutation of the inbox state. Message is set when the
// change was caused by a delivered message event; Open reports whether that
// conversation was open in the UI at the time.
type Change struct {
	Summary entity.ConversationSummary
	Message *entity.Message
	Open    bool
}

// Reconciler owns the authoritative view of every conversation summary.
// All state lives inside its Run loop; both realtime channels, the REST
// refresh and the UI feed mutations through channels, so no two merges ever
// run concurrently.
type Reconciler struct {
	selfID string
	log    *slog.Logger

	events   chan entity.Message
	seeds    chan []entity.ConversationSummary
	opened   chan string
	closed   chan string
	acks     chan string
	queries  chan chan []entity.ConversationSummary
	onChange func(Change)

	summaries map[string]*entity.ConversationSummary
	seen      map[string]struct{}
	open      map[string]bool
}

// NewReconciler builds a reconciler for the given session user. selfID is
// used to keep the user's own messages out of unread counts.
func NewReconciler(selfID string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		selfID:    selfID,
		log:       logger.With(sl.Module("inbox.reconciler")),
		events:    make(chan entity.Message, 256),
		seeds:     make(chan []entity.ConversationSummary, 4),
		opened:    make(chan string),
		closed:    make(chan string),
		acks:      make(chan string),
		queries:   make(chan chan []entity.ConversationSummary),
		summaries: make(map[string]*entity.ConversationSummary),
		seen:      make(map[string]struct{}),
		open:      make(map[string]bool),
	}
}

// SetOnChange sets the observer notified after every merge. Called before
// Run; the session fans changes out to the UI hub and the read tracker.
func (r *Reconciler) SetOnChange(fn func(Change)) {
	r.onChange = fn
}

// Run starts the merge loop. Should be called in a goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-r.events:
			r.merge(msg)

		case list := <-r.seeds:
			r.reseed(list)

		case chatID := <-r.opened:
			r.markOpened(chatID)

		case chatID := <-r.closed:
			r.open[chatID] = false

		case chatID := <-r.acks:
			r.ack(chatID)

		case reply := <-r.queries:
			list := make([]entity.ConversationSummary, 0, len(r.summaries))
			for _, s := range r.summaries {
				list = append(list, *s)
			}
			reply <- list
		}
	}
}

// ApplyEvent feeds one message event from either delivery path into the
// merge loop. Events are processed in arrival order, never reordered by
// timestamp.
func (r *Reconciler) ApplyEvent(msg entity.Message) {
	r.events <- msg
}

// Seed merges a REST-fetched summary list. REST is the source of truth that
// live events only augment, so both the initial load and every periodic
// refresh land here.
func (r *Reconciler) Seed(list []entity.ConversationSummary) {
	r.seeds <- list
}

// MarkOpened records that the conversation is now on screen and resets its
// unread count to exactly zero.
func (r *Reconciler) MarkOpened(chatID string) {
	r.opened <- chatID
}

// MarkClosed records that the conversation left the screen.
func (r *Reconciler) MarkClosed(chatID string) {
	r.closed <- chatID
}

// MarkRead resets a conversation's unread count without claiming it is on
// screen. Used when the UI acknowledges a conversation from the inbox list.
func (r *Reconciler) MarkRead(chatID string) {
	r.acks <- chatID
}

// Summaries returns a snapshot of every conversation summary.
func (r *Reconciler) Summaries() []entity.ConversationSummary {
	reply := make(chan []entity.ConversationSummary, 1)
	r.queries <- reply
	return <-reply
}

func (r *Reconciler) merge(msg entity.Message) {
	key := msg.IdentityKey()
	if _, dup := r.seen[key]; dup {
		// Both channels delivered the same message; the first arrival
		// already counted.
		r.log.Debug("duplicate event dropped", slog.String("identity", key))
		return
	}
	r.seen[key] = struct{}{}

	isOpen := r.open[msg.ChatID]
	fromSelf := msg.Sender == r.selfID

	s, ok := r.summaries[msg.ChatID]
	if !ok {
		s = &entity.ConversationSummary{
			ChatID:     msg.ChatID,
			PropertyID: msg.PropertyID,
		}
		r.summaries[msg.ChatID] = s
	}

	m := msg
	s.LastMessage = &m
	s.UpdatedAt = time.Now().UnixMilli()
	if !isOpen && !fromSelf {
		s.UnreadCount++
	}

	r.emit(Change{Summary: *s, Message: &m, Open: isOpen})
}

func (r *Reconciler) reseed(list []entity.ConversationSummary) {
	for i := range list {
		remote := list[i]
		if remote.ChatID == "" {
			continue
		}

		s, ok := r.summaries[remote.ChatID]
		if !ok {
			adopted := remote
			if r.open[remote.ChatID] {
				adopted.UnreadCount = 0
			}
			adopted.UpdatedAt = time.Now().UnixMilli()
			r.summaries[remote.ChatID] = &adopted
			r.emit(Change{Summary: adopted, Open: r.open[remote.ChatID]})
			continue
		}

		changed := false
		if remote.PropertyID != "" && s.PropertyID != remote.PropertyID {
			s.PropertyID = remote.PropertyID
			changed = true
		}
		if remote.OwnerID != "" && s.OwnerID != remote.OwnerID {
			s.OwnerID = remote.OwnerID
			changed = true
		}
		if remote.Peer != "" && s.Peer != remote.Peer {
			s.Peer = remote.Peer
			changed = true
		}
		if remote.LastMessage != nil &&
			(s.LastMessage == nil || remote.LastMessage.Timestamp > s.LastMessage.Timestamp) {
			s.LastMessage = remote.LastMessage
			r.seen[remote.LastMessage.IdentityKey()] = struct{}{}
			changed = true
		}
		// Unread never moves backwards on a refresh: a push the poll has
		// not indexed yet must not be uncounted. Open conversations stay
		// at zero regardless.
		switch {
		case r.open[s.ChatID]:
			if s.UnreadCount != 0 {
				s.UnreadCount = 0
				changed = true
			}
		case remote.UnreadCount > s.UnreadCount:
			s.UnreadCount = remote.UnreadCount
			changed = true
		}

		if changed {
			s.UpdatedAt = time.Now().UnixMilli()
			r.emit(Change{Summary: *s, Open: r.open[s.ChatID]})
		}
	}
}

func (r *Reconciler) ack(chatID string) {
	s, ok := r.summaries[chatID]
	if !ok || s.UnreadCount == 0 {
		return
	}
	s.UnreadCount = 0
	s.UpdatedAt = time.Now().UnixMilli()
	r.emit(Change{Summary: *s, Open: r.open[chatID]})
}

func (r *Reconciler) markOpened(chatID string) {
	r.open[chatID] = true
	s, ok := r.summaries[chatID]
	if !ok {
		s = &entity.ConversationSummary{ChatID: chatID}
		r.summaries[chatID] = s
	}
	s.UnreadCount = 0
	s.UpdatedAt = time.Now().UnixMilli()
	r.emit(Change{Summary: *s, Open: true})
}

func (r *Reconciler) emit(ch Change) {
	if r.onChange == nil {
		return
	}
	// Called inside the loop so observers see changes in merge order.
	// Observers must not block; slow work belongs behind their own queues.
	r.onChange(ch)
}
