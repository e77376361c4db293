package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NestLink/entity"
	"NestLink/internal/channel"
	"NestLink/internal/config"
	"NestLink/internal/gateway"
	"NestLink/internal/inbox"
	"NestLink/internal/lib/sl"
	"NestLink/internal/lib/token"
	"NestLink/internal/ws"
)

// Session binds the delivery core together for one logged-in user: the
// notification channel, the reconciler, the read tracker, the inbox poll
// and the set of per-conversation channel clients.
type Session struct {
	conf   *config.Config
	log    *slog.Logger
	claims *entity.SessionClaims

	gw        *gateway.Client
	hub       *ws.Hub
	rec       *inbox.Reconciler
	tracker   *inbox.ReadTracker
	refresher *inbox.Refresher
	notify    *channel.Notifications

	cancel context.CancelFunc

	mu    sync.Mutex
	chats map[string]*channel.Conversation
}

func New(conf *config.Config, logger *slog.Logger, claims *entity.SessionClaims, gw *gateway.Client, hub *ws.Hub) *Session {
	log := logger.With(sl.Module("session"))

	s := &Session{
		conf:   conf,
		log:    log,
		claims: claims,
		gw:     gw,
		hub:    hub,
		chats:  make(map[string]*channel.Conversation),
	}

	s.rec = inbox.NewReconciler(claims.UserID, logger)
	s.rec.SetOnChange(s.onChange)
	s.tracker = inbox.NewReadTracker(
		gw,
		claims.UserID,
		time.Duration(conf.Chat.DebounceMs)*time.Millisecond,
		logger,
	)
	s.refresher = inbox.NewRefresher(
		gw,
		s.rec,
		time.Duration(conf.Chat.RefreshSec)*time.Second,
		logger,
	)
	s.notify = channel.NewNotifications(
		conf.Backend.WsURL,
		conf.Backend.Token,
		time.Duration(conf.Chat.ReconnectSec)*time.Second,
		logger,
	)
	s.notify.OnEvent(s.rec.ApplyEvent)

	return s
}

// Start launches the reconciler loop, seeds it from the backend, and brings
// up the notification channel and the inbox poll. A failed initial load is
// not fatal: the poll and the push channel converge on the same state.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.rec.Run(ctx)

	if err := s.refresher.RefreshNow(ctx); err != nil {
		s.log.Warn("initial inbox load failed", sl.Err(err))
	}
	go s.refresher.Run(ctx)
	go s.notify.Run(ctx)

	s.log.With(
		slog.String("user", s.claims.UserID),
	).Info("session started")
}

// Stop tears the whole session down: every conversation channel, then the
// loops through context cancellation.
func (s *Session) Stop() {
	s.mu.Lock()
	for _, conv := range s.chats {
		conv.Close()
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("session stopped")
}

// onChange fans reconciler changes out to the read tracker and the UI hub.
func (s *Session) onChange(ch inbox.Change) {
	s.tracker.Observe(ch)
	if ch.Message != nil {
		s.hub.BroadcastMessage(*ch.Message)
	}
	s.hub.BroadcastInbox(ch.Summary)
}

// OpenConversation resolves the conversation with the backend (creating it
// on first contact for the property), pulls its history, opens the chat
// channel and marks the conversation read. A channel that fails to open
// leaves the conversation usable: sends queue until a later reopen.
func (s *Session) OpenConversation(ctx context.Context, chatID, propertyID string) (*entity.History, error) {
	history, err := s.gw.FetchHistory(ctx, chatID, propertyID)
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	chatID = history.ChatID

	s.mu.Lock()
	conv, ok := s.chats[chatID]
	if !ok {
		conv = channel.NewConversation(
			s.conf.Backend.WsURL,
			s.conf.Backend.Token,
			chatID,
			propertyID,
			s.claims.UserID,
			s.log,
		)
		conv.OnMessage(s.rec.ApplyEvent)
		conv.OnState(func(state entity.ChannelState) {
			s.hub.BroadcastChannelState(chatID, state, conv.Pending())
		})
		s.chats[chatID] = conv
	}
	s.mu.Unlock()

	if err := conv.Open(ctx); err != nil {
		s.log.Warn("chat channel unavailable",
			slog.String("chat_id", chatID),
			sl.Err(err),
		)
	}

	s.rec.MarkOpened(chatID)
	return history, nil
}

// CloseConversation tears down the per-chat channel only; the notification
// channel keeps running for the rest of the session. The client instance is
// kept so a reopen still flushes anything queued.
func (s *Session) CloseConversation(chatID string) {
	s.mu.Lock()
	conv, ok := s.chats[chatID]
	s.mu.Unlock()
	if ok {
		conv.Close()
	}

	s.rec.MarkClosed(chatID)
	s.tracker.Cancel(chatID)
}

// Send authors a message in an established conversation. The channel
// transmits (or queues) it for realtime delivery while the gateway persists
// it; neither path is ordered relative to the other.
func (s *Session) Send(chatID, text string) (entity.Message, error) {
	s.mu.Lock()
	conv, ok := s.chats[chatID]
	s.mu.Unlock()
	if !ok {
		return entity.Message{}, fmt.Errorf("no conversation %s", chatID)
	}

	msg := conv.Send(text)
	s.rec.ApplyEvent(msg)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.gw.SendMessage(ctx, chatID, text); err != nil {
			s.log.Warn("persist message failed",
				slog.String("chat_id", chatID),
				sl.Err(err),
			)
		}
	}()

	return msg, nil
}

// Inbox returns the current conversation-summary snapshot.
func (s *Session) Inbox() []entity.ConversationSummary {
	return s.rec.Summaries()
}

// HandleMarkRead implements the UI hub's mark_read event: reset locally,
// acknowledge with the backend in the background.
func (s *Session) HandleMarkRead(chatID string) error {
	s.rec.MarkRead(chatID)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.gw.MarkRead(ctx, chatID); err != nil {
			s.log.Warn("mark read failed",
				slog.String("chat_id", chatID),
				sl.Err(err),
			)
		}
	}()
	return nil
}

// ValidateToken implements ws.Authenticator for UI hub upgrades. Any token
// carrying the session user's identity is accepted.
func (s *Session) ValidateToken(raw string) (string, error) {
	claims, err := token.ParseSession(raw)
	if err != nil {
		return "", err
	}
	if claims.UserID != s.claims.UserID {
		return "", fmt.Errorf("token does not belong to this session")
	}
	return claims.UserID, nil
}
