package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"NestLink/entity"
	"NestLink/internal/lib/sl"
)

// Notifications is the session-wide channel. It delivers an event for every
// message in every conversation the user participates in, whether or not
// that conversation is open, and stays up for the whole session: closing a
// conversation never touches it. Unlike a conversation channel it redials
// itself, since nobody else owns its lifecycle.
type Notifications struct {
	wsUrl     string
	token     string
	reconnect time.Duration
	dialer    *websocket.Dialer
	log       *slog.Logger

	onEvent func(entity.Message)
}

func NewNotifications(wsUrl, token string, reconnect time.Duration, logger *slog.Logger) *Notifications {
	return &Notifications{
		wsUrl:     wsUrl,
		token:     token,
		reconnect: reconnect,
		dialer:    websocket.DefaultDialer,
		log:       logger.With(sl.Module("channel.notifications")),
	}
}

// OnEvent sets the delivery callback for inbox-wide message events.
func (n *Notifications) OnEvent(fn func(entity.Message)) {
	n.onEvent = fn
}

// Run dials the notification channel and keeps it alive until the session
// context is cancelled. Connection loss costs at most one reconnect interval
// of push delivery; the periodic inbox refresh covers the gap.
func (n *Notifications) Run(ctx context.Context) {
	endpoint := fmt.Sprintf("%s/ws/notifications?token=%s", n.wsUrl, url.QueryEscape(n.token))

	for {
		if err := n.serve(ctx, endpoint); err != nil {
			n.log.Warn("notification channel down", sl.Err(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(n.reconnect):
		}
	}
}

func (n *Notifications) serve(ctx context.Context, endpoint string) error {
	conn, _, err := n.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	n.log.Info("notification channel open")

	done := make(chan struct{})
	defer close(done)
	go n.keepAlive(conn, done)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		msg := parseFrame(raw, "", "")
		if msg.ChatID == "" {
			// A degraded frame on this channel cannot be routed to a
			// conversation; there is nothing useful to deliver.
			n.log.Warn("unroutable notification frame", slog.Int("size", len(raw)))
			continue
		}
		if n.onEvent != nil {
			n.onEvent(msg)
		}
	}
}

func (n *Notifications) keepAlive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
