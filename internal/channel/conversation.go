package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"NestLink/entity"
	"NestLink/internal/lib/sl"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

// Conversation is the realtime client for one open chat. It owns its
// connection and pending queue; nothing is shared across conversations.
// It never reconnects on its own — the caller reopens it when the
// conversation is reopened.
type Conversation struct {
	wsUrl      string
	token      string
	chatID     string
	propertyID string
	sender     string
	dialer     *websocket.Dialer
	log        *slog.Logger

	onMessage func(entity.Message)
	onState   func(entity.ChannelState)

	mu    sync.Mutex
	state entity.ChannelState
	conn  *websocket.Conn
	queue *PendingQueue
	send  chan []byte
	done  chan struct{}
}

// NewConversation builds a client for the chat-scoped channel. sender is the
// session user's identity, stamped onto every outgoing frame.
func NewConversation(wsUrl, token, chatID, propertyID, sender string, logger *slog.Logger) *Conversation {
	return &Conversation{
		wsUrl:      wsUrl,
		token:      token,
		chatID:     chatID,
		propertyID: propertyID,
		sender:     sender,
		dialer:     websocket.DefaultDialer,
		log: logger.With(
			sl.Module("channel.conversation"),
			slog.String("chat_id", chatID),
		),
		state: entity.ChannelClosed,
		queue: NewPendingQueue(),
	}
}

// OnMessage sets the delivery callback for incoming frames.
func (c *Conversation) OnMessage(fn func(entity.Message)) {
	c.onMessage = fn
}

// OnState sets the callback observing channel state transitions.
func (c *Conversation) OnState(fn func(entity.ChannelState)) {
	c.onState = fn
}

func (c *Conversation) State() entity.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) Pending() int {
	return c.queue.Len()
}

// Open dials the chat channel. On success the pending queue is drained in
// FIFO order before any later send. Failure leaves the client Closed and is
// reported to the caller, not treated as fatal.
func (c *Conversation) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state == entity.ChannelOpen || c.state == entity.ChannelConnecting {
		c.mu.Unlock()
		return nil
	}
	c.setState(entity.ChannelConnecting)
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/ws/chats/%s?property_id=%s&token=%s",
		c.wsUrl, c.chatID, url.QueryEscape(c.propertyID), url.QueryEscape(c.token))

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		c.mu.Lock()
		c.setState(entity.ChannelClosed)
		c.mu.Unlock()
		c.log.Warn("channel open failed", sl.Err(err))
		return fmt.Errorf("open chat channel: %w", err)
	}

	c.mu.Lock()
	if c.state != entity.ChannelConnecting {
		// Closed while dialing; the queue stays for the next open.
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("open chat channel: closed while connecting")
	}
	c.conn = conn
	c.send = make(chan []byte, 256)
	c.done = make(chan struct{})

	go c.writePump(conn, c.send, c.done)
	go c.readPump(conn)

	// Queued messages go out first, in original order, exactly once.
	for _, msg := range c.queue.Drain() {
		c.send <- marshalFrame(msg)
	}
	c.setState(entity.ChannelOpen)
	c.mu.Unlock()

	c.log.Info("channel open")
	return nil
}

// Send transmits text immediately when the channel is open, otherwise queues
// it for the next open. The locally created message is returned so the
// caller can reflect it right away.
func (c *Conversation) Send(text string) entity.Message {
	msg := entity.Message{
		ID:         uuid.NewString(),
		ChatID:     c.chatID,
		PropertyID: c.propertyID,
		Sender:     c.sender,
		Text:       text,
		Timestamp:  time.Now().UnixMilli(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != entity.ChannelOpen {
		c.queue.Push(msg)
		return msg
	}

	select {
	case c.send <- marshalFrame(msg):
	default:
		// Write buffer saturated: treat like a not-open channel.
		c.queue.Push(msg)
	}
	return msg
}

// Close releases the connection. The pending queue is kept so that a later
// reopen still flushes unsent messages.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conversation) closeLocked() {
	if c.state == entity.ChannelClosed {
		return
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
		c.conn = nil
	}
	c.setState(entity.ChannelClosed)
	c.log.Info("channel closed")
}

func (c *Conversation) setState(state entity.ChannelState) {
	c.state = state
	if c.onState != nil {
		go c.onState(state)
	}
}

func (c *Conversation) readPump(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.closeLocked()
		}
		c.mu.Unlock()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg := parseFrame(raw, c.chatID, c.propertyID)
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

func (c *Conversation) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

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
