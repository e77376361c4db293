package channel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"NestLink/entity"
)

func TestNotificationsDeliverAndSkipUnroutable(t *testing.T) {
	frames := []string{
		`{"sender":"buyer","text":"one","timestamp":1,"chat_id":"c1","property_id":"p1"}`,
		`not an event at all`,
		`{"sender":"buyer","text":"two","timestamp":2,"chat_id":"c2","property_id":"p2"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	n := NewNotifications("ws"+strings.TrimPrefix(srv.URL, "http"), "tok", 50*time.Millisecond, testLogger())

	got := make(chan entity.Message, 8)
	n.OnEvent(func(m entity.Message) { got <- m })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	first := waitMessage(t, got)
	if first.ChatID != "c1" || first.Text != "one" {
		t.Fatalf("unexpected first event: %+v", first)
	}

	second := waitMessage(t, got)
	if second.ChatID != "c2" || second.Text != "two" {
		t.Fatalf("unroutable frame not skipped, got: %+v", second)
	}
}

func TestNotificationsReconnect(t *testing.T) {
	var connCount int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		n := atomic.AddInt32(&connCount, 1)
		if n == 1 {
			// First connection dies immediately; the client must redial.
			conn.Close()
			return
		}
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"sender":"buyer","text":"after reconnect","timestamp":9,"chat_id":"c7"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	n := NewNotifications("ws"+strings.TrimPrefix(srv.URL, "http"), "tok", 20*time.Millisecond, testLogger())

	got := make(chan entity.Message, 8)
	n.OnEvent(func(m entity.Message) { got <- m })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	msg := waitMessage(t, got)
	if msg.Text != "after reconnect" || msg.ChatID != "c7" {
		t.Fatalf("unexpected event after reconnect: %+v", msg)
	}
	if atomic.LoadInt32(&connCount) < 2 {
		t.Fatalf("expected a redial, saw %d connections", connCount)
	}
}

func waitMessage(t *testing.T, ch chan entity.Message) entity.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return entity.Message{}
}
