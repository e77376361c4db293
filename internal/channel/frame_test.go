package channel

import (
	"testing"
	"time"

	"NestLink/entity"
)

func TestParseFrameStructured(t *testing.T) {
	raw := []byte(`{"id":"m1","sender":"buyer@example.com","text":"hello","timestamp":1700000000123,"chat_id":"c1","property_id":"p1"}`)

	msg := parseFrame(raw, "fallback-chat", "fallback-prop")

	if msg.ID != "m1" || msg.Sender != "buyer@example.com" || msg.Text != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.ChatID != "c1" || msg.PropertyID != "p1" {
		t.Fatalf("payload ids not honored: %+v", msg)
	}
	if msg.Timestamp != 1700000000123 {
		t.Fatalf("timestamp not honored: %d", msg.Timestamp)
	}
	if msg.Read {
		t.Fatal("incoming message must start unread")
	}
}

func TestParseFrameFillsChannelScope(t *testing.T) {
	raw := []byte(`{"sender":"buyer","text":"hi","timestamp":5}`)

	msg := parseFrame(raw, "c9", "p9")
	if msg.ChatID != "c9" || msg.PropertyID != "p9" {
		t.Fatalf("channel scope not applied: %+v", msg)
	}
}

func TestParseFrameMalformedDegrades(t *testing.T) {
	before := time.Now().UnixMilli()
	raw := []byte("definitely not a structured event")

	msg := parseFrame(raw, "c1", "p1")

	if msg.Sender != entity.UnknownSender {
		t.Fatalf("expected sender %q, got %q", entity.UnknownSender, msg.Sender)
	}
	if msg.Text != string(raw) {
		t.Fatalf("raw payload not preserved: %q", msg.Text)
	}
	if msg.Read {
		t.Fatal("degraded message must start unread")
	}
	if msg.Timestamp < before || msg.Timestamp > time.Now().UnixMilli() {
		t.Fatalf("degraded timestamp not stamped at receipt: %d", msg.Timestamp)
	}
}

func TestParseFrameMissingSenderDegrades(t *testing.T) {
	raw := []byte(`{"text":"anonymous"}`)

	msg := parseFrame(raw, "c1", "")
	if msg.Sender != entity.UnknownSender {
		t.Fatalf("expected degraded sender, got %q", msg.Sender)
	}
	if msg.Text != string(raw) {
		t.Fatalf("expected raw payload, got %q", msg.Text)
	}
}
