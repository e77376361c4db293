package entity

import "fmt"

// UnknownSender is assigned to messages recovered from frames that could
// not be parsed as structured payloads.
const UnknownSender = "Unknown"

// Message represents a single chat message between a buyer and a property
// owner. Messages are immutable once created; only the Read flag may change,
// and only from false to true.
type Message struct {
	ID         string `json:"id,omitempty"`
	ChatID     string `json:"chat_id"`
	PropertyID string `json:"property_id,omitempty"`
	Sender     string `json:"sender"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"` // unix milliseconds
	Read       bool   `json:"read"`
}

// IdentityKey returns a stable identity for deduplication across delivery
// paths: the transport-issued id when present, otherwise the composition of
// chat id, sender and millisecond timestamp.
func (m *Message) IdentityKey() string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("%s|%s|%d", m.ChatID, m.Sender, m.Timestamp)
}
