package entity

// ConversationSummary is the inbox-level view of one conversation. It is
// owned by the reconciler; all mutation goes through its merge loop.
type ConversationSummary struct {
	ChatID      string   `json:"chat_id"`
	PropertyID  string   `json:"property_id"`
	OwnerID     string   `json:"owner_id"`
	Peer        string   `json:"peer"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count"`
	UpdatedAt   int64    `json:"updated_at"` // unix milliseconds of last merge
}

// History is a conversation's persisted message sequence as returned by the
// backend. The fetch that produces it is also the idempotent get-or-create
// of the conversation itself.
type History struct {
	ChatID   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}
