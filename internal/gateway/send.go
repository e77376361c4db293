package gateway

import (
	"context"
	"fmt"
	"net/http"
)

type sendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// SendMessage persists a message with the backend. Realtime fan-out is the
// backend's business and is not ordered relative to this call returning.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	req := sendRequest{
		ChatID: chatID,
		Text:   text,
	}
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, nil); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// MarkRead acknowledges every unread message in the conversation.
func (c *Client) MarkRead(ctx context.Context, chatID string) error {
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+chatID+"/read", nil, nil); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
