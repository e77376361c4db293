package gateway

import (
	"context"
	"fmt"
	"net/http"

	"NestLink/entity"
)

type historyRequest struct {
	ChatID     string `json:"chat_id,omitempty"`
	PropertyID string `json:"property_id"`
}

// FetchHistory returns a conversation's persisted message sequence. The
// backend treats the call as get-or-create: an empty chat id plus a property
// id yields the existing conversation for this user and property, or a fresh
// one with no messages.
func (c *Client) FetchHistory(ctx context.Context, chatID, propertyID string) (*entity.History, error) {
	req := historyRequest{
		ChatID:     chatID,
		PropertyID: propertyID,
	}
	var history entity.History
	if err := c.do(ctx, http.MethodPost, "/api/conversations/history", req, &history); err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	return &history, nil
}
