package gateway

import (
	"context"
	"fmt"
	"net/http"

	"NestLink/entity"
)

// FetchInbox returns the summary list of every conversation the session
// user participates in.
func (c *Client) FetchInbox(ctx context.Context) ([]entity.ConversationSummary, error) {
	var result struct {
		Conversations []entity.ConversationSummary `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &result); err != nil {
		return nil, fmt.Errorf("fetch inbox: %w", err)
	}
	return result.Conversations, nil
}
