package conversation

import (
	"context"

	"NestLink/entity"
)

type Core interface {
	OpenConversation(ctx context.Context, chatID, propertyID string) (*entity.History, error)
	CloseConversation(chatID string)
	Send(chatID, text string) (entity.Message, error)
}
