package inbox

import "NestLink/entity"

type Core interface {
	Inbox() []entity.ConversationSummary
}
