package channel

import (
	"encoding/json"
	"time"

	"NestLink/entity"
)

// wireEvent is the payload both realtime channels carry. The notification
// channel always fills chat_id and property_id; the conversation channel may
// omit them since the connection itself is scoped to one chat.
type wireEvent struct {
	ID         string `json:"id,omitempty"`
	ChatID     string `json:"chat_id,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
	Sender     string `json:"sender"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

func marshalFrame(msg entity.Message) []byte {
	data, _ := json.Marshal(wireEvent{
		ID:         msg.ID,
		ChatID:     msg.ChatID,
		PropertyID: msg.PropertyID,
		Sender:     msg.Sender,
		Text:       msg.Text,
		Timestamp:  msg.Timestamp,
	})
	return data
}

// parseFrame turns a raw frame into a Message. A frame that is not a
// structured event is never rejected: it degrades to a best-effort plain
// text message from an unknown sender, timestamped at receipt.
func parseFrame(raw []byte, chatID, propertyID string) entity.Message {
	var ev wireEvent
	if err := json.Unmarshal(raw, &ev); err != nil || ev.Sender == "" {
		return entity.Message{
			ChatID:     chatID,
			PropertyID: propertyID,
			Sender:     entity.UnknownSender,
			Text:       string(raw),
			Timestamp:  time.Now().UnixMilli(),
		}
	}

	msg := entity.Message{
		ID:         ev.ID,
		ChatID:     ev.ChatID,
		PropertyID: ev.PropertyID,
		Sender:     ev.Sender,
		Text:       ev.Text,
		Timestamp:  ev.Timestamp,
	}
	if msg.ChatID == "" {
		msg.ChatID = chatID
	}
	if msg.PropertyID == "" {
		msg.PropertyID = propertyID
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	return msg
}
