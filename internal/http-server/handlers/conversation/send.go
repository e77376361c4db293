package conversation

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"NestLink/internal/lib/api/response"
	"NestLink/internal/lib/validate"
)

type SendRequest struct {
	ChatID string `json:"chat_id" validate:"required"`
	Text   string `json:"text" validate:"required,min=1,max=5000"`
}

// Send authors a message in an opened conversation. When the channel is not
// open the message is queued and flushed on the next open, so this never
// fails for transport reasons — only for a conversation that was never
// established.
func Send(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("chat_id and non-empty text are required"))
			return
		}

		msg, err := handler.Send(req.ChatID, req.Text)
		if err != nil {
			log.Error("Failed to send message", slog.Any("error", err))
			http.Error(w, "Failed to send message", http.StatusConflict)
			return
		}

		render.JSON(w, r, msg)
	}
}
