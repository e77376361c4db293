package conversation

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"NestLink/internal/lib/api/response"
	"NestLink/internal/lib/validate"
)

type CloseRequest struct {
	ChatID string `json:"chat_id" validate:"required"`
}

// Close tears down the conversation's chat channel. The session-wide
// notification channel is untouched.
func Close(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CloseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("chat_id is required"))
			return
		}

		handler.CloseConversation(req.ChatID)
		render.JSON(w, r, response.Ok("conversation closed"))
	}
}
