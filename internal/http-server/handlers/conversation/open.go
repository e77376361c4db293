package conversation

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"NestLink/internal/lib/api/response"
	"NestLink/internal/lib/validate"
)

type OpenRequest struct {
	ChatID     string `json:"chat_id"`
	PropertyID string `json:"property_id" validate:"required"`
}

// Open resolves (or creates) the conversation for a property, pulls its
// history and brings up the chat channel.
func Open(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("property_id is required"))
			return
		}

		history, err := handler.OpenConversation(r.Context(), req.ChatID, req.PropertyID)
		if err != nil {
			log.Error("Failed to open conversation", slog.Any("error", err))
			http.Error(w, "Failed to open conversation", http.StatusBadGateway)
			return
		}

		render.JSON(w, r, history)
	}
}
