package inbox

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/render"
)

// Get returns the inbox snapshot, most recently active conversation first.
func Get(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := handler.Inbox()
		sort.Slice(list, func(i, j int) bool {
			return list[i].UpdatedAt > list[j].UpdatedAt
		})

		render.JSON(w, r, map[string]interface{}{
			"conversations": list,
		})
	}
}
