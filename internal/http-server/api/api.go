package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"NestLink/internal/config"
	"NestLink/internal/http-server/handlers/conversation"
	"NestLink/internal/http-server/handlers/errors"
	"NestLink/internal/http-server/handlers/inbox"
	"NestLink/internal/http-server/middleware/reqlog"
	"NestLink/internal/http-server/middleware/timeout"
	"NestLink/internal/lib/sl"
	"NestLink/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler is the core surface the bridge API exposes to the UI layer.
type Handler interface {
	inbox.Core
	conversation.Core
	ws.Authenticator
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))
	router.Use(reqlog.New(log))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(timeout.Timeout(15))
		v1.Route("/inbox", func(r chi.Router) {
			r.Get("/", inbox.Get(log, handler))
		})
		v1.Route("/conversations", func(r chi.Router) {
			r.Post("/open", conversation.Open(log, handler))
			r.Post("/close", conversation.Close(log, handler))
			r.Post("/send", conversation.Send(log, handler))
		})
	})

	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, handler, log, w, r)
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting bridge api", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
