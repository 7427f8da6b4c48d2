package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.With(app.logRequests).Get("/health", app.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(app.logRequests)
		r.Use(app.authenticate)
		r.Get("/queues", app.handleQueues)
		r.Get("/rooms/{roomID}", app.handleRoom)
	})

	r.With(app.authenticate).Get("/ws", app.handleWebSocket)

	c := cors.New(cors.Options{
		AllowedOrigins: app.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(r)
}

func (app *application) allowedOrigins() []string {
	if len(app.Config.FrontendOrigins) == 0 {
		return []string{"*"}
	}
	return app.Config.FrontendOrigins
}
