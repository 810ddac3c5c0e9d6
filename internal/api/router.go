package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/giyikalim/smart-notes/internal/notes"
)

// NewRouter creates a chi router with all API routes mounted.
// Every route runs behind AuthMiddleware(auth).
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notes.Service, auth AuthConfig, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(auth))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Patch("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Post("/extend", h.ExtendNote)
		r.Post("/reset-ai", h.ResetNote)
	})

	// Search and aggregates.
	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)

	r.Post("/suggest", h.Suggest)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
