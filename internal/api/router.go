package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/schemakit/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Route("/documents/{kind}", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/import", h.ImportDocument)
		r.Get("/{file}", h.GetDocument)
		r.Put("/{file}", h.PutDocument)
		r.Delete("/{file}", h.DeleteDocument)
		r.Get("/{file}/raw", h.RawDocument)
		r.Post("/{file}/ops", h.ApplyOps)
		r.Post("/{file}/lock", h.LockDocument)
		r.Post("/{file}/unlock", h.UnlockDocument)
		r.Get("/{file}/bson-schema", h.BSONSchema)
	})

	// Versions.
	r.Post("/families/{kind}/{name}/versions", h.CreateVersion)

	// Editor support.
	r.Get("/variants", h.Variants)

	// Search and references.
	r.Get("/search", h.Search)
	r.Get("/references/{name}", h.References)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
