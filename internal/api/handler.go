package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/triagehq/triage/internal/storage"
)

// Deps carries the handler's collaborators.
type Deps struct {
	Store *storage.Store

	// CORSOrigin is the browser origin allowed to call the API,
	// typically the dashboard dev server.
	CORSOrigin string
}

// NewHandler builds the query API: read-only views over the ticket
// snapshot and the analysis log.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.CORSOrigin},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", handleHealth)
	r.Get("/stats", handleStats(deps))
	r.Get("/tickets", handleListTickets(deps))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func handleStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Store.GetStats(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading stats: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleListTickets(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// needs_review=0|1 filters the join; any other value (or its
		// absence) returns everything.
		var needsReview *bool
		switch r.URL.Query().Get("needs_review") {
		case "0":
			f := false
			needsReview = &f
		case "1":
			t := true
			needsReview = &t
		}

		items, err := deps.Store.ListTickets(r.Context(), needsReview)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing tickets: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
