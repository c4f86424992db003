package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bracketlab/draftsync/internal/api/handler"
	"github.com/bracketlab/draftsync/internal/api/middleware"
	"github.com/bracketlab/draftsync/internal/services/draft"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger       *slog.Logger
	DraftManager *draft.Manager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	draftHandler := handler.NewDraftHandler(cfg.DraftManager)

	identityMiddleware := middleware.Identity()
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no identity required)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Everything else is scoped to the caller's owner identity
	drafts := api.NewRoute().Subrouter()
	drafts.Use(identityMiddleware)

	drafts.HandleFunc("/drafts", draftHandler.List).Methods(http.MethodGet)
	drafts.HandleFunc("/drafts", draftHandler.Save).Methods(http.MethodPost)
	drafts.HandleFunc("/drafts/recovery", draftHandler.Recovery).Methods(http.MethodGet)
	drafts.HandleFunc("/drafts/{id}", draftHandler.Get).Methods(http.MethodGet)
	drafts.HandleFunc("/drafts/{id}", draftHandler.Delete).Methods(http.MethodDelete)
	drafts.HandleFunc("/drafts/{id}/changes", draftHandler.NotifyChange).Methods(http.MethodPost)
	drafts.HandleFunc("/drafts/{id}/flush", draftHandler.Flush).Methods(http.MethodPost)
	drafts.HandleFunc("/drafts/{id}/name", draftHandler.Rename).Methods(http.MethodPatch)
	drafts.HandleFunc("/drafts/{id}/complete", draftHandler.Complete).Methods(http.MethodPost)
	drafts.HandleFunc("/drafts/{id}/resolve", draftHandler.Resolve).Methods(http.MethodPost)
	drafts.HandleFunc("/sync", draftHandler.Sync).Methods(http.MethodPost)
	drafts.HandleFunc("/status", draftHandler.Status).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
