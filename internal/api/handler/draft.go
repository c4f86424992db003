package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/bracketlab/draftsync/internal/api/apierr"
	"github.com/bracketlab/draftsync/internal/api/middleware"
	"github.com/bracketlab/draftsync/internal/api/request"
	"github.com/bracketlab/draftsync/internal/api/response"
	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/services/draft"
)

var validate = validator.New()

// DraftHandler handles draft lifecycle endpoints
type DraftHandler struct {
	manager *draft.Manager
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(manager *draft.Manager) *DraftHandler {
	return &DraftHandler{manager: manager}
}

// List handles GET /api/v1/drafts
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())

	drafts, err := h.manager.ListDrafts(r.Context(), owner)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.DraftListFromModels(drafts))
}

// Recovery handles GET /api/v1/drafts/recovery: the local-only listing
// used to decide whether to prompt recovery on session start.
func (h *DraftHandler) Recovery(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())

	drafts, err := h.manager.CheckForExistingDrafts(r.Context(), owner)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.DraftListFromModels(drafts))
}

// Save handles POST /api/v1/drafts
func (h *DraftHandler) Save(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())

	var req request.SaveDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError(err.Error()))
		return
	}

	id, err := h.manager.Save(r.Context(), owner, model.DraftID(req.ID), req.Payload, req.Name)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.SaveDraftResponse{ID: string(id)})
}

// Get handles GET /api/v1/drafts/{id}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	d, err := h.manager.LoadDraft(r.Context(), owner, id)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.DraftDetailFromModel(d))
}

// NotifyChange handles POST /api/v1/drafts/{id}/changes.
// Called at keystroke rate; the change is debounced, not saved inline.
func (h *DraftHandler) NotifyChange(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	var req request.NotifyChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}

	h.manager.NotifyChange(owner, id, req.Payload)
	response.JSON(w, http.StatusAccepted, nil)
}

// Flush handles POST /api/v1/drafts/{id}/flush: commit any debounced
// change immediately (navigation-away).
func (h *DraftHandler) Flush(w http.ResponseWriter, r *http.Request) {
	id := model.DraftID(mux.Vars(r)["id"])
	h.manager.FlushAutosave(id)
	response.NoContent(w)
}

// Rename handles PATCH /api/v1/drafts/{id}/name
func (h *DraftHandler) Rename(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	var req request.RenameDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError(err.Error()))
		return
	}

	if err := h.manager.RenameDraft(r.Context(), owner, id, req.Name); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Complete handles POST /api/v1/drafts/{id}/complete
func (h *DraftHandler) Complete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	if err := h.manager.CompleteDraft(r.Context(), owner, id); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Delete handles DELETE /api/v1/drafts/{id}. A ?reason=discard query
// marks the deletion as a recovery-prompt discard in the audit trail.
func (h *DraftHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	var err error
	if r.URL.Query().Get("reason") == "discard" {
		err = h.manager.DiscardDraft(r.Context(), owner, id)
	} else {
		err = h.manager.DeleteDraft(r.Context(), owner, id)
	}
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Resolve handles POST /api/v1/drafts/{id}/resolve
func (h *DraftHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())
	id := model.DraftID(mux.Vars(r)["id"])

	var req request.ResolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError("invalid request body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		apierr.WriteError(w, apierr.NewInvalidRequestError(err.Error()))
		return
	}

	if err := h.manager.ResolveConflict(r.Context(), owner, id, model.Resolution(req.Resolution)); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Sync handles POST /api/v1/sync: an explicit "sync now" request whose
// failure is surfaced to the caller as retryable.
func (h *DraftHandler) Sync(w http.ResponseWriter, r *http.Request) {
	owner := middleware.MustGetOwner(r.Context())

	if err := h.manager.SyncNow(r.Context(), owner); err != nil {
		apierr.WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Status handles GET /api/v1/status
func (h *DraftHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.StatusFromManager(h.manager.Status()))
}
