package request

import "github.com/bracketlab/draftsync/internal/model"

// SaveDraftRequest is the request body for creating or updating a draft
type SaveDraftRequest struct {
	ID      string        `json:"id,omitempty"`
	Name    string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Payload model.Payload `json:"payload"`
}

// NotifyChangeRequest is the request body for an autosave change notification
type NotifyChangeRequest struct {
	Payload model.Payload `json:"payload"`
}

// RenameDraftRequest is the request body for renaming a draft
type RenameDraftRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ResolveConflictRequest is the request body for resolving a sync conflict
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=keep-local keep-remote keep-both"`
}
