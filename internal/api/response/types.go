package response

import (
	"time"

	"github.com/bracketlab/draftsync/internal/model"
	"github.com/bracketlab/draftsync/internal/services/draft"
)

// ConflictView exposes the diverged remote revision of a draft so the
// caller can present both sides of a conflict.
type ConflictView struct {
	Name      string        `json:"name"`
	Payload   model.Payload `json:"payload"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Draft represents a draft in list responses (payload omitted)
type Draft struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Step      int           `json:"step"`
	Status    string        `json:"status"`
	SyncState string        `json:"sync_state"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Conflict  *ConflictView `json:"conflict,omitempty"`
}

// DraftDetail represents a full draft including its payload
type DraftDetail struct {
	Draft
	Payload model.Payload `json:"payload"`
}

// DraftFromModel converts a model.Draft to a response Draft
func DraftFromModel(d *model.Draft) Draft {
	resp := Draft{
		ID:        string(d.ID),
		Name:      d.Name,
		Step:      d.Payload.Step,
		Status:    string(d.Status),
		SyncState: string(d.SyncState),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.Conflict != nil {
		resp.Conflict = &ConflictView{
			Name:      d.Conflict.Name,
			Payload:   d.Conflict.Payload,
			UpdatedAt: d.Conflict.UpdatedAt,
		}
	}
	return resp
}

// DraftDetailFromModel converts a model.Draft to a DraftDetail
func DraftDetailFromModel(d *model.Draft) DraftDetail {
	return DraftDetail{
		Draft:   DraftFromModel(d),
		Payload: d.Payload,
	}
}

// DraftList is the response for draft listings
type DraftList struct {
	Drafts []Draft `json:"drafts"`
}

// DraftListFromModels converts a slice of drafts, preserving order
func DraftListFromModels(drafts []*model.Draft) DraftList {
	out := make([]Draft, len(drafts))
	for i, d := range drafts {
		out[i] = DraftFromModel(d)
	}
	return DraftList{Drafts: out}
}

// SaveDraftResponse is the response after a save
type SaveDraftResponse struct {
	ID string `json:"id"`
}

// Status is the UI-facing sync/save status projection
type Status struct {
	IsSaving  bool       `json:"is_saving"`
	LastSaved *time.Time `json:"last_saved"`
	IsOnline  bool       `json:"is_online"`
	Error     string     `json:"error,omitempty"`
}

// StatusFromManager converts the facade's status snapshot
func StatusFromManager(s draft.Status) Status {
	resp := Status{
		IsSaving: s.IsSaving,
		IsOnline: s.IsOnline,
		Error:    s.Error,
	}
	if !s.LastSaved.IsZero() {
		t := s.LastSaved
		resp.LastSaved = &t
	}
	return resp
}
