package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DraftID uniquely identifies a tournament draft
type DraftID string

// OwnerID is the opaque identity of the draft's owner.
// The core never interprets it; it is assigned by the host application.
type OwnerID string

// DefaultDraftName is used when a draft is saved without a name
const DefaultDraftName = "Untitled Tournament"

// LocalIDPrefix marks a provisional id assigned before the first
// successful remote create. The sync engine retires it once the remote
// store hands back a real id.
const LocalIDPrefix = "local-"

// Status represents the lifecycle phase of a draft
type Status string

const (
	StatusDraft     Status = "draft"     // In-progress, offered for resume
	StatusCompleted Status = "completed" // Terminal, excluded from recovery listings
)

// SyncState tracks how the local copy of a draft relates to the remote store
type SyncState string

const (
	SyncStateLocalOnly SyncState = "local-only" // Never confirmed against remote
	SyncStatePending   SyncState = "pending"    // Local change not yet pushed
	SyncStateSynced    SyncState = "synced"     // Local and remote agree as of last reconciliation
	SyncStateConflict  SyncState = "conflict"   // Local and remote diverged, needs a user decision
)

// Resolution is the user's decision for a draft in conflict state
type Resolution string

const (
	ResolutionKeepLocal  Resolution = "keep-local"
	ResolutionKeepRemote Resolution = "keep-remote"
	ResolutionKeepBoth   Resolution = "keep-both"
)

// Valid reports whether the resolution is one of the recognized verbs
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionKeepLocal, ResolutionKeepRemote, ResolutionKeepBoth:
		return true
	}
	return false
}

// Payload is the opaque wizard content of a draft. The core carries it
// without interpreting its shape beyond the step marker.
type Payload struct {
	Step int             `json:"step"`
	Form json.RawMessage `json:"form,omitempty"`
}

// RemoteRevision is the remote copy of a draft retained locally while a
// conflict is open, so neither side's content is discarded.
type RemoteRevision struct {
	Name      string    `json:"name"`
	Payload   Payload   `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the central entity: a partially built tournament configuration
type Draft struct {
	ID      DraftID `json:"id"`
	OwnerID OwnerID `json:"owner_id"`
	Name    string  `json:"name"`
	Payload Payload `json:"payload"`

	Status    Status    `json:"status"`
	SyncState SyncState `json:"sync_state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// SyncedAt is the remote updatedAt last acknowledged for this draft,
	// zero if it was never confirmed against the remote store. A remote
	// copy newer than this diverged while local edits were pending.
	SyncedAt time.Time `json:"synced_at"`

	// Conflict holds the diverged remote revision while SyncState is
	// conflict, nil otherwise.
	Conflict *RemoteRevision `json:"conflict,omitempty"`
}

// IsLocalID reports whether the draft still carries a provisional id
func (id DraftID) IsLocalID() bool {
	return strings.HasPrefix(string(id), LocalIDPrefix)
}

// NeedsPush reports whether the draft has local changes awaiting a remote push
func (d *Draft) NeedsPush() bool {
	return d.SyncState == SyncStateLocalOnly || d.SyncState == SyncStatePending
}

// Resumable reports whether the draft should be offered for recovery
func (d *Draft) Resumable() bool {
	return d.Status != StatusCompleted
}

// Clone returns a deep copy of the draft
func (d *Draft) Clone() *Draft {
	c := *d
	if d.Payload.Form != nil {
		c.Payload.Form = append(json.RawMessage(nil), d.Payload.Form...)
	}
	if d.Conflict != nil {
		rc := *d.Conflict
		if d.Conflict.Payload.Form != nil {
			rc.Payload.Form = append(json.RawMessage(nil), d.Conflict.Payload.Form...)
		}
		c.Conflict = &rc
	}
	return &c
}
