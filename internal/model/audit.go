package model

// Audit action names emitted by the draft lifecycle manager.
// These are recorded fire-and-forget; a failed audit write never fails
// the underlying draft operation.
const (
	AuditDraftCreated          = "tournament_draft_created"
	AuditDraftUpdated          = "tournament_draft_updated"
	AuditDraftCompleted        = "tournament_draft_completed"
	AuditDraftDeleted          = "tournament_draft_deleted"
	AuditDraftResumed          = "draft_resumed"
	AuditDraftDiscarded        = "draft_discarded"
	AuditDraftConflictResolved = "draft_conflict_resolved"
)
