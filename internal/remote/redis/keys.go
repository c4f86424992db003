package redis

import (
	"fmt"

	"github.com/bracketlab/draftsync/internal/model"
)

// Key prefix for all draft-sync data
const keyPrefix = "draftsync"

// draftKey returns the Redis key for a draft record
func draftKey(id model.DraftID) string {
	return fmt.Sprintf("%s:draft:%s", keyPrefix, id)
}

// ownerIndexKey returns the Redis key for the SET of draft ids per owner
func ownerIndexKey(owner model.OwnerID) string {
	return fmt.Sprintf("%s:idx:owner_drafts:%s", keyPrefix, owner)
}
