package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bracketlab/draftsync/internal/cache"
	"github.com/bracketlab/draftsync/internal/model"
)

// Cache is a file-backed implementation of the local draft cache.
// Each draft is one JSON file under <dir>/drafts; the pending-deletion
// set is a single JSON file. Writes go through a temp file plus rename,
// so a crash mid-write never corrupts a previously committed draft.
type Cache struct {
	mu  sync.Mutex
	dir string
}

const (
	draftsSubdir    = "drafts"
	deletionsFile   = "pending_deletions.json"
	draftFileSuffix = ".json"
	dirPerm         = 0o755
	filePerm        = 0o644
)

// New creates a file cache rooted at dir, creating the layout if needed
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Join(dir, draftsSubdir), dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return &Cache{dir: dir}, nil
}

// Ensure Cache implements the interface
var _ cache.Cache = (*Cache)(nil)

// Draft operations

func (c *Cache) PutDraft(ctx context.Context, draft *model.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return c.writeAtomic(c.draftPath(draft.ID), data)
}

func (c *Cache) GetDraft(ctx context.Context, id model.DraftID) (*model.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readDraft(c.draftPath(id))
}

func (c *Cache) ListDraftsByOwner(ctx context.Context, owner model.OwnerID) ([]*model.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(c.dir, draftsSubdir))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}

	var drafts []*model.Draft
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), draftFileSuffix) {
			continue
		}
		draft, err := c.readDraft(filepath.Join(c.dir, draftsSubdir, entry.Name()))
		if err != nil {
			if errors.Is(err, model.ErrDraftNotFound) {
				continue
			}
			return nil, err
		}
		if draft.OwnerID == owner {
			drafts = append(drafts, draft)
		}
	}
	return drafts, nil
}

func (c *Cache) RemoveDraft(ctx context.Context, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.draftPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return nil
}

// Pending-deletion operations

// pendingDeletion is one queued remote delete, tagged with the owner it
// belongs to so replays stay scoped to that owner's cycles
type pendingDeletion struct {
	ID      model.DraftID `json:"id"`
	OwnerID model.OwnerID `json:"owner_id"`
}

func (c *Cache) MarkPendingDeletion(ctx context.Context, owner model.OwnerID, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deletions, err := c.readDeletions()
	if err != nil {
		return err
	}
	for _, existing := range deletions {
		if existing.ID == id {
			return nil
		}
	}
	return c.writeDeletions(append(deletions, pendingDeletion{ID: id, OwnerID: owner}))
}

func (c *Cache) ListPendingDeletions(ctx context.Context, owner model.OwnerID) ([]model.DraftID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deletions, err := c.readDeletions()
	if err != nil {
		return nil, err
	}
	var ids []model.DraftID
	for _, d := range deletions {
		if d.OwnerID == owner {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (c *Cache) ClearPendingDeletion(ctx context.Context, id model.DraftID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deletions, err := c.readDeletions()
	if err != nil {
		return err
	}
	kept := deletions[:0]
	for _, existing := range deletions {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	return c.writeDeletions(kept)
}

// Internals

func (c *Cache) draftPath(id model.DraftID) string {
	return filepath.Join(c.dir, draftsSubdir, string(id)+draftFileSuffix)
}

func (c *Cache) readDraft(path string) (*model.Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.ErrDraftNotFound
		}
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return &draft, nil
}

func (c *Cache) readDeletions() ([]pendingDeletion, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, deletionsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	var deletions []pendingDeletion
	if err := json.Unmarshal(data, &deletions); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return deletions, nil
}

func (c *Cache) writeDeletions(deletions []pendingDeletion) error {
	data, err := json.Marshal(deletions)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return c.writeAtomic(filepath.Join(c.dir, deletionsFile), data)
}

func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", model.ErrCacheFailure, err)
	}
	return nil
}
