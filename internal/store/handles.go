package store

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// DefaultHandleCacheSize bounds the number of cached owner handles.
const DefaultHandleCacheSize = 64

// Handles is a bounded cache of per-owner handles. It is created at startup and
// purged at shutdown; least recently used owners are evicted.
type Handles struct {
	st    Store
	cache *lru.Cache[string, *OwnerHandle]
}

// NewHandles creates a cache holding at most size handles.
func NewHandles(st Store, size int) (*Handles, error) {
	if size <= 0 {
		size = DefaultHandleCacheSize
	}
	c, err := lru.New[string, *OwnerHandle](size)
	if err != nil {
		return nil, fmt.Errorf("owner handle cache: %w", err)
	}
	return &Handles{st: st, cache: c}, nil
}

// For returns the handle for ownerID, creating it on a miss.
func (h *Handles) For(ownerID string) (*OwnerHandle, error) {
	if ownerID == "" {
		return nil, model.Invalid("owner id is required")
	}
	if oh, ok := h.cache.Get(ownerID); ok {
		return oh, nil
	}
	oh := &OwnerHandle{ownerID: ownerID, st: h.st}
	if prev, ok, _ := h.cache.PeekOrAdd(ownerID, oh); ok {
		return prev, nil
	}
	return oh, nil
}

// Len reports the number of cached handles.
func (h *Handles) Len() int { return h.cache.Len() }

// Purge drops every handle.
func (h *Handles) Purge() { h.cache.Purge() }

// OwnerHandle scopes bookmark and folder operations to one owner.
type OwnerHandle struct {
	ownerID string
	st      Store
	ensured atomic.Bool
}

func (h *OwnerHandle) OwnerID() string { return h.ownerID }

// ensureProfile creates the owner's profile row once per handle lifetime.
func (h *OwnerHandle) ensureProfile(ctx context.Context) error {
	if h.ensured.Load() {
		return nil
	}
	if err := h.st.Users().Ensure(ctx, h.ownerID); err != nil {
		return err
	}
	h.ensured.Store(true)
	return nil
}

func (h *OwnerHandle) Profile(ctx context.Context) (*model.UserProfile, error) {
	return h.st.Users().Get(ctx, h.ownerID)
}

func (h *OwnerHandle) Folders(ctx context.Context) ([]string, error) {
	return h.st.Users().Folders(ctx, h.ownerID)
}

// AddBookmark records b and registers its folder concurrently, waiting for both.
// When either write fails, a bookmark row that was already created is deleted.
func (h *OwnerHandle) AddBookmark(ctx context.Context, b *model.Bookmark) (*model.Bookmark, error) {
	if err := h.ensureProfile(ctx); err != nil {
		return nil, err
	}
	in := *b
	in.OwnerID = h.ownerID

	var created *model.Bookmark
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		created, err = h.st.Bookmarks().Create(gctx, &in)
		return err
	})
	if in.Folder != "" {
		g.Go(func() error {
			return h.st.Users().AddFolder(gctx, h.ownerID, in.Folder)
		})
	}
	if err := g.Wait(); err != nil {
		if created != nil {
			if derr := h.st.Bookmarks().Delete(context.WithoutCancel(ctx), h.ownerID, created.ID); derr != nil {
				return nil, fmt.Errorf("%w (undo bookmark %s: %v)", err, created.ID, derr)
			}
		}
		return nil, err
	}
	return created, nil
}

func (h *OwnerHandle) BookmarksByURL(ctx context.Context, url string) ([]*model.Bookmark, error) {
	return h.st.Bookmarks().ListByURL(ctx, h.ownerID, url)
}

func (h *OwnerHandle) DeleteBookmark(ctx context.Context, bookmarkID string) error {
	return h.st.Bookmarks().Delete(ctx, h.ownerID, bookmarkID)
}

// DeleteBookmarks removes every id concurrently, then drops the named folders.
// All deletes run to completion; the first error is returned.
func (h *OwnerHandle) DeleteBookmarks(ctx context.Context, ids, folders []string) error {
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return h.st.Bookmarks().Delete(ctx, h.ownerID, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(folders) == 0 {
		return nil
	}
	return h.st.Users().RemoveFolders(ctx, h.ownerID, folders)
}
