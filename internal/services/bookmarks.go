package services

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/store"
)

// URLInfo answers whether a URL is saved and which folders the owner has.
type URLInfo struct {
	IsBookmarked bool     `json:"is_bookmarked"`
	Folders      []string `json:"folders"`
}

// BookmarkService covers bookmark lookups and deletion across the store and the index.
type BookmarkService struct {
	handles *store.Handles
	idx     searchindex.Index
	log     zerolog.Logger
}

func NewBookmarkService(h *store.Handles, idx searchindex.Index, log zerolog.Logger) *BookmarkService {
	return &BookmarkService{handles: h, idx: idx, log: log}
}

// Info looks up url and the owner's folders concurrently. An unknown owner is NotFound.
func (s *BookmarkService) Info(ctx context.Context, ownerID, url string) (*URLInfo, error) {
	if url == "" {
		return nil, model.Invalid("url is required")
	}
	h, err := s.handles.For(ownerID)
	if err != nil {
		return nil, err
	}
	var (
		found   []*model.Bookmark
		folders []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		found, err = h.BookmarksByURL(gctx, url)
		return err
	})
	g.Go(func() error {
		var err error
		folders, err = h.Folders(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, persistErr("bookmark info", err)
	}
	return &URLInfo{IsBookmarked: len(found) > 0, Folders: folders}, nil
}

// BatchDelete removes the documents' chunks from the index, then their records, then
// the named folders. Index removal runs first so a failure leaves every record listable.
func (s *BookmarkService) BatchDelete(ctx context.Context, ownerID string, ids, folders []string) error {
	h, err := s.handles.For(ownerID)
	if err != nil {
		return err
	}
	if err := s.idx.DeleteBySources(ctx, ownerID, ids); err != nil {
		return err
	}
	if err := h.DeleteBookmarks(ctx, ids, folders); err != nil {
		return persistErr("batch delete", err)
	}
	s.log.Info().Str("ownerId", ownerID).Int("documents", len(ids)).Int("folders", len(folders)).Msg("bookmarks deleted")
	return nil
}
