package services

import (
	"context"
	"sort"
	"strings"

	"github.com/bookmarkai/bookmark-server/internal/embeddings"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
)

// Search request defaults.
const (
	DefaultSearchCertainty float32 = 0.8
	DefaultSearchAlpha     float32 = 0.25
	DefaultSearchLimit             = 10
)

// SearchRequest selects one retrieval mode per call; scores are never mixed across modes.
type SearchRequest struct {
	Query     string
	UseHybrid bool
	Certainty float32
	Alpha     float32
	Limit     int
}

// SearchService runs owner-scoped searches and reports one entry per document.
type SearchService struct {
	embedder embeddings.Provider
	idx      searchindex.Index
}

func NewSearchService(e embeddings.Provider, idx searchindex.Index) *SearchService {
	return &SearchService{embedder: e, idx: idx}
}

// Search returns item metadata deduplicated by document id (first occurrence wins)
// and ordered by score descending, unscored items last.
func (s *SearchService) Search(ctx context.Context, ownerID string, req SearchRequest) ([]model.ItemMetadata, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, model.Invalid("query is required")
	}
	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, model.Wrap(model.ErrRetrievalFailure, "embed query", err)
	}
	mode := searchindex.ModeSemantic
	if req.UseHybrid {
		mode = searchindex.ModeHybrid
	}
	items, err := s.idx.Search(ctx, searchindex.Query{
		Text:      req.Query,
		Vector:    vec,
		OwnerID:   ownerID,
		Mode:      mode,
		Certainty: req.Certainty,
		Alpha:     req.Alpha,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}
	return DedupeByID(model.MetadataOf(items)), nil
}

// DedupeByID keeps the first entry per id and sorts by similarity descending, nil last.
func DedupeByID(in []model.ItemMetadata) []model.ItemMetadata {
	seen := make(map[string]bool, len(in))
	out := make([]model.ItemMetadata, 0, len(in))
	for _, m := range in {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SimilarityScore, out[j].SimilarityScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return out
}
