package searchindex

import (
	"context"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// Mode selects the retrieval strategy.
type Mode int

const (
	// ModeSemantic is nearest-neighbour search with a certainty threshold.
	ModeSemantic Mode = iota
	// ModeHybrid blends lexical and vector relevance with Alpha.
	ModeHybrid
)

func (m Mode) String() string {
	if m == ModeHybrid {
		return "hybrid"
	}
	return "semantic"
}

// DefaultLimit caps results when a query does not set Limit.
const DefaultLimit = 10

// Query describes one owner-scoped search. Vector must be the embedding of Text.
type Query struct {
	Text      string
	Vector    []float32
	OwnerID   string
	Mode      Mode
	Certainty float32
	Alpha     float32
	Limit     int
	// SourceIDs restricts semantic results to these documents when FilterBySource is set.
	SourceIDs      []string
	FilterBySource bool
}

// Index provides owner-partitioned chunk search and maintenance.
type Index interface {
	Search(ctx context.Context, q Query) ([]model.RetrievedItem, error)
	// AddChunks indexes chunks with their vectors (same length and order).
	AddChunks(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error
	// DeleteBySources removes every chunk of ownerID whose source is in sourceIDs.
	DeleteBySources(ctx context.Context, ownerID string, sourceIDs []string) error
}

// HealthPinger is optionally implemented by an Index to expose specialized
// health check logic. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

var chunkNamespace = uuid.MustParse("4f6c7b1e-5d0a-4a43-9f3e-2a7d6c1b8e90")

// ChunkID derives the stable object id of a chunk so re-indexing overwrites instead of duplicating.
func ChunkID(c model.Chunk) string {
	return uuid.NewSHA1(chunkNamespace, []byte(c.OwnerID+"/"+c.SourceID+"/"+strconv.Itoa(c.Index))).String()
}

// Validate rejects queries that would escape the owner partition or are malformed.
func (q Query) Validate() error {
	if q.OwnerID == "" {
		return model.Invalid("owner id is required")
	}
	if q.FilterBySource && len(q.SourceIDs) == 0 {
		return model.Invalid("source filter requested with an empty id list")
	}
	if q.Mode == ModeHybrid && (q.Alpha < 0 || q.Alpha > 1) {
		return model.Invalid("alpha must be within [0,1], got %v", q.Alpha)
	}
	if q.Mode == ModeSemantic && (q.Certainty < 0 || q.Certainty > 1) {
		return model.Invalid("certainty must be within [0,1], got %v", q.Certainty)
	}
	if len(q.Vector) == 0 {
		return model.Invalid("query vector is empty")
	}
	return nil
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

func validateChunks(chunks []model.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return model.Invalid("chunks and vectors differ in length: %d != %d", len(chunks), len(vectors))
	}
	for i, c := range chunks {
		if c.OwnerID == "" || c.SourceID == "" {
			return model.Invalid("chunk %d is missing owner or source id", i)
		}
		if len(vectors[i]) == 0 {
			return model.Invalid("chunk %d has an empty vector", i)
		}
	}
	return nil
}

// rank orders items by descending score, nil scores last, keeping backend order for ties.
func rank(items []model.RetrievedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Score, items[j].Score
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func floatPtr(f float64) *float64 { return &f }
