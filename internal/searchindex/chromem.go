package searchindex

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

const (
	metaOwnerID  = "owner_id"
	metaSourceID = "source_id"
	metaTitle    = "title"
	metaURL      = "url"
	metaIndex    = "chunk_index"
)

// Chromem is an in-process Index for the local build target and tests.
// Certainty is reported as (1+cos)/2 to match Weaviate's semantics; hybrid score is
// alpha*certainty + (1-alpha)*fraction of query terms present in the chunk.
type Chromem struct {
	db   *chromem.DB
	coll *chromem.Collection
	log  zerolog.Logger
}

// NewChromemIndex opens a persistent collection under path, or an in-memory one when path is empty.
func NewChromemIndex(path, collection string, log zerolog.Logger) (*Chromem, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
		}
	}
	if collection == "" {
		collection = "Document"
	}
	coll, err := db.GetOrCreateCollection(collection, nil, upstreamEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("open chromem collection %s: %w", collection, err)
	}
	return &Chromem{db: db, coll: coll, log: log}, nil
}

// upstreamEmbeddings guards against chromem embedding text itself; vectors always come from the caller.
func upstreamEmbeddings(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem: embeddings are computed by the embedding provider")
}

func (c *Chromem) Search(ctx context.Context, q Query) ([]model.RetrievedItem, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	n := c.coll.Count()
	if n == 0 {
		return []model.RetrievedItem{}, nil
	}
	res, err := c.coll.QueryEmbedding(ctx, q.Vector, n, map[string]string{metaOwnerID: q.OwnerID}, nil)
	if err != nil {
		return nil, model.Wrap(model.ErrRetrievalFailure, "chromem search", err)
	}

	var allowed map[string]bool
	if q.FilterBySource && q.Mode == ModeSemantic {
		allowed = make(map[string]bool, len(q.SourceIDs))
		for _, id := range q.SourceIDs {
			allowed[id] = true
		}
	}
	terms := queryTerms(q.Text)

	out := make([]model.RetrievedItem, 0, len(res))
	for _, r := range res {
		if r.Metadata[metaOwnerID] != q.OwnerID {
			continue
		}
		src := r.Metadata[metaSourceID]
		if allowed != nil && !allowed[src] {
			continue
		}
		certainty := (1 + float64(r.Similarity)) / 2
		score := certainty
		if q.Mode == ModeHybrid {
			a := float64(q.Alpha)
			score = a*certainty + (1-a)*lexicalOverlap(terms, r.Content)
		} else if certainty < float64(q.Certainty) {
			continue
		}
		out = append(out, model.RetrievedItem{
			Content:  r.Content,
			Title:    r.Metadata[metaTitle],
			URL:      r.Metadata[metaURL],
			SourceID: src,
			Score:    floatPtr(score),
		})
	}
	rank(out)
	if len(out) > q.limit() {
		out = out[:q.limit()]
	}
	return out, nil
}

func queryTerms(text string) []string {
	seen := map[string]bool{}
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(text)) {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

func lexicalOverlap(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lc := strings.ToLower(content)
	hits := 0
	for _, t := range terms {
		if strings.Contains(lc, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func (c *Chromem) AddChunks(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if err := validateChunks(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for i, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID:      ChunkID(ch),
			Content: ch.Content,
			Metadata: map[string]string{
				metaOwnerID:  ch.OwnerID,
				metaSourceID: ch.SourceID,
				metaTitle:    ch.Title,
				metaURL:      ch.URL,
				metaIndex:    strconv.Itoa(ch.Index),
			},
			Embedding: vectors[i],
		})
	}
	if err := c.coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return model.Wrap(model.ErrRetrievalFailure, "chromem add", err)
	}
	return nil
}

func (c *Chromem) DeleteBySources(ctx context.Context, ownerID string, sourceIDs []string) error {
	if ownerID == "" {
		return model.Invalid("owner id is required")
	}
	for _, id := range sourceIDs {
		where := map[string]string{metaOwnerID: ownerID, metaSourceID: id}
		if err := c.coll.Delete(ctx, where, nil); err != nil {
			return model.Wrap(model.ErrRetrievalFailure, "chromem delete", err)
		}
	}
	return nil
}

// HealthPing always succeeds; the collection lives in-process.
func (c *Chromem) HealthPing(context.Context) error { return nil }

// Count reports the number of indexed chunks.
func (c *Chromem) Count() int { return c.coll.Count() }
