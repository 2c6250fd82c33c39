package searchindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/rs/zerolog"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

const (
	propContent  = "content"
	propTitle    = "title"
	propURL      = "url"
	propOwnerID  = "ownerId"
	propSourceID = "sourceId"
	propIndex    = "chunkIndex"
)

// Weaviate is an Index backed by a Weaviate class holding one object per chunk.
type Weaviate struct {
	client    *weaviate.Client
	className string
	log       zerolog.Logger
}

// NewWeaviateIndex constructs an Index backed by Weaviate at baseURL.
// baseURL should be host:port (without scheme), e.g., "localhost:8081".
func NewWeaviateIndex(baseURL, apiKey, className string, log zerolog.Logger) (*Weaviate, error) {
	cl, err := newWeaviateClient(baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	if className == "" {
		className = "Document"
	}
	return &Weaviate{client: cl, className: className, log: log}, nil
}

func newWeaviateClient(baseURL, apiKey string) (*weaviate.Client, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	if strings.HasPrefix(baseURL, "https://") {
		cfg.Scheme, cfg.Host = "https", strings.TrimPrefix(baseURL, "https://")
	} else {
		cfg.Host = strings.TrimPrefix(baseURL, "http://")
	}
	if apiKey != "" {
		cfg.Headers = map[string]string{"Authorization": "Bearer " + apiKey}
	}
	return weaviate.NewClient(cfg)
}

// ownerWhere is the mandatory owner partition filter, optionally narrowed to a set of sources.
func ownerWhere(ownerID string, sourceIDs []string) *filters.WhereBuilder {
	owner := filters.Where().WithPath([]string{propOwnerID}).WithOperator(filters.Equal).WithValueText(ownerID)
	if len(sourceIDs) == 0 {
		return owner
	}
	var src *filters.WhereBuilder
	if len(sourceIDs) == 1 {
		src = filters.Where().WithPath([]string{propSourceID}).WithOperator(filters.Equal).WithValueText(sourceIDs[0])
	} else {
		ops := make([]*filters.WhereBuilder, 0, len(sourceIDs))
		for _, id := range sourceIDs {
			ops = append(ops, filters.Where().WithPath([]string{propSourceID}).WithOperator(filters.Equal).WithValueText(id))
		}
		src = filters.Where().WithOperator(filters.Or).WithOperands(ops)
	}
	return filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{owner, src})
}

// Search runs a semantic (nearVector + certainty) or hybrid query inside the owner partition.
func (w *Weaviate) Search(ctx context.Context, q Query) ([]model.RetrievedItem, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var sources []string
	if q.FilterBySource && q.Mode == ModeSemantic {
		sources = q.SourceIDs
	}

	additional := gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "certainty"}}}
	req := w.client.GraphQL().Get().
		WithClassName(w.className).
		WithWhere(ownerWhere(q.OwnerID, sources)).
		WithLimit(q.limit())

	switch q.Mode {
	case ModeHybrid:
		hy := (&gql.HybridArgumentBuilder{}).
			WithQuery(q.Text).
			WithVector(q.Vector).
			WithAlpha(q.Alpha).
			WithProperties([]string{propContent, propTitle})
		req = req.WithHybrid(hy)
		additional = gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "score"}}}
	default:
		nv := w.client.GraphQL().NearVectorArgBuilder().
			WithVector(q.Vector).
			WithCertainty(q.Certainty)
		req = req.WithNearVector(nv)
	}

	req = req.WithFields(
		gql.Field{Name: propContent},
		gql.Field{Name: propTitle},
		gql.Field{Name: propURL},
		gql.Field{Name: propSourceID},
		additional,
	)

	w.log.Debug().Str("mode", q.Mode.String()).Str("ownerId", q.OwnerID).Int("limit", q.limit()).Int("sources", len(sources)).Msg("weaviate search starting")
	resp, err := req.Do(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrRetrievalFailure, "weaviate search", err)
	}
	if len(resp.Errors) > 0 {
		return nil, model.Wrap(model.ErrRetrievalFailure, "weaviate search", fmt.Errorf("graphql: %s", formatGraphQLErrors(resp.Errors)))
	}

	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return []model.RetrievedItem{}, nil
	}
	raw, ok := getData[w.className].([]interface{})
	if !ok {
		return []model.RetrievedItem{}, nil
	}

	safeString := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}

	out := make([]model.RetrievedItem, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		it := model.RetrievedItem{
			Content:  safeString(m[propContent]),
			Title:    safeString(m[propTitle]),
			URL:      safeString(m[propURL]),
			SourceID: safeString(m[propSourceID]),
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			key := "certainty"
			if q.Mode == ModeHybrid {
				key = "score"
			}
			it.Score = parseScore(add[key])
		}
		if q.Mode == ModeSemantic && it.Score != nil && *it.Score < float64(q.Certainty) {
			continue
		}
		out = append(out, it)
	}
	rank(out)
	if len(out) > q.limit() {
		out = out[:q.limit()]
	}
	w.log.Debug().Int("results", len(out)).Str("ownerId", q.OwnerID).Msg("weaviate search completed")
	return out, nil
}

func parseScore(v interface{}) *float64 {
	switch s := v.(type) {
	case float64:
		return floatPtr(s)
	case string:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatPtr(f)
		}
	}
	return nil
}

// AddChunks writes all chunks in one batch; any per-object error fails the call.
func (w *Weaviate) AddChunks(ctx context.Context, chunks []model.Chunk, vectors [][]float32) error {
	if err := validateChunks(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	objs := make([]*models.Object, 0, len(chunks))
	for i, c := range chunks {
		objs = append(objs, &models.Object{
			Class: w.className,
			ID:    strfmt.UUID(ChunkID(c)),
			Properties: map[string]interface{}{
				propContent:  c.Content,
				propTitle:    c.Title,
				propURL:      c.URL,
				propOwnerID:  c.OwnerID,
				propSourceID: c.SourceID,
				propIndex:    c.Index,
			},
			Vector: vectors[i],
		})
	}
	resp, err := w.client.Batch().ObjectsBatcher().WithObjects(objs...).Do(ctx)
	if err != nil {
		return model.Wrap(model.ErrRetrievalFailure, "weaviate batch add", err)
	}
	var msgs []string
	for _, r := range resp {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
	}
	if len(msgs) > 0 {
		return model.Wrap(model.ErrRetrievalFailure, "weaviate batch add", fmt.Errorf("%d object errors: %s", len(msgs), strings.Join(msgs, "; ")))
	}
	return nil
}

// DeleteBySources batch-deletes every chunk of the owner belonging to sourceIDs.
func (w *Weaviate) DeleteBySources(ctx context.Context, ownerID string, sourceIDs []string) error {
	if ownerID == "" {
		return model.Invalid("owner id is required")
	}
	if len(sourceIDs) == 0 {
		return nil
	}
	resp, err := w.client.Batch().ObjectsBatchDeleter().
		WithClassName(w.className).
		WithOutput("minimal").
		WithWhere(ownerWhere(ownerID, sourceIDs)).
		Do(ctx)
	if err != nil {
		return model.Wrap(model.ErrRetrievalFailure, "weaviate batch delete", err)
	}
	if resp != nil && resp.Results != nil && resp.Results.Failed > 0 {
		return model.Wrap(model.ErrRetrievalFailure, "weaviate batch delete", fmt.Errorf("%d objects failed to delete", resp.Results.Failed))
	}
	return nil
}

// HealthPing reads cluster meta.
func (w *Weaviate) HealthPing(ctx context.Context) error {
	_, err := w.client.Misc().MetaGetter().Do(ctx)
	return err
}

// formatGraphQLErrors returns compact string with messages extracted for logging.
func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
