package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// mockWeaviate answers the endpoints the client uses and records request bodies by route.
type mockWeaviate struct {
	mu      sync.Mutex
	bodies  map[string][]string
	graphql string
	batch   string
	deleted string
}

func (m *mockWeaviate) record(key string, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[key] = append(m.bodies[key], string(b))
}

func (m *mockWeaviate) last(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.bodies[key]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

func newMockWeaviate(t *testing.T, m *mockWeaviate) *Weaviate {
	t.Helper()
	m.bodies = map[string][]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/graphql":
			m.record("graphql", r)
			_, _ = w.Write([]byte(m.graphql))
		case r.URL.Path == "/v1/batch/objects" && r.Method == http.MethodPost:
			m.record("batch", r)
			_, _ = w.Write([]byte(m.batch))
		case r.URL.Path == "/v1/batch/objects" && r.Method == http.MethodDelete:
			m.record("delete", r)
			_, _ = w.Write([]byte(m.deleted))
		case r.URL.Path == "/v1/meta":
			_, _ = w.Write([]byte(`{"hostname":"http://[::]:8080","version":"1.31.4","modules":{}}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	idx, err := NewWeaviateIndex(strings.TrimPrefix(srv.URL, "http://"), "", "Document", zerolog.Nop())
	require.NoError(t, err)
	return idx
}

func graphqlQuery(t *testing.T, body string) string {
	t.Helper()
	var payload struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	return payload.Query
}

func TestWeaviate_SemanticSearchFiltersAndRanks(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":[
		{"content":"b","title":"B","url":"https://b","sourceId":"B","_additional":{"certainty":0.75}},
		{"content":"a","title":"A","url":"https://a","sourceId":"A","_additional":{"certainty":0.9}}
	]}}}`}
	idx := newMockWeaviate(t, m)

	got, err := idx.Search(context.Background(), Query{Text: "q", Vector: []float32{1, 0}, OwnerID: "u1", Certainty: 0.8, Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].SourceID)
	assert.Equal(t, "https://a", got[0].URL)

	q := graphqlQuery(t, m.last("graphql"))
	assert.Contains(t, q, "nearVector")
	assert.Contains(t, q, "ownerId")
	assert.Contains(t, q, "u1")
	assert.NotContains(t, q, `sourceId"]`)
}

func TestWeaviate_SourceFilterUsesOr(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":[]}}}`}
	idx := newMockWeaviate(t, m)

	_, err := idx.Search(context.Background(), Query{Vector: []float32{1}, OwnerID: "u1", Certainty: 0.8, SourceIDs: []string{"s1", "s2"}, FilterBySource: true})
	require.NoError(t, err)
	q := graphqlQuery(t, m.last("graphql"))
	assert.Contains(t, q, "Or")
	assert.Contains(t, q, "s1")
	assert.Contains(t, q, "s2")
}

func TestWeaviate_HybridParsesStringScores(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":[
		{"content":"x","title":"X","url":"https://x","sourceId":"X","_additional":{"score":"0.2"}},
		{"content":"y","title":"Y","url":"https://y","sourceId":"Y","_additional":{"score":"0.7"}}
	]}}}`}
	idx := newMockWeaviate(t, m)

	got, err := idx.Search(context.Background(), Query{Text: "q", Vector: []float32{1}, OwnerID: "u1", Mode: ModeHybrid, Alpha: 0.25, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Y", got[0].SourceID)
	assert.InDelta(t, 0.7, *got[0].Score, 1e-9)
	assert.Contains(t, graphqlQuery(t, m.last("graphql")), "hybrid")
}

func TestWeaviate_GraphQLErrorsAreRetrievalFailures(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":null}},"errors":[{"message":"class not found"}]}`}
	idx := newMockWeaviate(t, m)

	_, err := idx.Search(context.Background(), Query{Vector: []float32{1}, OwnerID: "u1", Certainty: 0.8})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRetrievalFailure))
}

func TestWeaviate_NilResultIsEmpty(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":null}}}`}
	idx := newMockWeaviate(t, m)

	got, err := idx.Search(context.Background(), Query{Vector: []float32{1}, OwnerID: "u1", Certainty: 0.8})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWeaviate_EmptyOwnerNeverReachesServer(t *testing.T) {
	m := &mockWeaviate{graphql: `{"data":{"Get":{"Document":[]}}}`}
	idx := newMockWeaviate(t, m)

	_, err := idx.Search(context.Background(), Query{Vector: []float32{1}})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
	assert.Empty(t, m.last("graphql"))
}

func TestWeaviate_AddChunksReportsObjectErrors(t *testing.T) {
	m := &mockWeaviate{batch: `[{"class":"Document","id":"00000000-0000-0000-0000-000000000001","result":{"errors":{"error":[{"message":"vector lengths don't match"}]}}}]`}
	idx := newMockWeaviate(t, m)

	err := idx.AddChunks(context.Background(), []model.Chunk{{Content: "c", OwnerID: "u1", SourceID: "s1"}}, [][]float32{{1, 2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrRetrievalFailure))
	assert.Contains(t, err.Error(), "vector lengths")

	body := m.last("batch")
	assert.Contains(t, body, `"ownerId":"u1"`)
	assert.Contains(t, body, `"sourceId":"s1"`)
}

func TestWeaviate_AddChunksSuccess(t *testing.T) {
	m := &mockWeaviate{batch: `[{"class":"Document","id":"00000000-0000-0000-0000-000000000001","result":{}}]`}
	idx := newMockWeaviate(t, m)

	require.NoError(t, idx.AddChunks(context.Background(), []model.Chunk{{Content: "c", OwnerID: "u1", SourceID: "s1"}}, [][]float32{{1, 2}}))
	assert.True(t, errors.Is(idx.AddChunks(context.Background(), []model.Chunk{{Content: "c", OwnerID: "u1", SourceID: "s1"}}, nil), model.ErrInvalidArgument))
}

func TestWeaviate_DeleteBySourcesScopesOwner(t *testing.T) {
	m := &mockWeaviate{deleted: `{"match":{"class":"Document"},"output":"minimal","results":{"matches":2,"limit":10000,"successful":2,"failed":0}}`}
	idx := newMockWeaviate(t, m)

	require.NoError(t, idx.DeleteBySources(context.Background(), "u1", []string{"s1", "s2"}))
	body := m.last("delete")
	assert.Contains(t, body, "ownerId")
	assert.Contains(t, body, "u1")
	assert.Contains(t, body, "s2")

	require.NoError(t, idx.DeleteBySources(context.Background(), "u1", nil))
	assert.True(t, errors.Is(idx.DeleteBySources(context.Background(), "", []string{"s1"}), model.ErrInvalidArgument))
}

func TestWeaviate_DeleteFailuresSurface(t *testing.T) {
	m := &mockWeaviate{deleted: `{"match":{"class":"Document"},"output":"minimal","results":{"matches":2,"limit":10000,"successful":1,"failed":1}}`}
	idx := newMockWeaviate(t, m)

	err := idx.DeleteBySources(context.Background(), "u1", []string{"s1"})
	assert.True(t, errors.Is(err, model.ErrRetrievalFailure))
}

func TestWeaviate_HealthPing(t *testing.T) {
	idx := newMockWeaviate(t, &mockWeaviate{})
	assert.NoError(t, idx.HealthPing(context.Background()))
}
