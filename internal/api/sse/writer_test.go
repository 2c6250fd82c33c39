package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noFlush struct{ http.ResponseWriter }

func TestNewWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(noFlush{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

func TestWriter_FramesEventsAndSetsHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	sw, err := NewWriter(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	require.NoError(t, err)
	assert.False(t, sw.Started())

	require.NoError(t, sw.Send(map[string]string{"chat_response": "Hel"}))
	require.NoError(t, sw.Send(map[string]any{"done": true}))
	assert.True(t, sw.Started())

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "no", rr.Header().Get("X-Accel-Buffering"))
	assert.True(t, rr.Flushed)
	assert.Equal(t, "data: {\"chat_response\":\"Hel\"}\n\ndata: {\"done\":true}\n\n", rr.Body.String())
}

func TestWriter_FailsWhenClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/chat", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	sw, err := NewWriter(rr, req)
	require.NoError(t, err)

	cancel()
	assert.Error(t, sw.Send(map[string]string{"chat_response": "x"}))
	assert.False(t, sw.Started())
	assert.Empty(t, rr.Body.String())
}
