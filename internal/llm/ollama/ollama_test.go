package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/llm"
)

func TestStream_NDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "system", req.Messages[0].Role)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Hel"},"done":false}
{"message":{"role":"assistant","content":"lo"},"done":false}
{"message":{"role":"assistant","content":""},"done":true}
`))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "llama3").Stream(context.Background(), llm.Prompt{System: "s", User: "u"})
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for {
		d, err := s.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, d)
	}
	assert.Equal(t, []string{"Hel", "lo"}, got)
}

func TestStream_TruncatedIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"Hel"},"done":false}` + "\n"))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "llama3").Stream(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	defer s.Close()

	d, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hel", d)
	_, err = s.Recv()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStream_ErrorLine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model crashed"}` + "\n"))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "llama3").Stream(context.Background(), llm.Prompt{User: "u"})
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Recv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestStream_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "missing").Stream(context.Background(), llm.Prompt{User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
