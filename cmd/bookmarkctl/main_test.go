package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	jsonRoute := func(path string, h http.HandlerFunc) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			h(w, r)
		})
	}
	jsonRoute("/search", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["query"] != "go" || r.Header.Get("X-Uid") != "u1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Bad Request","code":400,"message":"unexpected request"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"url":"https://go.dev","title":"Go","id":"b1","similarity_score":0.9}]`))
	})
	jsonRoute("/conversation", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`"c-123"`))
	})
	jsonRoute("/conversations", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"c-123","title":"first"}]`))
	})
	jsonRoute("/chat-history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("conversation_id") != "c-123" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not Found","code":404,"message":"conversation not found"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"role":"human","content":"hi","used_context":null,"timestamp":1}]`))
	})
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"chat_response\":\"Hel\",\"documents\":[],\"done\":false}\n\n")
		fmt.Fprint(w, "data: {\"chat_response\":\"lo\",\"documents\":[],\"done\":false}\n\n")
		fmt.Fprint(w, "data: {\"chat_response\":\"Hello\",\"documents\":[{\"url\":\"https://go.dev\",\"title\":\"Go\",\"id\":\"b1\",\"similarity_score\":null}],\"done\":true}\n\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	srv := fakeService(t)
	out, err := run(t, "--api", srv.URL, "--user", "u1", "search", "-q", "go")
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "b1"`)

	_, err = run(t, "--api", srv.URL, "--user", "u1", "search", "-q", "rust")
	assert.ErrorContains(t, err, "unexpected request")
}

func TestUserRequired(t *testing.T) {
	srv := fakeService(t)
	_, err := run(t, "--api", srv.URL, "--user", "", "conversations", "list")
	assert.ErrorContains(t, err, "--user required")
}

func TestConversationCommands(t *testing.T) {
	srv := fakeService(t)

	out, err := run(t, "--api", srv.URL, "-u", "u1", "conversations", "create")
	require.NoError(t, err)
	assert.Equal(t, "c-123\n", out)

	out, err = run(t, "--api", srv.URL, "-u", "u1", "conversations", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "first"`)

	out, err = run(t, "--api", srv.URL, "-u", "u1", "conversations", "history", "c-123")
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "human"`)

	_, err = run(t, "--api", srv.URL, "-u", "u1", "conversations", "history", "nope")
	assert.ErrorContains(t, err, "http 404")
}

func TestChatCommandPrintsDeltas(t *testing.T) {
	srv := fakeService(t)
	out, err := run(t, "--api", srv.URL, "-u", "u1", "chat", "what is go")
	require.NoError(t, err)
	assert.Equal(t, "Hello\nsource: https://go.dev\n", out)
}
