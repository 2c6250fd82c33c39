// Package sse writes server-sent events, one JSON object per event.
package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("sse: response writer does not support flushing")

// Writer frames events onto an HTTP response. Headers are sent with the first event,
// so a handler can still answer with a plain status until then. It is not safe for
// concurrent use.
type Writer struct {
	w       http.ResponseWriter
	f       http.Flusher
	r       *http.Request
	started bool
}

func NewWriter(w http.ResponseWriter, r *http.Request) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &Writer{w: w, f: f, r: r}, nil
}

// Started reports whether any event has been written.
func (s *Writer) Started() bool { return s.started }

// Send writes v as one `data:` event and flushes. It fails once the client is gone.
func (s *Writer) Send(v any) error {
	if err := s.r.Context().Err(); err != nil {
		return fmt.Errorf("sse: client gone: %w", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: encode event: %w", err)
	}
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	s.f.Flush()
	return nil
}
