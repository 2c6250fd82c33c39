package chat

import (
	"github.com/bookmarkai/bookmark-server/internal/model"
)

// Event is either a delta (Done=false) or the single terminal event of a turn, which
// carries the full answer or the error that ended generation.
type Event struct {
	Delta   string
	Full    string
	Context []model.RetrievedItem
	Done    bool
	Err     error
}

// Sink receives a turn's events in order. A Send error means the consumer is gone.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

func (f SinkFunc) Send(e Event) error { return f(e) }

// WireEvent is the JSON shape clients receive for each event.
type WireEvent struct {
	ChatResponse string               `json:"chat_response"`
	Documents    []model.ItemMetadata `json:"documents"`
	Done         bool                 `json:"done"`
	Error        string               `json:"error,omitempty"`
}

// Wire projects e onto its client shape.
func (e Event) Wire() WireEvent {
	w := WireEvent{ChatResponse: e.Delta, Documents: model.MetadataOf(e.Context), Done: e.Done}
	if e.Done {
		w.ChatResponse = e.Full
	}
	if e.Err != nil {
		w.Error = e.Err.Error()
	}
	return w
}
