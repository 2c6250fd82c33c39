// Package llm defines the streaming text generation contract used by chat.
package llm

import "context"

// Prompt is a rendered system instruction plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Stream yields incremental text. Recv returns io.EOF after the last delta.
// Deltas may be empty; callers decide whether to forward them.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Generator opens one streaming completion per call.
type Generator interface {
	Stream(ctx context.Context, p Prompt) (Stream, error)
}
