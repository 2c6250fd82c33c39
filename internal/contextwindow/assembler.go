// Package contextwindow retrieves owner-scoped chunks for a question and fits them to a token budget.
package contextwindow

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/embeddings"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/tokenizer"
)

// Separator joins item contents in the rendered context.
const Separator = "\n\n"

// LimitContext returns the longest prefix of items whose token total fits budget.
// It stops at the first item that would overflow; later, smaller items are not considered.
func LimitContext(items []model.RetrievedItem, budget int, tok tokenizer.Tokenizer) model.ContextWindow {
	w := model.ContextWindow{Items: []model.RetrievedItem{}, Budget: budget}
	for _, it := range items {
		n := tok.Count(it.Content)
		if w.Tokens+n > budget {
			break
		}
		w.Items = append(w.Items, it)
		w.Tokens += n
	}
	return w
}

// Format renders the window as prompt context.
func Format(w model.ContextWindow) string {
	parts := make([]string, 0, len(w.Items))
	for _, it := range w.Items {
		parts = append(parts, it.Content)
	}
	return strings.Join(parts, Separator)
}

// Options tune retrieval.
type Options struct {
	Budget    int
	Certainty float32
	Limit     int
}

// Assembler embeds the question, runs a semantic search and budgets the result.
type Assembler struct {
	embedder embeddings.Provider
	index    searchindex.Index
	tok      tokenizer.Tokenizer
	opts     Options
	log      zerolog.Logger
	observe  func(time.Duration)
}

// New creates an Assembler. observe, when non-nil, receives retrieval latency.
func New(embedder embeddings.Provider, index searchindex.Index, tok tokenizer.Tokenizer, opts Options, log zerolog.Logger, observe func(time.Duration)) *Assembler {
	return &Assembler{embedder: embedder, index: index, tok: tok, opts: opts, log: log, observe: observe}
}

// Retrieve builds the context window for question. A non-empty selected list restricts
// retrieval to those documents; nil or empty means the owner's whole corpus.
func (a *Assembler) Retrieve(ctx context.Context, question, ownerID string, selected []string) (model.ContextWindow, error) {
	start := time.Now()
	defer func() {
		if a.observe != nil {
			a.observe(time.Since(start))
		}
	}()

	if ownerID == "" {
		return model.ContextWindow{}, model.Invalid("owner id is required")
	}
	vec, err := a.embedder.Embed(ctx, question)
	if err != nil {
		return model.ContextWindow{}, model.Wrap(model.ErrRetrievalFailure, "embed question", err)
	}
	items, err := a.index.Search(ctx, searchindex.Query{
		Text:           question,
		Vector:         vec,
		OwnerID:        ownerID,
		Mode:           searchindex.ModeSemantic,
		Certainty:      a.opts.Certainty,
		Limit:          a.opts.Limit,
		SourceIDs:      selected,
		FilterBySource: len(selected) > 0,
	})
	if err != nil {
		return model.ContextWindow{}, err
	}
	w := LimitContext(items, a.opts.Budget, a.tok)
	a.log.Debug().
		Str("ownerId", ownerID).
		Int("retrieved", len(items)).
		Int("kept", len(w.Items)).
		Int("tokens", w.Tokens).
		Int("budget", w.Budget).
		Msg("context assembled")
	return w, nil
}
