// Package chunker splits document text into overlapping, size-bounded chunks.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of overlapping characters.
	DefaultChunkOverlap = 100
	// DefaultSeparator splits text into sentence-like pieces before merging.
	DefaultSeparator = "."
)

// Splitter splits text on a separator and greedily merges the pieces into chunks of at
// most chunkSize characters, carrying up to overlap characters into the next chunk.
// A single piece longer than chunkSize becomes its own oversized chunk.
type Splitter struct {
	chunkSize int
	overlap   int
	separator string
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparator sets the piece separator.
func WithSeparator(sep string) Option {
	return func(s *Splitter) {
		if sep != "" {
			s.separator = sep
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		separator: DefaultSeparator,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Split returns the chunk texts in document order.
func (s *Splitter) Split(text string) []string {
	var pieces []string
	for _, p := range strings.Split(text, s.separator) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return s.merge(pieces)
}

// Chunk splits text and stamps each piece with the owning document's identity.
func (s *Splitter) Chunk(text, title, url, ownerID, sourceID string) []model.Chunk {
	texts := s.Split(text)
	chunks := make([]model.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, model.Chunk{
			Content:  t,
			Title:    title,
			URL:      url,
			OwnerID:  ownerID,
			SourceID: sourceID,
			Index:    i,
		})
	}
	return chunks
}

func (s *Splitter) merge(pieces []string) []string {
	sepLen := utf8.RuneCountInString(s.separator)
	sepIf := func(cond bool) int {
		if cond {
			return sepLen
		}
		return 0
	}

	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n+sepIf(len(current) > 0) > s.chunkSize && len(current) > 0 {
			if doc, ok := s.join(current); ok {
				docs = append(docs, doc)
			}
			// drop leading pieces until what remains fits as overlap and leaves room for p
			for total > s.overlap || (total+n+sepIf(len(current) > 0) > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(current[0]) + sepIf(len(current) > 1)
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n + sepIf(len(current) > 1)
	}
	if doc, ok := s.join(current); ok {
		docs = append(docs, doc)
	}
	return docs
}

func (s *Splitter) join(pieces []string) (string, bool) {
	doc := strings.TrimSpace(strings.Join(pieces, s.separator))
	return doc, doc != ""
}
