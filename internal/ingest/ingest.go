// Package ingest saves a bookmark and indexes its text, undoing both on failure.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/chunker"
	"github.com/bookmarkai/bookmark-server/internal/embeddings"
	"github.com/bookmarkai/bookmark-server/internal/metrics"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/store"
)

// Kind tags the payload carried by a Source.
type Kind int

const (
	KindText Kind = iota
	KindPDF
)

// Source is the document body: raw page text or PDF bytes.
type Source struct {
	Kind Kind
	Text string
	PDF  []byte
}

// Document is a bookmark submission.
type Document struct {
	Source    Source
	URL       string
	Title     string
	Folder    string
	Timestamp int64
	ImageURLs []string
}

// Result is the outcome reported to clients. A failure after the bookmark record was
// written is reported here rather than as an error, after rollback.
type Result struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	BookmarkID string `json:"-"`
}

// DefaultBatchSize is the number of chunks embedded and indexed per index write.
const DefaultBatchSize = 16

// Ingester wires chunking, embedding and indexing behind the owner's bookmark handle.
type Ingester struct {
	handles   *store.Handles
	splitter  *chunker.Splitter
	embedder  embeddings.Provider
	idx       searchindex.Index
	log       zerolog.Logger
	batchSize int
	retry     func() backoff.BackOff
}

// Option customises an Ingester.
type Option func(*Ingester)

// WithBatchSize sets how many chunks go into one index write.
func WithBatchSize(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.batchSize = n
		}
	}
}

// WithRetryWindow bounds retries of a failing index write.
func WithRetryWindow(d time.Duration) Option {
	return func(in *Ingester) {
		in.retry = func() backoff.BackOff {
			exp := backoff.NewExponentialBackOff()
			exp.InitialInterval = 200 * time.Millisecond
			exp.MaxInterval = 2 * time.Second
			exp.MaxElapsedTime = d
			exp.Reset()
			return exp
		}
	}
}

// New returns an Ingester writing bookmarks through h and chunks into idx.
func New(h *store.Handles, s *chunker.Splitter, e embeddings.Provider, idx searchindex.Index, log zerolog.Logger, opts ...Option) *Ingester {
	in := &Ingester{handles: h, splitter: s, embedder: e, idx: idx, log: log, batchSize: DefaultBatchSize}
	WithRetryWindow(10 * time.Second)(in)
	for _, o := range opts {
		o(in)
	}
	return in
}

func (k Kind) bookmarkKind() model.BookmarkKind {
	if k == KindPDF {
		return model.KindPDF
	}
	return model.KindURL
}

func (k Kind) label() string { return string(k.bookmarkKind()) }

// Ingest records the bookmark, then chunks, embeds and indexes its text.
// Errors are returned only when nothing was written.
func (in *Ingester) Ingest(ctx context.Context, ownerID string, doc Document) (Result, error) {
	if doc.URL == "" {
		return Result{}, model.Invalid("url is required")
	}
	text, err := in.text(doc.Source)
	if err != nil {
		return Result{}, err
	}
	h, err := in.handles.For(ownerID)
	if err != nil {
		return Result{}, err
	}
	ts := doc.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	b, err := h.AddBookmark(ctx, &model.Bookmark{
		URL:       doc.URL,
		Title:     doc.Title,
		Folder:    doc.Folder,
		Kind:      doc.Source.Kind.bookmarkKind(),
		Timestamp: ts,
	})
	if err != nil {
		metrics.IngestTotal.WithLabelValues(doc.Source.Kind.label(), "error").Inc()
		return Result{}, model.Wrap(model.ErrPersistenceFailure, "add bookmark", err)
	}

	chunks := in.splitter.Chunk(text, doc.Title, doc.URL, ownerID, b.ID)
	in.log.Info().Str("ownerId", ownerID).Str("bookmarkId", b.ID).Int("chunks", len(chunks)).Msg("created chunks")

	if err := in.index(ctx, chunks); err != nil {
		in.log.Error().Err(err).Str("ownerId", ownerID).Str("bookmarkId", b.ID).Msg("indexing failed; rolling back bookmark")
		in.rollback(ctx, h, b.ID)
		metrics.IngestTotal.WithLabelValues(doc.Source.Kind.label(), "rolled_back").Inc()
		return Result{Success: false, Error: err.Error(), BookmarkID: b.ID}, nil
	}
	metrics.IngestTotal.WithLabelValues(doc.Source.Kind.label(), "ok").Inc()
	metrics.IngestChunksTotal.Add(float64(len(chunks)))
	return Result{Success: true, BookmarkID: b.ID}, nil
}

func (in *Ingester) text(src Source) (string, error) {
	switch src.Kind {
	case KindText:
		return src.Text, nil
	case KindPDF:
		return ExtractPDFText(src.PDF)
	default:
		return "", model.Invalid("unknown source kind %d", src.Kind)
	}
}

func (in *Ingester) index(ctx context.Context, chunks []model.Chunk) error {
	for start := 0; start < len(chunks); start += in.batchSize {
		end := min(start+in.batchSize, len(chunks))
		batch := chunks[start:end]
		vectors := make([][]float32, 0, len(batch))
		for _, c := range batch {
			v, err := in.embedder.Embed(ctx, c.Content)
			if err != nil {
				return model.Wrap(model.ErrRetrievalFailure, "embed chunk", err)
			}
			vectors = append(vectors, v)
		}
		op := func() error {
			err := in.idx.AddChunks(ctx, batch, vectors)
			if errors.Is(err, model.ErrInvalidArgument) {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := backoff.Retry(op, backoff.WithContext(in.retry(), ctx)); err != nil {
			return err
		}
	}
	return nil
}

// rollback removes whatever was indexed and the bookmark record, detached from request cancellation.
func (in *Ingester) rollback(ctx context.Context, h *store.OwnerHandle, bookmarkID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := in.idx.DeleteBySources(rctx, h.OwnerID(), []string{bookmarkID}); err != nil {
		in.log.Error().Err(err).Str("bookmarkId", bookmarkID).Msg("rollback: index delete failed")
	}
	if err := h.DeleteBookmark(rctx, bookmarkID); err != nil {
		in.log.Error().Err(err).Str("bookmarkId", bookmarkID).Msg("rollback: bookmark delete failed")
	}
}
