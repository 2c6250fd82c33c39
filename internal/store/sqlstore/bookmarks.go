package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

type bookmarks struct{ s *Store }

func (b *bookmarks) Create(ctx context.Context, m *model.Bookmark) (*model.Bookmark, error) {
	if m.OwnerID == "" || m.URL == "" {
		return nil, model.Invalid("bookmark owner and url are required")
	}
	out := *m
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Timestamp == 0 {
		out.Timestamp = time.Now().Unix()
	}
	if out.Kind == "" {
		out.Kind = model.KindURL
	}
	_, err := b.s.db.ExecContext(ctx, b.s.q(`
        INSERT INTO {bookmarks} (bookmark_id, user_id, url, title, folder, kind, ts)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
    `), out.ID, out.OwnerID, out.URL, out.Title, out.Folder, string(out.Kind), out.Timestamp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *bookmarks) ListByURL(ctx context.Context, userID, url string) ([]*model.Bookmark, error) {
	rows, err := b.s.db.QueryContext(ctx, b.s.q(`
        SELECT bookmark_id, user_id, url, title, folder, kind, ts
        FROM {bookmarks} WHERE user_id=$1 AND url=$2
        ORDER BY ts DESC
    `), userID, url)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.Bookmark{}
	for rows.Next() {
		var m model.Bookmark
		var kind string
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.URL, &m.Title, &m.Folder, &kind, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Kind = model.BookmarkKind(kind)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (b *bookmarks) Delete(ctx context.Context, userID, bookmarkID string) error {
	_, err := b.s.db.ExecContext(ctx, b.s.q(`DELETE FROM {bookmarks} WHERE user_id=$1 AND bookmark_id=$2`), userID, bookmarkID)
	return err
}

func (b *bookmarks) DeleteByURL(ctx context.Context, userID, url string) error {
	_, err := b.s.db.ExecContext(ctx, b.s.q(`DELETE FROM {bookmarks} WHERE user_id=$1 AND url=$2`), userID, url)
	return err
}
