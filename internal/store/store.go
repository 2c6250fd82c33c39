package store

import (
	"context"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
// Lookups of missing rows return errors matching model.ErrNotFound.
type Store interface {
	Users() Users
	Bookmarks() Bookmarks
	Conversations() Conversations
}

type Users interface {
	Upsert(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error)
	Get(ctx context.Context, userID string) (*model.UserProfile, error)
	// Ensure creates an empty profile for userID when none exists.
	Ensure(ctx context.Context, userID string) error
	Folders(ctx context.Context, userID string) ([]string, error)
	AddFolder(ctx context.Context, userID, folder string) error
	RemoveFolders(ctx context.Context, userID string, folders []string) error
}

type Bookmarks interface {
	Create(ctx context.Context, b *model.Bookmark) (*model.Bookmark, error)
	ListByURL(ctx context.Context, userID, url string) ([]*model.Bookmark, error)
	// Delete is idempotent; deleting a missing bookmark is not an error.
	Delete(ctx context.Context, userID, bookmarkID string) error
	DeleteByURL(ctx context.Context, userID, url string) error
}

type Conversations interface {
	Create(ctx context.Context, c *model.Conversation) (*model.Conversation, error)
	// CreateExchange stores a standalone question/answer record under id. An id that
	// is already stored is left unchanged.
	CreateExchange(ctx context.Context, userID, id string, ex *model.LegacyExchange) (*model.Conversation, error)
	Get(ctx context.Context, userID, conversationID string) (*model.ConversationRecord, error)
	// List returns the owner's conversations newest first.
	List(ctx context.Context, userID string) ([]*model.ConversationRecord, error)
	// SetTitleIfEmpty writes title only while none is set and reports whether it did.
	SetTitleIfEmpty(ctx context.Context, userID, conversationID, title string) (bool, error)
	// AppendMessage adds m to its conversation. It reports false when m.MessageID was already stored.
	AppendMessage(ctx context.Context, m *model.StoredMessage) (bool, error)
	// Messages returns the log ordered by timestamp, then insertion.
	Messages(ctx context.Context, userID, conversationID string) ([]*model.StoredMessage, error)
}
