package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	// Unique test identifiers
	userID := "u-" + uuid.New().String()
	other := "u-" + uuid.New().String()

	// Users
	if _, err := s.Users().Get(ctx, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUser missing: want not found, got %v", err)
	}
	if _, err := s.Users().Folders(ctx, userID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Folders missing user: want not found, got %v", err)
	}
	p, err := s.Users().Upsert(ctx, &model.UserProfile{UserID: userID, Email: "a@example.test", Name: "A"})
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if p.SubscriptionType != "free" || len(p.Folders) != 0 {
		t.Fatalf("UpsertUser defaults: %+v", p)
	}
	if p, err = s.Users().Upsert(ctx, &model.UserProfile{UserID: userID, Email: "b@example.test", Name: "B", SubscriptionType: "pro"}); err != nil || p.Email != "b@example.test" || p.SubscriptionType != "pro" {
		t.Fatalf("UpsertUser update: got=%+v err=%v", p, err)
	}
	if err := s.Users().Ensure(ctx, userID); err != nil {
		t.Fatalf("Ensure existing: %v", err)
	}
	if got, err := s.Users().Get(ctx, userID); err != nil || got.Name != "B" {
		t.Fatalf("Ensure must not reset profile: got=%+v err=%v", got, err)
	}

	// Folders
	for _, f := range []string{"news", "recipes", "news"} {
		if err := s.Users().AddFolder(ctx, userID, f); err != nil {
			t.Fatalf("AddFolder %s: %v", f, err)
		}
	}
	if fs, err := s.Users().Folders(ctx, userID); err != nil || len(fs) != 2 {
		t.Fatalf("Folders: got=%v err=%v", fs, err)
	}
	if err := s.Users().AddFolder(ctx, other, "auto"); err != nil {
		t.Fatalf("AddFolder creates profile: %v", err)
	}
	if fs, err := s.Users().Folders(ctx, other); err != nil || len(fs) != 1 || fs[0] != "auto" {
		t.Fatalf("Folders other: got=%v err=%v", fs, err)
	}
	if err := s.Users().RemoveFolders(ctx, userID, []string{"news", "missing"}); err != nil {
		t.Fatalf("RemoveFolders: %v", err)
	}
	if fs, _ := s.Users().Folders(ctx, userID); len(fs) != 1 || fs[0] != "recipes" {
		t.Fatalf("Folders after remove: %v", fs)
	}

	// Bookmarks
	b1, err := s.Bookmarks().Create(ctx, &model.Bookmark{OwnerID: userID, URL: "https://a.test", Title: "A", Folder: "recipes"})
	if err != nil || b1.ID == "" || b1.Kind != model.KindURL {
		t.Fatalf("CreateBookmark: got=%+v err=%v", b1, err)
	}
	if _, err := s.Bookmarks().Create(ctx, &model.Bookmark{OwnerID: userID, URL: "https://a.test", Title: "A2", Kind: model.KindPDF, Timestamp: b1.Timestamp + 10}); err != nil {
		t.Fatalf("CreateBookmark duplicate url: %v", err)
	}
	lst, err := s.Bookmarks().ListByURL(ctx, userID, "https://a.test")
	if err != nil || len(lst) != 2 || lst[0].Kind != model.KindPDF {
		t.Fatalf("ListByURL: n=%d err=%v", len(lst), err)
	}
	if lst, _ := s.Bookmarks().ListByURL(ctx, other, "https://a.test"); len(lst) != 0 {
		t.Fatalf("ListByURL must be owner scoped, got %d", len(lst))
	}
	if err := s.Bookmarks().Delete(ctx, userID, b1.ID); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	if err := s.Bookmarks().Delete(ctx, userID, b1.ID); err != nil {
		t.Fatalf("DeleteBookmark twice: %v", err)
	}
	if err := s.Bookmarks().DeleteByURL(ctx, userID, "https://a.test"); err != nil {
		t.Fatalf("DeleteByURL: %v", err)
	}
	if lst, _ := s.Bookmarks().ListByURL(ctx, userID, "https://a.test"); len(lst) != 0 {
		t.Fatalf("ListByURL after delete: %d", len(lst))
	}

	// Conversations
	conv, err := s.Conversations().Create(ctx, &model.Conversation{OwnerID: userID})
	if err != nil || conv.ID == "" || conv.Title != nil {
		t.Fatalf("CreateConversation: got=%+v err=%v", conv, err)
	}
	if _, err := s.Conversations().Get(ctx, other, conv.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetConversation other owner: want not found, got %v", err)
	}
	ok, err := s.Conversations().SetTitleIfEmpty(ctx, userID, conv.ID, "first")
	if err != nil || !ok {
		t.Fatalf("SetTitleIfEmpty: ok=%v err=%v", ok, err)
	}
	if ok, _ := s.Conversations().SetTitleIfEmpty(ctx, userID, conv.ID, "second"); ok {
		t.Fatalf("SetTitleIfEmpty must not overwrite")
	}
	rec, err := s.Conversations().Get(ctx, userID, conv.ID)
	if err != nil || rec.Title == nil || *rec.Title != "first" || rec.Legacy != nil {
		t.Fatalf("GetConversation: got=%+v err=%v", rec, err)
	}

	// Messages
	now := time.Now().Unix()
	score := 0.9
	msgs := []*model.StoredMessage{
		{MessageID: uuid.New().String(), ConversationID: conv.ID, OwnerID: userID, Message: model.ConversationMessage{Role: model.RoleHuman, Content: "hi", Timestamp: now}},
		{MessageID: uuid.New().String(), ConversationID: conv.ID, OwnerID: userID, Message: model.ConversationMessage{Role: model.RoleAssistant, Content: "hello", Timestamp: now,
			UsedContext: []model.ItemMetadata{{URL: "https://a.test", Title: "A", ID: "s1", SimilarityScore: &score}}}},
	}
	for _, m := range msgs {
		if ins, err := s.Conversations().AppendMessage(ctx, m); err != nil || !ins {
			t.Fatalf("AppendMessage: inserted=%v err=%v", ins, err)
		}
	}
	if ins, err := s.Conversations().AppendMessage(ctx, msgs[1]); err != nil || ins {
		t.Fatalf("AppendMessage replay: inserted=%v err=%v", ins, err)
	}
	missing := *msgs[0]
	missing.MessageID = uuid.New().String()
	missing.ConversationID = uuid.New().String()
	if _, err := s.Conversations().AppendMessage(ctx, &missing); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("AppendMessage unknown conversation: want not found, got %v", err)
	}
	log, err := s.Conversations().Messages(ctx, userID, conv.ID)
	if err != nil || len(log) != 2 {
		t.Fatalf("Messages: n=%d err=%v", len(log), err)
	}
	if log[0].Message.Role != model.RoleHuman || log[0].Message.UsedContext != nil {
		t.Fatalf("Messages[0]: %+v", log[0].Message)
	}
	if len(log[1].Message.UsedContext) != 1 || log[1].Message.UsedContext[0].ID != "s1" || *log[1].Message.UsedContext[0].SimilarityScore != score {
		t.Fatalf("Messages[1] used context: %+v", log[1].Message.UsedContext)
	}

	// Legacy exchanges and listing order
	ex, err := s.Conversations().CreateExchange(ctx, userID, "", &model.LegacyExchange{Question: "q?", Answer: "a.", ContextURLs: []string{"https://a.test"}, Timestamp: now + 5})
	if err != nil {
		t.Fatalf("CreateExchange: %v", err)
	}
	// Replaying an exchange id keeps the first record
	if _, err := s.Conversations().CreateExchange(ctx, userID, ex.ID, &model.LegacyExchange{Question: "replayed?", Answer: "b.", Timestamp: now + 5}); err != nil {
		t.Fatalf("CreateExchange replay: %v", err)
	}
	rec, err = s.Conversations().Get(ctx, userID, ex.ID)
	if err != nil || rec.Legacy == nil || rec.Legacy.Question != "q?" || len(rec.Legacy.ContextURLs) != 1 {
		t.Fatalf("Get exchange: got=%+v err=%v", rec, err)
	}
	all, err := s.Conversations().List(ctx, userID)
	if err != nil || len(all) != 2 || all[0].ID != ex.ID {
		t.Fatalf("ListConversations: n=%d err=%v", len(all), err)
	}
	if all, _ := s.Conversations().List(ctx, other); len(all) != 0 {
		t.Fatalf("ListConversations must be owner scoped, got %d", len(all))
	}
}
