package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/store"
)

// TitleMaxRunes bounds a conversation title derived from its first question.
const TitleMaxRunes = 250

var messageNamespace = uuid.MustParse("9b0f6d3e-5a52-4c1e-8f0e-6c7b8a1d2e47")

// MessageID derives the idempotency key of the message role writes for a turn.
func MessageID(conversationID, turnID string, role model.Role) string {
	return uuid.NewSHA1(messageNamespace, []byte(conversationID+":"+turnID+":"+string(role))).String()
}

// Title truncates the first human message into a conversation title.
func Title(content string) string {
	if utf8.RuneCountInString(content) <= TitleMaxRunes {
		return content
	}
	return string([]rune(content)[:TitleMaxRunes]) + "..."
}

// ConversationService manages conversation headers and their message logs.
type ConversationService struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewConversationService returns a service persisting conversations in s.
func NewConversationService(s store.Store, log zerolog.Logger) *ConversationService {
	return &ConversationService{store: s, log: log, now: time.Now}
}

// Create starts an untitled conversation and returns its id.
func (s *ConversationService) Create(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", model.Invalid("owner id is required")
	}
	c, err := s.store.Conversations().Create(ctx, &model.Conversation{OwnerID: ownerID, Timestamp: s.now().Unix()})
	if err != nil {
		return "", persistErr("create conversation", err)
	}
	return c.ID, nil
}

// GetHistory returns the conversation's messages in order. Conversations stored as a
// single question/answer record are presented as a human and an assistant message.
// A conversation that cannot be read yields an empty history.
func (s *ConversationService) GetHistory(ctx context.Context, ownerID, conversationID string) ([]model.ConversationMessage, error) {
	if ownerID == "" || conversationID == "" {
		return nil, model.Invalid("owner id and conversation id are required")
	}
	rec, err := s.store.Conversations().Get(ctx, ownerID, conversationID)
	if err != nil {
		s.log.Warn().Err(err).Str("ownerId", ownerID).Str("conversationId", conversationID).Msg("conversation unreadable; returning empty history")
		return []model.ConversationMessage{}, nil
	}
	stored, err := s.store.Conversations().Messages(ctx, ownerID, conversationID)
	if err != nil {
		return nil, persistErr("read messages", err)
	}
	if len(stored) == 0 && rec.Legacy != nil {
		return legacyHistory(rec.Legacy), nil
	}
	out := make([]model.ConversationMessage, 0, len(stored))
	for _, m := range stored {
		out = append(out, m.Message)
	}
	return out, nil
}

func legacyHistory(ex *model.LegacyExchange) []model.ConversationMessage {
	used := make([]model.ItemMetadata, 0, len(ex.ContextURLs))
	for _, u := range ex.ContextURLs {
		used = append(used, model.ItemMetadata{URL: u})
	}
	return []model.ConversationMessage{
		{Role: model.RoleHuman, Content: ex.Question, Timestamp: ex.Timestamp},
		{Role: model.RoleAssistant, Content: ex.Answer, UsedContext: used, Timestamp: ex.Timestamp},
	}
}

// AppendMessage adds msg under messageID. Replaying a stored messageID is a no-op and
// reports false. The first human message titles the conversation.
func (s *ConversationService) AppendMessage(ctx context.Context, ownerID, conversationID string, msg model.ConversationMessage, messageID string) (bool, error) {
	if ownerID == "" || conversationID == "" {
		return false, model.Invalid("owner id and conversation id are required")
	}
	if messageID == "" {
		messageID = uuid.New().String()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now().Unix()
	}
	if msg.Role == model.RoleHuman {
		msg.UsedContext = nil
	}
	inserted, err := s.store.Conversations().AppendMessage(ctx, &model.StoredMessage{
		MessageID:      messageID,
		ConversationID: conversationID,
		OwnerID:        ownerID,
		Message:        msg,
	})
	if err != nil {
		return false, persistErr("append message", err)
	}
	if msg.Role == model.RoleHuman {
		if _, err := s.store.Conversations().SetTitleIfEmpty(ctx, ownerID, conversationID, Title(msg.Content)); err != nil {
			return inserted, persistErr("set title", err)
		}
	}
	return inserted, nil
}

// ListConversations returns the owner's conversations newest first. Untitled
// question/answer records are listed under their question.
func (s *ConversationService) ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error) {
	if ownerID == "" {
		return nil, model.Invalid("owner id is required")
	}
	recs, err := s.store.Conversations().List(ctx, ownerID)
	if err != nil {
		return nil, persistErr("list conversations", err)
	}
	out := make([]model.ConversationSummary, 0, len(recs))
	for _, r := range recs {
		title := ""
		switch {
		case r.Title != nil && *r.Title != "":
			title = *r.Title
		case r.Legacy != nil:
			title = r.Legacy.Question
		}
		out = append(out, model.ConversationSummary{ID: r.ID, Title: title})
	}
	return out, nil
}

// ExchangeID derives the record id of the standalone exchange written for a turn.
func ExchangeID(ownerID, turnID string) string {
	return uuid.NewSHA1(messageNamespace, []byte(ownerID+":"+turnID)).String()
}

// StoreExchange records a standalone question and answer with the distinct URLs of
// the context it used. Storing the same exchangeID twice keeps the first record.
func (s *ConversationService) StoreExchange(ctx context.Context, ownerID, exchangeID, question, answer string, items []model.RetrievedItem) (string, error) {
	if ownerID == "" {
		return "", model.Invalid("owner id is required")
	}
	c, err := s.store.Conversations().CreateExchange(ctx, ownerID, exchangeID, &model.LegacyExchange{
		Question:    question,
		Answer:      answer,
		ContextURLs: distinctURLs(items),
		Timestamp:   s.now().Unix(),
	})
	if err != nil {
		return "", persistErr("store exchange", err)
	}
	return c.ID, nil
}

func distinctURLs(items []model.RetrievedItem) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if seen[it.URL] {
			continue
		}
		seen[it.URL] = true
		out = append(out, it.URL)
	}
	return out
}
