package model

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// BookmarkKind records how a bookmark's text was obtained.
type BookmarkKind string

const (
	KindURL BookmarkKind = "url"
	KindPDF BookmarkKind = "pdf"
)

// Chunk is one contiguous piece of a saved document. All chunks of a document share SourceID.
type Chunk struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	OwnerID  string `json:"ownerId"`
	SourceID string `json:"sourceId"`
	Index    int    `json:"index"`
}

// RetrievedItem is a chunk returned by the vector index. Score is nil when the backend
// did not report one; semantic and hybrid scores are not comparable.
type RetrievedItem struct {
	Content  string   `json:"content"`
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	SourceID string   `json:"sourceId"`
	Score    *float64 `json:"score,omitempty"`
}

// Metadata projects the item onto its client-visible shape.
func (r RetrievedItem) Metadata() ItemMetadata {
	return ItemMetadata{URL: r.URL, Title: r.Title, ID: r.SourceID, SimilarityScore: r.Score}
}

// ItemMetadata is the wire and persisted form of a retrieved item.
type ItemMetadata struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	ID              string   `json:"id"`
	SimilarityScore *float64 `json:"similarity_score"`
}

// MetadataOf projects every item.
func MetadataOf(items []RetrievedItem) []ItemMetadata {
	out := make([]ItemMetadata, 0, len(items))
	for _, it := range items {
		out = append(out, it.Metadata())
	}
	return out
}

// ContextWindow is an ordered prefix of retrieved items whose token total fits Budget.
type ContextWindow struct {
	Items  []RetrievedItem
	Tokens int
	Budget int
}

// ConversationMessage is one entry of a conversation's append-only log.
// UsedContext is nil when absent (always for human messages).
type ConversationMessage struct {
	Role        Role           `json:"role"`
	Content     string         `json:"content"`
	UsedContext []ItemMetadata `json:"used_context"`
	Timestamp   int64          `json:"timestamp"`
}

// StoredMessage is a ConversationMessage as persisted, with its idempotency key.
type StoredMessage struct {
	MessageID      string
	ConversationID string
	OwnerID        string
	Message        ConversationMessage
}

// Conversation is the structured conversation header.
type Conversation struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"-"`
	Title     *string `json:"title"`
	Timestamp int64   `json:"timestamp"`
}

// LegacyExchange is the older single question/answer record shape.
type LegacyExchange struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	ContextURLs []string `json:"context_urls"`
	Timestamp   int64    `json:"timestamp"`
}

// ConversationRecord is a stored conversation. Legacy is non-nil only for records
// written in the question/answer shape.
type ConversationRecord struct {
	Conversation
	Legacy *LegacyExchange
}

// ConversationSummary is a list entry.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserProfile is the owner's profile and folder set.
type UserProfile struct {
	UserID           string   `json:"userId"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Folders          []string `json:"folders"`
	SubscriptionType string   `json:"subscription_type"`
}

// Bookmark is a saved page or PDF.
type Bookmark struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"-"`
	URL       string       `json:"url"`
	Title     string       `json:"title"`
	Folder    string       `json:"folder"`
	Kind      BookmarkKind `json:"type"`
	Timestamp int64        `json:"timestamp"`
}

// EncodeUsedContext serialises used context for storage; nil stays NULL.
func EncodeUsedContext(items []ItemMetadata) (*string, error) {
	if items == nil {
		return nil, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// DecodeUsedContext accepts both stored shapes: a list of metadata objects or a list of
// bare URL strings. Bare URLs become metadata with empty title and id.
func DecodeUsedContext(raw *string) ([]ItemMetadata, error) {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &elems); err != nil {
		return nil, fmt.Errorf("used_context: %w", err)
	}
	out := make([]ItemMetadata, 0, len(elems))
	for _, e := range elems {
		var url string
		if err := json.Unmarshal(e, &url); err == nil {
			out = append(out, ItemMetadata{URL: url})
			continue
		}
		var md ItemMetadata
		if err := json.Unmarshal(e, &md); err != nil {
			return nil, fmt.Errorf("used_context element: %w", err)
		}
		out = append(out, md)
	}
	return out, nil
}
