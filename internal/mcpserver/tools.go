// Package mcpserver exposes bookmark search and conversation history as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

// Searcher runs owner-scoped bookmark searches.
type Searcher interface {
	Search(ctx context.Context, ownerID string, req services.SearchRequest) ([]model.ItemMetadata, error)
}

// History reads conversations.
type History interface {
	ListConversations(ctx context.Context, ownerID string) ([]model.ConversationSummary, error)
	GetHistory(ctx context.Context, ownerID, conversationID string) ([]model.ConversationMessage, error)
}

// Handler serves the bookmark tools.
type Handler struct {
	search  Searcher
	history History
}

func NewHandler(s Searcher, h History) *Handler {
	return &Handler{search: s, history: h}
}

// RegisterTools registers search_bookmarks, list_conversations and chat_history.
func (h *Handler) RegisterTools(s *server.MCPServer) error {
	searchTool := mcp.NewTool("search_bookmarks",
		mcp.WithDescription("Search the owner's saved bookmarks. Returns one entry per document with url, title, id and similarity_score, best match first."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Opaque owner id")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query text")),
		mcp.WithBoolean("use_hybrid", mcp.Description("Blend keyword and vector relevance (default true)")),
		mcp.WithNumber("limit", mcp.Description("Chunks to retrieve before de-duplication (1-100, default 10)")),
	)
	s.AddTool(searchTool, h.handleSearch)

	listTool := mcp.NewTool("list_conversations",
		mcp.WithDescription("List the owner's conversations, newest first."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Opaque owner id")),
	)
	s.AddTool(listTool, h.handleList)

	historyTool := mcp.NewTool("chat_history",
		mcp.WithDescription("Return the messages of one conversation in order."),
		mcp.WithString("owner_id", mcp.Required(), mcp.Description("Opaque owner id")),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	)
	s.AddTool(historyTool, h.handleHistory)
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (h *Handler) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := services.DefaultSearchLimit
	if v, ok := req.GetArguments()["limit"].(float64); ok && v >= 1 && v <= 100 {
		limit = int(v)
	}
	items, err := h.search.Search(ctx, owner, services.SearchRequest{
		Query:     query,
		UseHybrid: req.GetBool("use_hybrid", true),
		Certainty: services.DefaultSearchCertainty,
		Alpha:     services.DefaultSearchAlpha,
		Limit:     limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(items)
}

func (h *Handler) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := h.history.ListConversations(ctx, owner)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list conversations failed: %v", err)), nil
	}
	return jsonResult(out)
}

func (h *Handler) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	convID, err := req.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msgs, err := h.history.GetHistory(ctx, owner, convID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chat history failed: %v", err)), nil
	}
	return jsonResult(msgs)
}

// NewServer builds an MCP server with the bookmark tools registered.
func NewServer(name, version string, h *Handler) (*server.MCPServer, error) {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))
	if err := h.RegisterTools(s); err != nil {
		return nil, err
	}
	return s, nil
}
