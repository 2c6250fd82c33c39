package api

import (
	"net/http"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

type ConversationHandler struct {
	svc *services.ConversationService
}

func NewConversationHandler(svc *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// CreateConversation handles PUT /conversation and replies with the new id as a JSON string.
func (h *ConversationHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	id, err := h.svc.Create(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, id)
}

// ListConversations handles GET /conversations.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListConversations(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetHistory handles GET /chat-history?conversation_id=.
func (h *ConversationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		respond.WriteBadRequest(w, "conversation_id is required")
		return
	}
	msgs, err := h.svc.GetHistory(r.Context(), auth.OwnerFrom(r.Context()), convID)
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, msgs)
}
