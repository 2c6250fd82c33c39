package api

import (
	"encoding/json"
	"net/http"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) *UserHandler { return &UserHandler{svc: svc} }

// UpsertUser handles PUT /user for the calling owner.
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email            string `json:"email"`
		Name             string `json:"name"`
		SubscriptionType string `json:"subscription_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	u := &model.UserProfile{
		UserID:           auth.OwnerFrom(r.Context()),
		Email:            in.Email,
		Name:             in.Name,
		SubscriptionType: in.SubscriptionType,
	}
	out, err := h.svc.UpsertUser(r.Context(), u)
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// GetUser handles GET /user.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.GetUser(r.Context(), auth.OwnerFrom(r.Context()))
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, u)
}
