package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/api/validate"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

// Searcher runs owner-scoped bookmark searches.
type Searcher interface {
	Search(ctx context.Context, ownerID string, req services.SearchRequest) ([]model.ItemMetadata, error)
}

type SearchHandler struct {
	svc   Searcher
	alpha float32
}

// NewSearchHandler uses alpha for hybrid requests that omit it; zero selects the service default.
func NewSearchHandler(s Searcher, alpha float32) *SearchHandler {
	if alpha == 0 {
		alpha = services.DefaultSearchAlpha
	}
	return &SearchHandler{svc: s, alpha: alpha}
}

type searchRequest struct {
	Query       string   `json:"query"`
	UseHybrid   *bool    `json:"use_hybrid,omitempty"`
	Certainty   *float32 `json:"certainty,omitempty"`
	LimitChunks *int     `json:"limit_chunks,omitempty"`
	Alpha       *float32 `json:"alpha,omitempty"`
}

// toService applies defaults to omitted fields.
func (in searchRequest) toService(alpha float32) services.SearchRequest {
	out := services.SearchRequest{
		Query:     in.Query,
		UseHybrid: true,
		Certainty: services.DefaultSearchCertainty,
		Alpha:     alpha,
		Limit:     services.DefaultSearchLimit,
	}
	if in.UseHybrid != nil {
		out.UseHybrid = *in.UseHybrid
	}
	if in.Certainty != nil {
		out.Certainty = *in.Certainty
	}
	if in.Alpha != nil {
		out.Alpha = *in.Alpha
	}
	if in.LimitChunks != nil {
		out.Limit = *in.LimitChunks
	}
	return out
}

// HandleSearch handles POST /search.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	req := in.toService(h.alpha)
	if err := validate.SearchParams(req.Query, req.Certainty, req.Alpha, req.Limit); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	items, err := h.svc.Search(r.Context(), auth.OwnerFrom(r.Context()), req)
	if err != nil {
		respond.WriteErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, items)
}
