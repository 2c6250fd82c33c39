package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookmarkai/bookmark-server/internal/api/recovery"
	"github.com/bookmarkai/bookmark-server/internal/api/respond"
	"github.com/bookmarkai/bookmark-server/internal/auth"
	"github.com/bookmarkai/bookmark-server/internal/ingest"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Chat          TurnRunner
	Search        Searcher
	Conversations *services.ConversationService
	Bookmarks     *services.BookmarkService
	Ingester      *ingest.Ingester
	Users         *services.UserService
	Limiter       *OwnerLimiter
	SearchAlpha   float32
	IsHealthy     func() bool
	Components    func() map[string]bool
}

// NewRouter creates the HTTP router. Every route except health and metrics requires
// the owner header.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)
	router.Use(auth.Middleware(respond.WriteErr, "/api/health", "/metrics"))

	limited := func(route string, h http.HandlerFunc) http.HandlerFunc {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Middleware(route, h)
	}

	healthHandler := NewHealthHandler(d.IsHealthy, d.Components)
	chatHandler := NewChatHandler(d.Chat)
	searchHandler := NewSearchHandler(d.Search, d.SearchAlpha)
	convHandler := NewConversationHandler(d.Conversations)
	bookmarkHandler := NewBookmarkHandler(d.Ingester, d.Bookmarks)
	userHandler := NewUserHandler(d.Users)

	// Health and metrics
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Chat and retrieval
	router.HandleFunc("/chat", limited("chat", chatHandler.Chat)).Methods("GET")
	router.HandleFunc("/search", searchHandler.HandleSearch).Methods("POST")

	// Conversations
	router.HandleFunc("/conversation", convHandler.CreateConversation).Methods("PUT")
	router.HandleFunc("/conversations", convHandler.ListConversations).Methods("GET")
	router.HandleFunc("/chat-history", convHandler.GetHistory).Methods("GET")

	// Bookmarks
	router.HandleFunc("/store", bookmarkHandler.Store).Methods("POST")
	router.HandleFunc("/storepdf", bookmarkHandler.StorePDF).Methods("POST")
	router.HandleFunc("/info", bookmarkHandler.Info).Methods("GET")
	router.HandleFunc("/batch-delete", bookmarkHandler.BatchDelete).Methods("POST")

	// User profile
	router.HandleFunc("/user", userHandler.UpsertUser).Methods("PUT")
	router.HandleFunc("/user", userHandler.GetUser).Methods("GET")

	return router
}
