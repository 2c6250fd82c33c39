package services

import (
	"context"

	"github.com/bookmarkai/bookmark-server/internal/model"
	"github.com/bookmarkai/bookmark-server/internal/store"
)

// UserService handles user profile operations.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService { return &UserService{store: s} }

// UpsertUser creates or replaces the profile fields of userID. Folders are left untouched.
func (s *UserService) UpsertUser(ctx context.Context, u *model.UserProfile) (*model.UserProfile, error) {
	if u == nil || u.UserID == "" {
		return nil, model.Invalid("user id is required")
	}
	out, err := s.store.Users().Upsert(ctx, u)
	return out, persistErr("upsert user", err)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	out, err := s.store.Users().Get(ctx, userID)
	return out, persistErr("get user", err)
}
