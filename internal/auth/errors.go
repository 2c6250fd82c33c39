package auth

import (
	"fmt"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

var (
	// ErrMissingUserID is returned when the owner header is absent or blank.
	ErrMissingUserID = fmt.Errorf("%w: missing %s header", model.ErrUnauthenticated, OwnerHeader)

	// ErrInvalidUserID is returned when the owner id is malformed.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user identifier format", model.ErrUnauthenticated)
)
