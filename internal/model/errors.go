package model

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; Wrap keeps the cause reachable too.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("owner identification required")
	ErrRetrievalFailure   = errors.New("retrieval failure")
	ErrPersistenceFailure = errors.New("persistence failure")
	ErrGenerationFailure  = errors.New("generation failure")
)

// Wrap tags err with kind and the failing operation. A nil err yields nil.
func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Invalid returns an ErrInvalidArgument with a formatted detail.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %q: %w", entity, id, ErrNotFound)
}
