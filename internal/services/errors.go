package services

import (
	"errors"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

// persistErr tags store failures as persistence failures. Caller-facing kinds
// (bad input, missing rows) pass through unchanged.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidArgument) {
		return err
	}
	return model.Wrap(model.ErrPersistenceFailure, op, err)
}
