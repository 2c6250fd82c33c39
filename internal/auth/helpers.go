// Package auth resolves the caller's owner id. The id is supplied by a trusted upstream
// and is not verified here.
package auth

import (
	"context"
	"net/http"
	"strings"
	"unicode"
)

// OwnerHeader carries the opaque owner id.
const OwnerHeader = "X-Uid"

const maxOwnerIDLen = 128

// ExtractOwnerID reads the owner id from the request header.
func ExtractOwnerID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if id == "" {
		return "", ErrMissingUserID
	}
	if len(id) > maxOwnerIDLen || strings.ContainsFunc(id, unicode.IsControl) {
		return "", ErrInvalidUserID
	}
	return id, nil
}

type ownerKey struct{}

// WithOwner returns ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerID)
}

// OwnerFrom returns the owner id stored by Middleware, or "".
func OwnerFrom(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey{}).(string)
	return id
}
