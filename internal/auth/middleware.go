package auth

import (
	"net/http"
)

// Middleware rejects requests without an owner id and stores it on the request
// context. Paths in public pass through untouched.
func Middleware(reject func(http.ResponseWriter, error), public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			id, err := ExtractOwnerID(r)
			if err != nil {
				reject(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), id)))
		})
	}
}
