package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_CheckHealth(t *testing.T) {
	healthy := false
	h := NewHealthHandler(func() bool { return healthy }, func() map[string]bool {
		return map[string]bool{"store": true, "index": healthy}
	})

	check := func() map[string]any {
		w := httptest.NewRecorder()
		h.CheckHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	body := check()
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, map[string]any{"store": true, "index": false}, body["components"])

	healthy = true
	assert.Equal(t, "healthy", check()["status"])
}

func TestHealthHandler_NilFuncsAreUnhealthy(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(nil, nil).CheckHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, w.Body.String(), `"unhealthy"`)
	assert.NotContains(t, w.Body.String(), "components")
}
