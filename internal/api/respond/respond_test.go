package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		model.Invalid("bad"):                                              http.StatusBadRequest,
		model.ErrUnauthenticated:                                          http.StatusUnauthorized,
		model.NotFound("conversation", "c1"):                              http.StatusNotFound,
		model.Wrap(model.ErrRetrievalFailure, "search", errors.New("x")):  http.StatusBadGateway,
		model.Wrap(model.ErrGenerationFailure, "open", errors.New("x")):   http.StatusBadGateway,
		model.Wrap(model.ErrPersistenceFailure, "write", errors.New("x")): http.StatusInternalServerError,
		errors.New("unclassified"):                                        http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestWriteErr(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteErr(rr, model.NotFound("conversation", "c1"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 404, body.Code)
	assert.Equal(t, "Not Found", body.Error)
	assert.Contains(t, body.Message, "c1")
}
