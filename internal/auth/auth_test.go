package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredential_CheckMatchesAndRejects(t *testing.T) {
	cred, err := NewCredential("alice", "s3cret")
	require.NoError(t, err)

	assert.True(t, cred.Check("alice", "s3cret"))
	assert.False(t, cred.Check("alice", "wrong"))
	assert.False(t, cred.Check("bob", "s3cret"))
}

func TestMiddleware_RejectsMissingAndWrongAuth(t *testing.T) {
	cred, err := NewCredential("alice", "s3cret")
	require.NoError(t, err)

	handler := Middleware(cred, "davproxy")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	reqWrong := httptest.NewRequest(http.MethodGet, "/", nil)
	reqWrong.SetBasicAuth("alice", "wrong")
	recWrong := httptest.NewRecorder()
	handler.ServeHTTP(recWrong, reqWrong)
	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.SetBasicAuth("alice", "s3cret")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}
