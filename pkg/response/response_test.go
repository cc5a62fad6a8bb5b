package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/simcheck-bridge/pkg/errors"
	"github.com/noah-isme/simcheck-bridge/pkg/middleware/requestid"
)

func serve(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(requestid.Middleware())
	router.GET("/", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "req-9")
	router.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, map[string]string{"status": "QUEUED"}, map[string]interface{}{})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, body, "data")
	assert.NotContains(t, body, "meta")
}

func TestErrorEnvelope(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrRemoteUnavailable, "create failed"))
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, retryAfterSeconds, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"request_id":"req-9"}`, string(body["meta"]))

	var apiErr appErrors.Error
	require.NoError(t, json.Unmarshal(body["error"], &apiErr))
	assert.Equal(t, "REMOTE_UNAVAILABLE", apiErr.Code)
	assert.Equal(t, "create failed", apiErr.Message)
}

func TestErrorHidesUntypedCause(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Error(c, errors.New("pq: connection refused"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
	assert.NotContains(t, string(body["error"]), "connection refused")
}
