package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/d60-Lab/blogapi/internal/apperr"
	"github.com/d60-Lab/blogapi/internal/identity"
	"github.com/d60-Lab/blogapi/internal/model"
)

type stubResolver map[string]identity.Identity

func (s stubResolver) Resolve(_ context.Context, bearer string) (identity.Identity, error) {
	if id, ok := s[bearer]; ok {
		return id, nil
	}
	return identity.Anonymous, apperr.Unauthorized("token is invalid")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(), Identity(stubResolver{
		"good": {UserID: 3, Username: "alice", Role: model.RoleAuthor},
	}))
	r.GET("/whoami", func(c *gin.Context) {
		id := identity.FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "token": AccessToken(c)})
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func TestIdentity(t *testing.T) {
	r := newEngine()
	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, `"user_id":0`},
		{"valid bearer", "Bearer good", http.StatusOK, `"user_id":3`},
		{"lowercase scheme", "bearer good", http.StatusOK, `"token":"good"`},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, `"error":"unauthorized"`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"error":"unauthorized"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	r := newEngine()

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"internal"`)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
