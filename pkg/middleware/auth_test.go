package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurzen/roombot/pkg/jwt"
)

func newEngine(t *testing.T) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := jwt.NewManager("secret", "roombot", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/admin", NewAuthMiddleware(m).RequireRole(jwt.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r, m
}

func request(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireRole(t *testing.T) {
	r, m := newEngine(t)

	admin, _, err := m.Issue("operator", jwt.RoleAdmin)
	require.NoError(t, err)
	viewer, _, err := m.Issue("someone", "viewer")
	require.NoError(t, err)

	w := request(r, BearerPrefix+admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator", w.Body.String())

	assert.Equal(t, http.StatusForbidden, request(r, BearerPrefix+viewer).Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, request(r, BearerPrefix+"junk").Code)
}
