package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskcrew/taskbot/internal/constants"
	"github.com/taskcrew/taskbot/internal/storage"
	"github.com/taskcrew/taskbot/internal/store"
)

func newAuthorizer(t *testing.T) (*Authorizer, *store.ManagerRegistry) {
	t.Helper()
	files, err := storage.New(t.TempDir(), 3)
	require.NoError(t, err)
	managers, err := store.NewManagerRegistry(files)
	require.NoError(t, err)
	return NewAuthorizer(managers, []string{"admin"}), managers
}

func testContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	return c
}

func TestPrivilegeRule(t *testing.T) {
	auth, managers := newAuthorizer(t)
	require.NoError(t, managers.Add([]string{"mgr"}))
	c := testContext(t)

	assert.True(t, auth.IsAdmin(c, "admin"))
	assert.True(t, auth.IsPrivileged(c, "admin"))

	assert.False(t, auth.IsAdmin(c, "mgr"), "managers are privileged but not admin")
	assert.True(t, auth.IsPrivileged(c, "mgr"))

	assert.False(t, auth.IsPrivileged(c, "alice"))

	// The server owner flag grants admin regardless of the allow-list.
	c.Set(constants.ContextKeyIsOwner, true)
	assert.True(t, auth.IsAdmin(c, "alice"))
}

func TestRequirePrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequirePrincipal())
	r.GET("/", func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		require.True(t, ok)
		c.String(http.StatusOK, principal)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constants.HeaderPrincipalID, "alice")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireGateway("secret"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constants.HeaderGatewayToken, "secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(constants.HeaderGatewayToken, "wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
