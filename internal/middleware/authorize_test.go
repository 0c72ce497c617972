package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradorr/api/internal/models"
)

func adminGuardContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	return c, rec
}

func TestRequireAdminWithoutUserRedirectsToLogin(t *testing.T) {
	c, rec := adminGuardContext(t)

	RequireAdmin()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/login"`)
}

func TestRequireAdminNonAdminRedirectsToDashboard(t *testing.T) {
	c, rec := adminGuardContext(t)
	c.Set("current_user", models.User{ID: "u1", Role: models.UserRoleUser, Status: models.UserStatusActive})

	RequireAdmin()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/dashboard"`)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	c, rec := adminGuardContext(t)
	c.Set("current_user", models.User{ID: "u1", Role: models.UserRoleAdmin, Status: models.UserStatusActive})

	RequireAdmin()(c)

	assert.False(t, c.IsAborted())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCurrentUser(t *testing.T) {
	c, _ := adminGuardContext(t)

	_, ok := CurrentUser(c)
	assert.False(t, ok)

	c.Set("current_user", models.User{ID: "u1"})
	user, ok := CurrentUser(c)
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
