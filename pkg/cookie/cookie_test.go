package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCookie(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := CreateCookie(RefreshToken, "abc", "/", exp)

	assert.Equal(t, "refreshToken", c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, exp, c.Expires)
}

func TestDeleteCookie_ExpiresImmediately(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	http.SetCookie(rec, DeleteCookie(AccessToken, "/"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "accessToken", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
