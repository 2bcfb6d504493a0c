package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/account_service/internal/permission"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type stubVerifier map[string]*tokens.AccessClaims

func (s stubVerifier) VerifyAccessToken(raw string) (*tokens.AccessClaims, bool) {
	c, ok := s[raw]
	return c, ok
}

func claims(sub, role string, perms ...string) *tokens.AccessClaims {
	c := &tokens.AccessClaims{Role: role, Permissions: perms}
	c.Subject = sub
	return c
}

func newEcho() *echo.Echo {
	e := echo.New()
	a := NewAuthenticator(stubVerifier{
		"viewer": claims("u-1", "user", "users.view"),
		"plain":  claims("u-2", "admin"),
	})
	g := permission.NewGate(permission.DefaultPolicy())

	ok := func(c echo.Context) error {
		return c.String(http.StatusOK, IdentityFrom(c).UserID)
	}
	e.GET("/me", ok, a.RequireAuth)
	e.GET("/users", ok, a.RequireAuth, RequirePermission(g, permission.OpUsersList))
	e.GET("/unmapped", ok, a.RequireAuth, RequirePermission(g, "users.teleport"))
	e.GET("/anonymous", ok, RequirePermission(g, permission.OpUsersList))
	return e
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{name: "bearer", header: "Bearer viewer", wantStatus: http.StatusOK, wantBody: "u-1"},
		{name: "lowercase scheme", header: "bearer viewer", wantStatus: http.StatusOK, wantBody: "u-1"},
		{name: "cookie", cookie: "viewer", wantStatus: http.StatusOK, wantBody: "u-1"},
		{name: "missing", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEcho()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "accessToken", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAuth_ClearsRejectedCookie(t *testing.T) {
	t.Parallel()

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "expired"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "accessToken", cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequirePermission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
	}{
		{name: "holder of users.view", path: "/users", token: "viewer", wantStatus: http.StatusOK},
		{name: "admin role without permission", path: "/users", token: "plain", wantStatus: http.StatusForbidden},
		{name: "unknown operation", path: "/unmapped", token: "viewer", wantStatus: http.StatusForbidden},
		{name: "no identity", path: "/anonymous", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEcho()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
