package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/permission"
	"github.com/Skotchmaster/account_service/pkg/cookie"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

const (
	CtxIdentity = "identity"
	CtxUserID   = "user_id"
	CtxRole     = "role"
)

type Verifier interface {
	VerifyAccessToken(raw string) (*tokens.AccessClaims, bool)
}

type Authenticator struct {
	Verifier Verifier
}

func NewAuthenticator(v Verifier) *Authenticator {
	return &Authenticator{Verifier: v}
}

// RequireAuth accepts the access token as a Bearer header or the accessToken cookie.
func (a *Authenticator) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, fromCookie := accessToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, ok := a.Verifier.VerifyAccessToken(raw)
		if !ok {
			if fromCookie {
				c.SetCookie(cookie.DeleteCookie(cookie.AccessToken, "/"))
			}
			logging.FromContext(c.Request().Context()).Warn("access_token_rejected", "path", c.Path())
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		id := &permission.Identity{
			UserID:      claims.Subject,
			Role:        claims.Role,
			Permissions: permission.FromStrings(claims.Permissions),
		}
		c.Set(CtxIdentity, id)
		c.Set(CtxUserID, id.UserID)
		c.Set(CtxRole, id.Role)
		return next(c)
	}
}

func accessToken(c echo.Context) (string, bool) {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token), false
		}
		return "", false
	}
	if ck, err := c.Cookie(cookie.AccessToken); err == nil {
		return ck.Value, true
	}
	return "", false
}

// IdentityFrom returns the identity set by RequireAuth, or nil.
func IdentityFrom(c echo.Context) *permission.Identity {
	id, _ := c.Get(CtxIdentity).(*permission.Identity)
	return id
}

func RequirePermission(g *permission.Gate, op permission.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFrom(c)
			err := g.Authorize(id, op)
			switch {
			case err == nil:
				return next(c)
			case errors.Is(err, permission.ErrUnauthenticated):
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			default:
				logging.FromContext(c.Request().Context()).Warn("permission_denied",
					"user_id", id.UserID, "operation", string(op), "error", err)
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
		}
	}
}
