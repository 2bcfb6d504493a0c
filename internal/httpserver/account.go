package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/clock"
	mwauth "github.com/Skotchmaster/account_service/internal/middleware/auth"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/transport"
	"github.com/Skotchmaster/account_service/pkg/cookie"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

const forgotPasswordMessage = "If the address is registered, a reset link is on its way"

type AccountHTTP struct {
	Auth  *service.AuthService
	Reset *service.ResetService
	Users *service.UserService
	Clock clock.Clock
}

func clientIP(c echo.Context) string {
	if xff := c.Request().Header.Get(echo.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.RealIP()
}

func setSessionCookies(c echo.Context, res *service.AuthResult) {
	c.SetCookie(cookie.CreateCookie(cookie.AccessToken, res.AccessToken, "/", res.AccessExp))
	c.SetCookie(cookie.CreateCookie(cookie.RefreshToken, res.RefreshToken, "/", res.RefreshExp))
}

func clearSessionCookies(c echo.Context) {
	c.SetCookie(cookie.DeleteCookie(cookie.AccessToken, "/"))
	c.SetCookie(cookie.DeleteCookie(cookie.RefreshToken, "/"))
}

func authResponse(res *service.AuthResult) transport.AuthResponse {
	return transport.AuthResponse{
		User:        transport.UserFrom(res.User),
		AccessToken: res.AccessToken,
		ExpiresAt:   res.AccessExp,
	}
}

// refreshTokenFrom prefers the body and falls back to the cookie. A body
// that does not bind is a 400.
func refreshTokenFrom(c echo.Context, l *slog.Logger) (string, error) {
	var req transport.TokenRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			l.Warn("token_body_invalid", "status", 400, "error", err)
			return "", echo.NewHTTPError(http.StatusBadRequest, "invalid body")
		}
	}
	if req.Token != "" {
		return req.Token, nil
	}
	if ck, err := c.Cookie(cookie.RefreshToken); err == nil {
		return ck.Value, nil
	}
	return "", nil
}

func (h *AccountHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Auth.Authenticate(ctx, req.Email, req.Password, clientIP(c))
	if err != nil {
		return httpError(err)
	}

	setSessionCookies(c, res)
	return c.JSON(http.StatusOK, transport.OK("", authResponse(res)))
}

func (h *AccountHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Users.Register(ctx, service.RegisterInput{Email: req.Email, Password: req.Password})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, transport.OK("Registration successful", transport.UserFrom(u)))
}

func (h *AccountHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	token, err := refreshTokenFrom(c, l)
	if err != nil {
		return err
	}
	res, err := h.Auth.Refresh(ctx, token, clientIP(c))
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			clearSessionCookies(c)
		}
		return httpError(err)
	}

	setSessionCookies(c, res)
	return c.JSON(http.StatusOK, transport.OK("", authResponse(res)))
}

func (h *AccountHTTP) RevokeToken(c echo.Context) error {
	ctx := c.Request().Context()

	token, err := refreshTokenFrom(c, logging.FromContext(ctx).With("handler", "auth_revoke_token"))
	if err != nil {
		return err
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	if err := h.Auth.Revoke(ctx, token, clientIP(c)); err != nil {
		return httpError(err)
	}

	if ck, err := c.Cookie(cookie.RefreshToken); err == nil && ck.Value == token {
		clearSessionCookies(c)
	}
	return c.JSON(http.StatusOK, transport.OK("Token revoked", nil))
}

func (h *AccountHTTP) RevokeAll(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	n, err := h.Auth.RevokeAll(ctx, id, clientIP(c))
	if err != nil {
		return httpError(err)
	}

	clearSessionCookies(c)
	return c.JSON(http.StatusOK, transport.OK("Sessions revoked", echo.Map{"revoked": n}))
}

func (h *AccountHTTP) Me(c echo.Context) error {
	id, err := currentUserID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK("", transport.UserFrom(u)))
}

func (h *AccountHTTP) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("forgot_password_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Reset.RequestReset(ctx, req.Email, c.Request().Header.Get(echo.HeaderOrigin)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK(forgotPasswordMessage, nil))
}

func (h *AccountHTTP) ValidateResetToken(c echo.Context) error {
	var req transport.TokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Reset.ValidateResetToken(c.Request().Context(), req.Token); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK("Token is valid", nil))
}

func (h *AccountHTTP) ResetPassword(c echo.Context) error {
	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Reset.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK("Password reset successful", nil))
}

func currentUserID(c echo.Context) (uuid.UUID, error) {
	id := mwauth.IdentityFrom(c)
	if id == nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	uid, err := uuid.Parse(id.UserID)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject")
	}
	return uid, nil
}

func pathUserID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return id, nil
}
