package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/account_service/internal/metrics"
	mwauth "github.com/Skotchmaster/account_service/internal/middleware/auth"
	"github.com/Skotchmaster/account_service/internal/middleware/csrf"
	"github.com/Skotchmaster/account_service/internal/permission"
	loggingmw "github.com/Skotchmaster/account_service/pkg/middleware/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Handler  *AccountHTTP
	Auth     *mwauth.Authenticator
	Gate     *permission.Gate
	Store    Pinger
	Log      *slog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	CSRF     *csrf.Config
}

func Register(e *echo.Echo, d *Deps) {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	e.Use(ecM.Recover())
	e.Use(loggingmw.RequestLogger(d.Log))
	if d.Metrics != nil {
		e.Use(d.Metrics.Middleware())
	}
	if d.CSRF != nil {
		e.Use(csrf.Middleware(*d.CSRF))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable").SetInternal(err)
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	h := d.Handler
	users := e.Group("/users")
	users.POST("/login", h.Login)
	users.POST("/register", h.Register)
	users.POST("/refresh-token", h.Refresh)
	users.POST("/forgot-password", h.ForgotPassword)
	users.POST("/validate-reset-token", h.ValidateResetToken)
	users.POST("/reset-password", h.ResetPassword)

	private := users.Group("", d.Auth.RequireAuth)
	private.POST("/revoke-token", h.RevokeToken)
	private.POST("/revoke-all", h.RevokeAll)
	private.GET("/me", h.Me)
	private.GET("", h.ListUsers, mwauth.RequirePermission(d.Gate, permission.OpUsersList))
	private.POST("", h.CreateUser, mwauth.RequirePermission(d.Gate, permission.OpUsersCreate))
	private.GET("/:id", h.GetUser, mwauth.RequirePermission(d.Gate, permission.OpUsersGet))
	private.GET("/:id/refresh-tokens", h.UserRefreshTokens, mwauth.RequirePermission(d.Gate, permission.OpUsersRefreshTokens))
}
