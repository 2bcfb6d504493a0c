package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/account_service/internal/clock"
	"github.com/Skotchmaster/account_service/internal/service"
	"github.com/Skotchmaster/account_service/internal/transport"
	"github.com/Skotchmaster/account_service/internal/util"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

func (h *AccountHTTP) clk() clock.Clock {
	if h.Clock == nil {
		return clock.System{}
	}
	return h.Clock
}

func (h *AccountHTTP) ListUsers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	total, users, err := h.Users.List(c.Request().Context(), page, size)
	if err != nil {
		return httpError(err)
	}

	from, limit := util.Calculate(page, size)
	items := make([]transport.User, 0, len(users))
	for i := range users {
		items = append(items, transport.UserFrom(&users[i]))
	}
	return c.JSON(http.StatusOK, transport.OK("", transport.UserPage{
		Total: total,
		Page:  from/limit + 1,
		Size:  limit,
		Items: items,
	}))
}

func (h *AccountHTTP) GetUser(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK("", transport.UserFrom(u)))
}

func (h *AccountHTTP) UserRefreshTokens(c echo.Context) error {
	id, err := pathUserID(c)
	if err != nil {
		return err
	}
	list, err := h.Users.RefreshTokens(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.OK("", transport.RefreshTokensFrom(list, h.clk().Now())))
}

func (h *AccountHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_create")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := h.Users.Create(ctx, service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		Permissions: req.Permissions,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, transport.OK("User created", transport.UserFrom(u)))
}
