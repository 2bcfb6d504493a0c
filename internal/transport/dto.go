package transport

import (
	"time"

	"github.com/Skotchmaster/account_service/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// TokenRequest carries a refresh token when the client does not use the cookie.
type TokenRequest struct {
	Token string `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func UserFrom(u *models.User) User {
	perms := []string(u.Permissions)
	if perms == nil {
		perms = []string{}
	}
	return User{
		ID:          u.ID.String(),
		Email:       u.Email,
		Role:        u.Role,
		Permissions: perms,
		CreatedAt:   u.CreatedAt,
	}
}

type RefreshToken struct {
	ID            uint       `json:"id"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedByIP   string     `json:"created_by_ip"`
	ExpiresAt     time.Time  `json:"expires_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedByIP   *string    `json:"revoked_by_ip,omitempty"`
	ReasonRevoked *string    `json:"reason_revoked,omitempty"`
}

func RefreshTokensFrom(list []models.RefreshToken, now time.Time) []RefreshToken {
	out := make([]RefreshToken, 0, len(list))
	for _, t := range list {
		out = append(out, RefreshToken{
			ID:            t.ID,
			State:         string(t.State(now)),
			CreatedAt:     t.CreatedAt,
			CreatedByIP:   t.CreatedByIP,
			ExpiresAt:     t.ExpiresAt,
			RevokedAt:     t.RevokedAt,
			RevokedByIP:   t.RevokedByIP,
			ReasonRevoked: t.ReasonRevoked,
		})
	}
	return out
}

// AuthResponse never contains the refresh token; it travels in an HttpOnly cookie.
type AuthResponse struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type UserPage struct {
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
	Items []User `json:"items"`
}

// Response is built per request.
type Response struct {
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func OK(message string, data any) Response {
	if message == "" {
		message = "Success"
	}
	return Response{Message: message, Data: data}
}

func Fail(message string, errs ...string) Response {
	return Response{Message: message, Errors: errs}
}
