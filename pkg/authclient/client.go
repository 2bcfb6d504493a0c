package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Skotchmaster/account_service/pkg/cookie"
)

var ErrUnauthorized = errors.New("account service rejected the credentials")

// Client lets other services refresh sessions and resolve the caller against
// the account service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(accountServiceURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(accountServiceURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type RefreshResponse struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
	UserID       string
}

type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type envelope[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type authData struct {
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RefreshTokens rotates refreshToken, sent in the JSON body. The successor
// comes back in the cookie.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	payload, err := json.Marshal(map[string]string{"token": refreshToken})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/refresh-token", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body envelope[authData]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := &RefreshResponse{
		AccessToken: body.Data.AccessToken,
		AccessExp:   body.Data.ExpiresAt,
		UserID:      body.Data.User.ID,
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == cookie.RefreshToken {
			out.RefreshToken = ck.Value
			out.RefreshExp = ck.Expires
		}
	}
	if out.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response carries no %s cookie", cookie.RefreshToken)
	}
	return out, nil
}

func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var body envelope[User]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &body.Data, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("account service answered %d", resp.StatusCode)
	}
	return nil
}
