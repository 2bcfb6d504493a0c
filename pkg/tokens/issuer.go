package tokens

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Subject is the identity an access token is issued for.
type Subject struct {
	ID          uuid.UUID
	Role        string
	Permissions []string
}

// Refresh describes an issued refresh token. Only the digest is kept.
type Refresh struct {
	Digest    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type AccessClaims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

type IssuerConfig struct {
	Issuer       string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	RefreshBytes int
}

type Issuer struct {
	signer Signer
	clock  Clock
	rand   io.Reader
	cfg    IssuerConfig
}

// NewIssuer falls back to the system clock and crypto/rand when clk or rnd are nil.
func NewIssuer(signer Signer, cfg IssuerConfig, clk Clock, rnd io.Reader) *Issuer {
	if clk == nil {
		clk = systemClock{}
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshBytes < MinOpaqueBytes {
		cfg.RefreshBytes = MinOpaqueBytes
	}
	return &Issuer{signer: signer, clock: clk, rand: rnd, cfg: cfg}
}

func (i *Issuer) IssueAccessToken(sub Subject) (string, time.Time, error) {
	if sub.ID == uuid.Nil {
		return "", time.Time{}, errors.New("access token needs a subject id")
	}

	now := i.clock.Now()
	exp := now.Add(i.cfg.AccessTTL)
	claims := AccessClaims{
		Role:        sub.Role,
		Permissions: sub.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			Issuer:    i.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, exp, nil
}

// VerifyAccessToken reports false for anything that is not a valid, unexpired token of this issuer.
func (i *Issuer) VerifyAccessToken(raw string) (*AccessClaims, bool) {
	if raw == "" {
		return nil, false
	}

	claims := &AccessClaims{}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}
	if err := i.signer.Parse(raw, claims, opts...); err != nil {
		return nil, false
	}
	if _, err := claims.UserID(); err != nil {
		return nil, false
	}
	return claims, true
}

// IssueRefreshToken returns the plaintext for the client and the digest to store.
func (i *Issuer) IssueRefreshToken() (string, Refresh, error) {
	plain, err := NewOpaqueToken(i.rand, i.cfg.RefreshBytes)
	if err != nil {
		return "", Refresh{}, fmt.Errorf("refresh token: %w", err)
	}

	now := i.clock.Now()
	return plain, Refresh{
		Digest:    Digest(plain),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.cfg.RefreshTTL),
	}, nil
}

func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.RefreshTTL }
