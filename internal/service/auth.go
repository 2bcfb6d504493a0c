package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/account_service/internal/events"
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/tokenchain"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

type AuthResult struct {
	User         *models.User
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

const dummyPassword = "dummy-password-for-timing"

// fallbackDummyHash is used when the configured hasher cannot produce one.
var fallbackDummyHash = sync.OnceValue(func() string {
	h, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("bcrypt dummy hash: %v", err))
	}
	return string(h)
})

type AuthService struct {
	base
	dummyHash string
}

func NewAuthService(d Deps) *AuthService {
	s := &AuthService{base: newBase(d)}
	// Verified against for unknown emails.
	h, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		slog.Default().Error("dummy_hash_failed", "svc", "auth", "error", err)
		h = fallbackDummyHash()
	}
	s.dummyHash = h
	return s
}

func (s *AuthService) Authenticate(ctx context.Context, email, password, ip string) (*AuthResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	u, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		s.hasher.Verify(password, s.dummyHash)
		l.Warn("login_failed", "status", 401, "reason", "unknown email")
		s.fail(ctx, "login", "invalid_credentials", "", ip)
		return nil, ErrInvalidCredentials
	case err != nil:
		l.Error("login_failed", "status", 503, "error", err)
		return nil, storeErr(err)
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		s.fail(ctx, "login", "invalid_credentials", u.ID.String(), ip)
		return nil, ErrInvalidCredentials
	}

	res, err := s.startSession(ctx, u.ID, ip)
	if err != nil {
		l.Error("login_failed", "status", 503, "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", u.ID.String())
	s.metrics.Auth("login", "success")
	s.emit(ctx, events.TypeLoginSucceeded, u.ID.String(), ip, nil)
	return res, nil
}

func (s *AuthService) fail(ctx context.Context, op, outcome, userID, ip string) {
	s.metrics.Auth(op, outcome)
	if op == "login" {
		s.emit(ctx, events.TypeLoginFailed, userID, ip, map[string]string{"outcome": outcome})
	}
}

func (s *AuthService) startSession(ctx context.Context, userID uuid.UUID, ip string) (*AuthResult, error) {
	var res *AuthResult
	err := s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}

		plain, rt, err := s.newRefreshToken(ip)
		if err != nil {
			return err
		}
		u.RefreshTokens = append(u.RefreshTokens, *rt)
		s.metrics.Pruned(tokenchain.PruneStale(u, s.clock.Now(), s.opts.RefreshRetention))

		if err := tx.Save(ctx, u); err != nil {
			return err
		}

		res, err = s.result(u, plain, rt.ExpiresAt)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return res, nil
}

func (s *AuthService) newRefreshToken(ip string) (string, *models.RefreshToken, error) {
	plain, r, err := s.issuer.IssueRefreshToken()
	if err != nil {
		return "", nil, err
	}
	return plain, &models.RefreshToken{
		Token:       r.Digest,
		CreatedAt:   r.IssuedAt,
		CreatedByIP: ip,
		ExpiresAt:   r.ExpiresAt,
	}, nil
}

func (s *AuthService) result(u *models.User, refresh string, refreshExp time.Time) (*AuthResult, error) {
	access, accessExp, err := s.issuer.IssueAccessToken(tokens.Subject{
		ID:          u.ID,
		Role:        u.Role,
		Permissions: []string(u.Permissions),
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		User:         u,
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh rotates an active refresh token. Presenting a token that was already
// rotated revokes the active end of its chain and reports reuse.
func (s *AuthService) Refresh(ctx context.Context, token, ip string) (*AuthResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	if token == "" {
		s.fail(ctx, "refresh", "not_found", "", ip)
		return nil, ErrTokenNotFound
	}
	digest := tokens.Digest(token)

	var (
		res     *AuthResult
		reused  bool
		revoked int
		userID  string
	)
	err := s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByRefreshToken(ctx, digest)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		userID = u.ID.String()

		cur := tokenchain.Find(u, digest)
		if cur == nil {
			return ErrTokenNotFound
		}

		now := s.clock.Now()
		switch {
		case cur.IsRotated():
			revoked = tokenchain.RevokeDescendants(ctx, cur, u, now, ip, ReasonReuse)
			reused = true
			return tx.Save(ctx, u)
		case !cur.IsActive(now):
			return ErrTokenInactive
		}

		plain, next, err := s.newRefreshToken(ip)
		if err != nil {
			return err
		}
		successor := next.Token
		tokenchain.Revoke(cur, now, ip, ReasonReplaced, &successor)
		u.RefreshTokens = append(u.RefreshTokens, *next)
		s.metrics.Pruned(tokenchain.PruneStale(u, now, s.opts.RefreshRetention))

		if err := tx.Save(ctx, u); err != nil {
			return err
		}
		res, err = s.result(u, plain, next.ExpiresAt)
		return err
	})

	switch {
	case err != nil:
		err = storeErr(err)
		outcome := outcomeFor(err)
		l.Warn("refresh_failed", "status", statusHint(err), "reason", outcome, "user_id", userID)
		s.fail(ctx, "refresh", outcome, userID, ip)
		return nil, err
	case reused:
		l.Warn("reuse_detected", "user_id", userID, "ip", ip, "revoked", revoked)
		s.metrics.Auth("refresh", "reuse_detected")
		s.metrics.Reuse(revoked)
		s.emit(ctx, events.TypeTokenReuse, userID, ip, map[string]string{"revoked": strconv.Itoa(revoked)})
		return nil, ErrTokenReuseDetected
	}

	l.Info("refresh_successful", "user_id", userID)
	s.metrics.Auth("refresh", "success")
	s.emit(ctx, events.TypeTokenRotated, userID, ip, nil)
	return res, nil
}

// Revoke is an explicit logout of one active refresh token.
func (s *AuthService) Revoke(ctx context.Context, token, ip string) error {
	l := logging.FromContext(ctx).With("svc", "auth.revoke")
	if token == "" {
		return ErrTokenNotFound
	}
	digest := tokens.Digest(token)

	var userID string
	err := s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByRefreshToken(ctx, digest)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		userID = u.ID.String()

		cur := tokenchain.Find(u, digest)
		if cur == nil {
			return ErrTokenNotFound
		}
		now := s.clock.Now()
		if !cur.IsActive(now) {
			return ErrTokenInactive
		}
		tokenchain.Revoke(cur, now, ip, ReasonRevoked, nil)
		return tx.Save(ctx, u)
	})
	if err != nil {
		err = storeErr(err)
		l.Warn("revoke_failed", "reason", outcomeFor(err), "user_id", userID)
		s.fail(ctx, "revoke", outcomeFor(err), userID, ip)
		return err
	}

	l.Info("revoke_successful", "user_id", userID)
	s.metrics.Auth("revoke", "success")
	s.emit(ctx, events.TypeTokenRevoked, userID, ip, nil)
	return nil
}

// RevokeAll revokes every active refresh token of the user and returns how many.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID, ip string) (int, error) {
	l := logging.FromContext(ctx).With("svc", "auth.revoke_all", "user_id", userID.String())

	var n int
	err := s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByID(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		n = revokeActive(u, s.clock.Now(), ip, ReasonRevokedByUser)
		if n == 0 {
			return nil
		}
		return tx.Save(ctx, u)
	})
	if err != nil {
		l.Warn("revoke_all_failed", "error", err)
		return 0, storeErr(err)
	}

	l.Info("revoke_all_successful", "revoked", n)
	s.metrics.Auth("revoke_all", "success")
	s.emit(ctx, events.TypeSessionsRevoked, userID.String(), ip, map[string]string{"revoked": strconv.Itoa(n)})
	return n, nil
}

func revokeActive(u *models.User, now time.Time, ip, reason string) int {
	n := 0
	for i := range u.RefreshTokens {
		if u.RefreshTokens[i].IsActive(now) {
			tokenchain.Revoke(&u.RefreshTokens[i], now, ip, reason, nil)
			n++
		}
	}
	return n
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenInactive):
		return "inactive"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}

func statusHint(err error) int {
	if errors.Is(err, ErrStoreUnavailable) {
		return 503
	}
	return 401
}
