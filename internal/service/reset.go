package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/account_service/internal/events"
	"github.com/Skotchmaster/account_service/internal/notify"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/pkg/logging"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

const resetTokenBytes = 32

type ResetService struct {
	base
	mailer Mailer
}

func NewResetService(d Deps) *ResetService {
	return &ResetService{base: newBase(d), mailer: d.Mailer}
}

// RequestReset answers the same way whether or not the email is registered:
// one lookup, then one job handed to the runner. Issuing the token, saving it
// and queueing the mail happen in that job, so their failures are only logged.
// A failed lookup surfaces as ErrStoreUnavailable.
func (s *ResetService) RequestReset(ctx context.Context, email, origin string) error {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	var id uuid.UUID
	u, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		id = u.ID
	case !errors.Is(err, repo.ErrNotFound):
		l.Error("reset_request_failed", "error", err)
		return storeErr(err)
	}

	if !s.jobs.Submit(ctx, func(ctx context.Context) { s.issueReset(ctx, id, origin) }) {
		l.Warn("reset_request_dropped")
		s.metrics.NotificationDropped()
	}
	return nil
}

// issueReset stores a fresh reset token for the user and queues the mail. A
// nil id stands for an unknown email and does nothing.
func (s *ResetService) issueReset(ctx context.Context, id uuid.UUID, origin string) {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")
	if id == uuid.Nil {
		l.Info("reset_requested", "known", false)
		return
	}

	plain, err := tokens.NewOpaqueToken(s.rand, resetTokenBytes)
	if err != nil {
		l.Error("reset_request_failed", "user_id", id.String(), "error", err)
		return
	}
	digest := tokens.Digest(plain)
	exp := s.clock.Now().Add(s.opts.ResetTTL)

	var to string
	err = s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByID(ctx, id)
		if err != nil {
			return err
		}
		u.ResetTokenHash = &digest
		u.ResetTokenExpiresAt = &exp
		to = u.Email
		return tx.Save(ctx, u)
	})
	if err != nil {
		l.Error("reset_request_failed", "user_id", id.String(), "error", storeErr(err))
		return
	}

	msg, err := notify.ResetMessage(notify.ResetData{
		Email:     to,
		Link:      s.resetLink(origin, plain),
		ExpiresAt: exp,
	})
	if err != nil {
		l.Error("reset_mail_render_failed", "user_id", id.String(), "error", err)
		return
	}
	if s.mailer == nil || !s.mailer.Enqueue(ctx, msg) {
		l.Warn("reset_mail_not_queued", "user_id", id.String())
		s.metrics.NotificationDropped()
	}

	l.Info("reset_requested", "known", true, "user_id", id.String())
	s.emit(ctx, events.TypeResetRequested, id.String(), "", nil)
}

// resetLink uses the request origin only when it is allow-listed.
func (s *ResetService) resetLink(origin, token string) string {
	baseURL := s.opts.ResetURLBase
	for _, allowed := range s.opts.ResetOrigins {
		if origin != "" && strings.EqualFold(strings.TrimRight(origin, "/"), strings.TrimRight(allowed, "/")) {
			baseURL = allowed
			break
		}
	}
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// ValidateResetToken only checks that someone holds the token; expiry is
// enforced by ResetPassword.
func (s *ResetService) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	_, err := s.store.FindByResetToken(ctx, tokens.Digest(token))
	if errors.Is(err, repo.ErrNotFound) {
		return ErrInvalidResetToken
	}
	return storeErr(err)
}

func (s *ResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	digest := tokens.Digest(token)
	// Hashed before the row lock is taken.
	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		l.Error("reset_password_failed", "error", err)
		return err
	}

	var (
		userID  string
		revoked int
	)
	err = s.store.Transaction(ctx, func(tx repo.UserStore) error {
		u, err := tx.FindByResetToken(ctx, digest)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrInvalidResetToken
		}
		if err != nil {
			return err
		}
		userID = u.ID.String()

		now := s.clock.Now()
		if u.ResetTokenExpiresAt == nil || now.After(*u.ResetTokenExpiresAt) {
			return ErrInvalidResetToken
		}

		u.PasswordHash = hashed
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		if s.opts.RevokeOnReset {
			revoked = revokeActive(u, now, "", ReasonPasswordReset)
		}
		return tx.Save(ctx, u)
	})
	if err != nil {
		err = storeErr(err)
		l.Warn("reset_password_failed", "user_id", userID, "error", err)
		return err
	}

	l.Info("reset_password_successful", "user_id", userID, "sessions_revoked", revoked)
	s.emit(ctx, events.TypePasswordReset, userID, "", nil)
	return nil
}
