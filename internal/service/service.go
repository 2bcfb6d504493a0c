package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/account_service/internal/clock"
	"github.com/Skotchmaster/account_service/internal/events"
	"github.com/Skotchmaster/account_service/internal/hash"
	"github.com/Skotchmaster/account_service/internal/jobs"
	"github.com/Skotchmaster/account_service/internal/metrics"
	"github.com/Skotchmaster/account_service/internal/notify"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/pkg/tokens"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type Mailer interface {
	Enqueue(ctx context.Context, m notify.Message) bool
}

// Runner takes work off the request path. Submit reports false when the job
// was dropped.
type Runner interface {
	Submit(ctx context.Context, job jobs.Job) bool
}

type inlineRunner struct{}

func (inlineRunner) Submit(ctx context.Context, job jobs.Job) bool {
	job(ctx)
	return true
}

type Options struct {
	RefreshRetention time.Duration
	ResetTTL         time.Duration
	RevokeOnReset    bool
	ResetURLBase     string
	ResetOrigins     []string
}

type Deps struct {
	Store   repo.UserStore
	Issuer  *tokens.Issuer
	Hasher  hash.Hasher
	Clock   clock.Clock
	Rand    io.Reader
	Mailer  Mailer
	Jobs    Runner
	Events  events.Emitter
	Metrics *metrics.Metrics
	Options Options
}

type base struct {
	store   repo.UserStore
	issuer  *tokens.Issuer
	hasher  hash.Hasher
	clock   clock.Clock
	rand    io.Reader
	jobs    Runner
	events  events.Emitter
	metrics *metrics.Metrics
	opts    Options
}

func newBase(d Deps) base {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Rand == nil {
		d.Rand = rand.Reader
	}
	if d.Jobs == nil {
		d.Jobs = inlineRunner{}
	}
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	if d.Options.RefreshRetention <= 0 {
		d.Options.RefreshRetention = 2 * 24 * time.Hour
	}
	if d.Options.ResetTTL <= 0 {
		d.Options.ResetTTL = 24 * time.Hour
	}
	return base{
		store:   d.Store,
		issuer:  d.Issuer,
		hasher:  d.Hasher,
		clock:   d.Clock,
		rand:    d.Rand,
		jobs:    d.Jobs,
		events:  d.Events,
		metrics: d.Metrics,
		opts:    d.Options,
	}
}

func (b *base) emit(ctx context.Context, typ, userID, ip string, fields map[string]string) {
	b.events.Emit(ctx, events.Event{Type: typ, UserID: userID, IP: ip, At: b.clock.Now(), Fields: fields})
}

var passthrough = []error{
	repo.ErrNotFound,
	ErrInvalidCredentials, ErrTokenNotFound, ErrTokenInactive, ErrTokenReuseDetected,
	ErrInvalidResetToken, ErrUserNotFound, ErrDuplicateEmail, ErrValidation, ErrStoreUnavailable,
}

// storeErr keeps the service's own sentinels and maps everything else from
// the store to ErrStoreUnavailable. Not-found is left for callers to translate.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, repo.ErrEmailTaken) {
		return ErrDuplicateEmail
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Reason: "is required"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

func validatePassword(password string) error {
	switch n := len(password); {
	case n < minPasswordLen:
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	case n > maxPasswordLen:
		return &ValidationError{Field: "password", Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordLen)}
	}
	return nil
}
