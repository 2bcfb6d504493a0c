package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Skotchmaster/account_service/internal/events"
	"github.com/Skotchmaster/account_service/internal/models"
	"github.com/Skotchmaster/account_service/internal/permission"
	"github.com/Skotchmaster/account_service/internal/repo"
	"github.com/Skotchmaster/account_service/internal/util"
	"github.com/Skotchmaster/account_service/pkg/logging"
)

type RegisterInput struct {
	Email       string
	Password    string
	Role        string
	Permissions []string
}

type UserService struct {
	base
}

func NewUserService(d Deps) *UserService {
	return &UserService{base: newBase(d)}
}

// Register is the self-service signup: role and permissions are ignored.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Role = models.RoleUser
	in.Permissions = nil
	return s.create(ctx, in, "auth.register")
}

// Create is the administrative variant that may grant a role and permissions.
func (s *UserService) Create(ctx context.Context, in RegisterInput) (*models.User, error) {
	switch in.Role {
	case "":
		in.Role = models.RoleUser
	case models.RoleUser, models.RoleAdmin:
	default:
		return nil, &ValidationError{Field: "role", Reason: "must be user or admin"}
	}
	for _, p := range in.Permissions {
		if !permission.Known(p) {
			return nil, &ValidationError{Field: "permissions", Reason: "unknown permission " + p}
		}
	}
	return s.create(ctx, in, "users.create")
}

func (s *UserService) create(ctx context.Context, in RegisterInput, svc string) (*models.User, error) {
	email := normalizeEmail(in.Email)
	l := logging.FromContext(ctx).With("svc", svc, "email", email)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		l.Warn("register_failed", "status", 409)
		return nil, ErrDuplicateEmail
	case !errors.Is(err, repo.ErrNotFound):
		l.Error("register_failed", "status", 503, "error", err)
		return nil, storeErr(err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		l.Error("hash_failed", "error", err)
		return nil, err
	}

	u := &models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         in.Role,
		Permissions:  models.PermissionList(in.Permissions),
	}
	if err := s.store.Create(ctx, u); err != nil {
		err = storeErr(err)
		l.Warn("register_failed", "error", err)
		return nil, err
	}

	l.Info("register_successful", "user_id", u.ID.String(), "role", u.Role)
	s.emit(ctx, events.TypeUserRegistered, u.ID.String(), "", map[string]string{"role": u.Role})
	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, page, size int) (int64, []models.User, error) {
	from, limit := util.Calculate(page, size)
	total, users, err := s.store.List(ctx, from, limit)
	if err != nil {
		logging.FromContext(ctx).Error("list_users_failed", "svc", "users.list", "error", err)
		return 0, nil, storeErr(err)
	}
	return total, users, nil
}

func (s *UserService) RefreshTokens(ctx context.Context, id uuid.UUID) ([]models.RefreshToken, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.RefreshTokens, nil
}
