package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/account_service/internal/models"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrEmailTaken             = errors.New("email already registered")
	ErrConcurrentModification = errors.New("user modified concurrently")
	ErrUnavailable            = errors.New("store unavailable")
)

type UserStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, digest string) (*models.User, error)
	FindByResetToken(ctx context.Context, digest string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Save(ctx context.Context, u *models.User) error
	List(ctx context.Context, offset, limit int) (int64, []models.User, error)
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx UserStore) error) error
	Ping(ctx context.Context) error
}

type GormRepo struct {
	DB   *gorm.DB
	inTx bool
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Transaction(ctx context.Context, fn func(tx UserStore) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepo{DB: tx, inTx: true})
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return wrap(err)
	}
	return wrap(sqlDB.PingContext(ctx))
}

// users takes a row lock inside transactions where the dialect supports one.
func (r *GormRepo) users(ctx context.Context) *gorm.DB {
	q := r.DB.WithContext(ctx)
	if r.inTx && q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q.Preload("RefreshTokens", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	})
}

func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrUnavailable):
		return err
	case isUniqueViolation(err):
		return ErrEmailTaken
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
