package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/account_service/internal/models"
)

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

func (r *GormRepo) FindByRefreshToken(ctx context.Context, digest string) (*models.User, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", digest).First(&token).Error; err != nil {
		return nil, wrap(err)
	}
	return r.FindByID(ctx, token.UserID)
}

func (r *GormRepo) FindByResetToken(ctx context.Context, digest string) (*models.User, error) {
	var user models.User
	if err := r.users(ctx).Where("reset_token_hash = ?", digest).First(&user).Error; err != nil {
		return nil, wrap(err)
	}
	return &user, nil
}

func (r *GormRepo) Create(ctx context.Context, u *models.User) error {
	return wrap(r.DB.WithContext(ctx).Create(u).Error)
}

// Save writes the user row guarded by its version and syncs the token collection:
// tokens no longer in the collection are deleted, the rest are upserted.
func (r *GormRepo) Save(ctx context.Context, u *models.User) error {
	if r.inTx {
		return r.save(r.DB.WithContext(ctx), u)
	}
	return wrap(r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.save(tx, u)
	}))
}

func (r *GormRepo) save(tx *gorm.DB, u *models.User) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND version = ?", u.ID, u.Version).
		Updates(map[string]any{
			"email":                  u.Email,
			"password_hash":          u.PasswordHash,
			"role":                   u.Role,
			"permissions":            u.Permissions,
			"reset_token_hash":       u.ResetTokenHash,
			"reset_token_expires_at": u.ResetTokenExpiresAt,
			"version":                u.Version + 1,
			"updated_at":             tx.NowFunc(),
		})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}

	keep := make([]uint, 0, len(u.RefreshTokens))
	for _, t := range u.RefreshTokens {
		if t.ID != 0 {
			keep = append(keep, t.ID)
		}
	}
	del := tx.Where("user_id = ?", u.ID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.RefreshToken{}).Error; err != nil {
		return wrap(err)
	}

	for i := range u.RefreshTokens {
		t := &u.RefreshTokens[i]
		t.UserID = u.ID
		if err := tx.Save(t).Error; err != nil {
			return wrap(err)
		}
	}

	u.Version++
	return nil
}

func (r *GormRepo) List(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, wrap(err)
	}

	var users []models.User
	if err := r.DB.WithContext(ctx).
		Order("created_at, id").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return 0, nil, wrap(err)
	}
	return total, users, nil
}
