package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mverma16/playtube/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	tx := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", u.Username, u.Email).
		FirstOrCreate(u)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

// FindByIdentifier looks a user up by username or email. The caller is
// expected to have normalized the identifier already.
func (r *GormRepo) FindByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SetRefreshToken unconditionally overwrites the stored refresh-token
// fingerprint. This is the login-time rotation point.
func (r *GormRepo) SetRefreshToken(ctx context.Context, id, fingerprint string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("current_refresh_token", fingerprint).Error
}

// UpdateRefreshToken swaps the stored fingerprint only if it still equals
// expectedOld. The single UPDATE is the compare-and-swap that keeps
// concurrent refreshes from both winning.
func (r *GormRepo) UpdateRefreshToken(ctx context.Context, id, expectedOld, fingerprint string) (bool, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND current_refresh_token = ?", id, expectedOld).
		Update("current_refresh_token", fingerprint)
	if tx.Error != nil {
		return false, fmt.Errorf("rotate refresh token: %w", tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

func (r *GormRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("current_refresh_token", "").Error
}

func (r *GormRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash).Error
}
