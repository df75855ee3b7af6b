package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/mpetrashov/user-service/internal/models"
)

// Revoke appends a blacklist entry for the user. Duplicate entries are
// harmless; each call is a single insert.
func (r *GormRepo) Revoke(ctx context.Context, userID uuid.UUID, token string) (*models.RevokedToken, error) {
	entry := models.RevokedToken{
		ID:     uuid.New(),
		UserID: userID,
		Token:  token,
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// IsRevoked reports whether at least one blacklist entry exists for the
// user. It runs on every authorized request, so the user_id column is
// indexed.
func (r *GormRepo) IsRevoked(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClearRevoked deletes every blacklist entry of the user. Invoked on
// successful login, so a fresh login re-enables token issuance after a
// logout.
func (r *GormRepo) ClearRevoked(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.RevokedToken{}).Error
}
