package revocation

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mkarpenko/stores_api/internal/models"
)

// Registry records revoked token identifiers. Revoke is idempotent and
// there is no way to un-revoke: the set only grows until entries outlive
// their token's expiry.
type Registry interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// GormRegistry keeps revoked jtis in the revoked_tokens table.
type GormRegistry struct {
	DB *gorm.DB
}

func (r *GormRegistry) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	record := models.RevokedToken{JTI: jti, ExpiresAt: expiresAt.Unix()}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&record).Error
}

func (r *GormRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
