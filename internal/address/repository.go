package address

import (
	"context"

	"github.com/flintflours/storefront-backend/internal/repo"
	"github.com/flintflours/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// List returns the user's addresses, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.DB(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id").Find(&rows).Error
	return rows, err
}

// FindForUser loads one address owned by userID.
func (r *Repository) FindForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var row models.Address
	if err := r.DB(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, row *models.Address) error {
	return r.DB(ctx).Create(row).Error
}

func (r *Repository) Update(ctx context.Context, row *models.Address) error {
	return r.DB(ctx).Model(&models.Address{}).
		Where("id = ? AND user_id = ?", row.ID, row.UserID).
		Updates(map[string]any{
			"label":   row.Label,
			"line1":   row.Line1,
			"city":    row.City,
			"state":   row.State,
			"pincode": row.Pincode,
			"phone":   row.Phone,
		}).Error
}
