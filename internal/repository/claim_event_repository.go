package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"claims-service/internal/model"
)

type ClaimEventRepository struct {
	db *gorm.DB
}

func NewClaimEventRepository(db *gorm.DB) *ClaimEventRepository {
	return &ClaimEventRepository{db: db}
}

func (r *ClaimEventRepository) Append(ctx context.Context, event *model.ClaimEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *ClaimEventRepository) ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]model.ClaimEvent, error) {
	var events []model.ClaimEvent
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
