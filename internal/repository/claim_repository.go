package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"claims-service/internal/model"
)

type ClaimRepository struct {
	db   *gorm.DB
	feed *ClaimFeed
}

func NewClaimRepository(db *gorm.DB, feed *ClaimFeed) *ClaimRepository {
	return &ClaimRepository{db: db, feed: feed}
}

func (r *ClaimRepository) Create(ctx context.Context, claim *model.Claim) error {
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		return err
	}
	r.feed.Publish()
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*model.Claim, error) {
	var claim model.Claim
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// Patch applies a merge-style partial update. Fields absent from the patch
// are never touched.
func (r *ClaimRepository) Patch(ctx context.Context, id string, patch map[string]interface{}) error {
	if len(patch) == 0 {
		return nil
	}
	patch["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&model.Claim{}).
		Where("id = ?", id).
		Updates(patch)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.feed.Publish()
	return nil
}

// Delete removes the row permanently. The archived-first policy is enforced
// one level up, in the service.
func (r *ClaimRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Claim{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	r.feed.Publish()
	return nil
}

type ClaimListFilter struct {
	Archived     *bool
	Status       *model.ClaimStatus
	TechnicianID *string
	ReceivedBy   *string
	Search       *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// List returns the claim view (technician name joined in) ordered by
// created_at DESC with id DESC as tie-break, so the order is total even when
// timestamps collide.
func (r *ClaimRepository) List(ctx context.Context, filter ClaimListFilter) ([]model.ClaimView, error) {
	var claims []model.ClaimView
	query := r.db.WithContext(ctx).Model(&model.Claim{}).
		Select("claims.*, technicians.name AS technician_name").
		Joins("LEFT JOIN technicians ON technicians.id = claims.technician_id")

	if filter.Archived != nil {
		query = query.Where("claims.is_archived = ?", *filter.Archived)
	}
	if filter.Status != nil {
		query = query.Where("claims.status = ?", *filter.Status)
	}
	if filter.TechnicianID != nil {
		query = query.Where("claims.technician_id = ?", *filter.TechnicianID)
	}
	if filter.ReceivedBy != nil {
		query = query.Where("claims.received_by = ?", *filter.ReceivedBy)
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		query = query.Where("claims.name ILIKE ? OR claims.phone ILIKE ? OR claims.address ILIKE ?", pattern, pattern, pattern)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("claims.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("claims.created_at <= ?", *filter.CreatedTo)
	}

	if err := query.Order("claims.created_at DESC, claims.id DESC").Find(&claims).Error; err != nil {
		return nil, err
	}

	return claims, nil
}

// Snapshot is the live-subscription read: the full current population of one
// archive partition, same ordering as List.
func (r *ClaimRepository) Snapshot(ctx context.Context, archived bool) ([]model.ClaimView, error) {
	return r.List(ctx, ClaimListFilter{Archived: &archived})
}

func (r *ClaimRepository) Feed() *ClaimFeed {
	return r.feed
}
