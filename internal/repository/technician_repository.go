package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"claims-service/internal/model"
)

type TechnicianRepository struct {
	db *gorm.DB
}

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) Create(ctx context.Context, technician *model.Technician) error {
	return r.db.WithContext(ctx).Create(technician).Error
}

func (r *TechnicianRepository) GetByID(ctx context.Context, id string) (*model.Technician, error) {
	var technician model.Technician
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&technician).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &technician, nil
}

func (r *TechnicianRepository) List(ctx context.Context, onlyAssignable bool) ([]model.Technician, error) {
	var technicians []model.Technician
	query := r.db.WithContext(ctx).Model(&model.Technician{})
	if onlyAssignable {
		query = query.Where("active = ? AND approved = ? AND available_for_assignment = ?", true, true, true)
	}
	err := query.Order("name ASC").Find(&technicians).Error
	return technicians, err
}

// AdjustCounters applies relative deltas to the running assignment counters.
func (r *TechnicianRepository) AdjustCounters(ctx context.Context, id string, currentDelta, completedDelta, totalDelta int) error {
	return r.db.WithContext(ctx).Model(&model.Technician{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_assignments":   gorm.Expr("GREATEST(current_assignments + ?, 0)", currentDelta),
			"completed_assignments": gorm.Expr("completed_assignments + ?", completedDelta),
			"total_assignments":     gorm.Expr("total_assignments + ?", totalDelta),
		}).Error
}

func (r *TechnicianRepository) SetPushToken(ctx context.Context, id string, token *string) error {
	return r.db.WithContext(ctx).Model(&model.Technician{}).
		Where("id = ?", id).
		Update("push_token", token).Error
}
