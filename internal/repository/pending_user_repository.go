package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"claims-service/internal/model"
)

type PendingUserRepository struct {
	db *gorm.DB
}

func NewPendingUserRepository(db *gorm.DB) *PendingUserRepository {
	return &PendingUserRepository{db: db}
}

func (r *PendingUserRepository) GetByID(ctx context.Context, id string) (*model.PendingUser, error) {
	var pending model.PendingUser
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&pending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &pending, nil
}

func (r *PendingUserRepository) List(ctx context.Context) ([]model.PendingUser, error) {
	var pending []model.PendingUser
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&pending).Error
	return pending, err
}

func (r *PendingUserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PendingUser{}).Error
}
