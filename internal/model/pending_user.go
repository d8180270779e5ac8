package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingUser es un registro a la espera de aprobación del administrador.
type PendingUser struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Email         string    `gorm:"type:varchar(255);not null" json:"email"`
	Name          string    `gorm:"type:text;not null" json:"name"`
	Phone         string    `gorm:"type:varchar(32)" json:"phone"`
	RequestedRole Role      `gorm:"type:varchar(20);not null" json:"requested_role"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PendingUser) TableName() string {
	return "pending_users"
}

func (p *PendingUser) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
