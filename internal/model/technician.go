package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Technician struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID                 uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Name                   string    `gorm:"type:text;not null" json:"name"`
	Phone                  string    `gorm:"type:varchar(32);not null" json:"phone"`
	Email                  string    `gorm:"type:varchar(255);not null" json:"email"`
	Active                 bool      `gorm:"not null;default:true" json:"active"`
	Approved               bool      `gorm:"not null;default:false" json:"approved"`
	AvailableForAssignment bool      `gorm:"not null;default:true" json:"available_for_assignment"`
	CurrentAssignments     int       `gorm:"not null;default:0" json:"current_assignments"`
	CompletedAssignments   int       `gorm:"not null;default:0" json:"completed_assignments"`
	TotalAssignments       int       `gorm:"not null;default:0" json:"total_assignments"`
	PushToken              *string   `gorm:"type:text" json:"-"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Technician) TableName() string {
	return "technicians"
}

func (t *Technician) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Assignable reports whether new claims may be routed to this technician.
func (t *Technician) Assignable() bool {
	return t.Active && t.Approved && t.AvailableForAssignment
}
