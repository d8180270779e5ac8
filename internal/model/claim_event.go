package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClaimEventType string

const (
	ClaimEventCreated  ClaimEventType = "CREATED"
	ClaimEventEdited   ClaimEventType = "EDITED"
	ClaimEventAssigned ClaimEventType = "ASSIGNED"
	ClaimEventStatus   ClaimEventType = "STATUS_CHANGED"
	ClaimEventArchived ClaimEventType = "ARCHIVED"
	ClaimEventRestored ClaimEventType = "RESTORED"
	ClaimEventNotified ClaimEventType = "NOTIFIED"
)

// ClaimEvent es el historial inmutable de un reclamo.
type ClaimEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	ClaimID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"claim_id"`
	Actor     string         `gorm:"type:text;not null" json:"actor"`
	Type      ClaimEventType `gorm:"type:varchar(30);not null" json:"type"`
	Detail    string         `gorm:"type:text" json:"detail"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (ClaimEvent) TableName() string {
	return "claim_events"
}

func (e *ClaimEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
