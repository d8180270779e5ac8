package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClaimStatus string

const (
	ClaimStatusPending    ClaimStatus = "PENDING"
	ClaimStatusInProgress ClaimStatus = "IN_PROGRESS"
	ClaimStatusCompleted  ClaimStatus = "COMPLETED"
	ClaimStatusCancelled  ClaimStatus = "CANCELLED"
)

// claimTransitions define los cambios de estado permitidos.
var claimTransitions = map[ClaimStatus][]ClaimStatus{
	ClaimStatusPending:    {ClaimStatusInProgress, ClaimStatusCancelled},
	ClaimStatusInProgress: {ClaimStatusCompleted, ClaimStatusPending, ClaimStatusCancelled},
	ClaimStatusCompleted:  {},
	ClaimStatusCancelled:  {},
}

func (s ClaimStatus) Valid() bool {
	_, ok := claimTransitions[s]
	return ok
}

// CanTransition reports whether a claim may move from s to next.
func (s ClaimStatus) CanTransition(next ClaimStatus) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s ClaimStatus) Terminal() bool {
	return len(claimTransitions[s]) == 0
}

type Claim struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name             string      `gorm:"type:text;not null" json:"name"`
	Phone            string      `gorm:"type:varchar(32);not null" json:"phone"`
	Address          string      `gorm:"type:text;not null" json:"address"`
	Reason           string      `gorm:"type:text;not null" json:"reason"`
	Status           ClaimStatus `gorm:"type:claim_status;not null;default:PENDING" json:"status"`
	TechnicianID     *uuid.UUID  `gorm:"type:uuid;index" json:"technician_id"`
	Resolution       *string     `gorm:"type:text" json:"resolution"`
	ResolvedAt       *time.Time  `json:"resolved_at"`
	ReceivedBy       string      `gorm:"type:text;not null" json:"received_by"`
	NotificationSent bool        `gorm:"not null;default:false" json:"notification_sent"`
	IsArchived       bool        `gorm:"not null;default:false;index" json:"is_archived"`
	ArchivedAt       *time.Time  `json:"archived_at"`
	CreatedAt        time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Claim) TableName() string {
	return "claims"
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ClaimView is the read-side projection served to clients: the persisted
// claim plus the technician name resolved at query time. The name is never
// stored on the claim row.
type ClaimView struct {
	Claim
	TechnicianName *string `gorm:"->" json:"technician_name"`
}
