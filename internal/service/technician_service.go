package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"claims-service/internal/model"
)

type PendingUserStore interface {
	GetByID(ctx context.Context, id string) (*model.PendingUser, error)
	List(ctx context.Context) ([]model.PendingUser, error)
	Delete(ctx context.Context, id string) error
}

type TechnicianWriter interface {
	TechnicianStore
	Create(ctx context.Context, technician *model.Technician) error
	SetPushToken(ctx context.Context, id string, token *string) error
}

// TechnicianService owns the assignable-worker reference set and the
// registration approval gate.
type TechnicianService struct {
	technicians TechnicianWriter
	pending     PendingUserStore
	log         zerolog.Logger
}

func NewTechnicianService(technicians TechnicianWriter, pending PendingUserStore, log zerolog.Logger) *TechnicianService {
	return &TechnicianService{technicians: technicians, pending: pending, log: log}
}

func (s *TechnicianService) List(ctx context.Context, principal model.Principal, onlyAssignable bool) ([]model.Technician, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}
	return s.technicians.List(ctx, onlyAssignable)
}

func (s *TechnicianService) ListPending(ctx context.Context, principal model.Principal) ([]model.PendingUser, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	return s.pending.List(ctx)
}

// Approve converts a pending registration into an active technician.
func (s *TechnicianService) Approve(ctx context.Context, principal model.Principal, pendingID string) (*model.Technician, error) {
	if !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	pending, err := s.pending.GetByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pending.RequestedRole != model.RoleTechnician {
		return nil, fmt.Errorf("%w: only technician registrations can be approved here", ErrConflict)
	}

	technician := &model.Technician{
		UserID:                 pending.UserID,
		Name:                   pending.Name,
		Phone:                  pending.Phone,
		Email:                  pending.Email,
		Active:                 true,
		Approved:               true,
		AvailableForAssignment: true,
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, pendingID); err != nil {
		s.log.Error().Err(err).Str("pending_id", pendingID).Msg("failed to clear approved registration")
	}

	return technician, nil
}

func (s *TechnicianService) Reject(ctx context.Context, principal model.Principal, pendingID string) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}

	if _, err := s.pending.GetByID(ctx, pendingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.pending.Delete(ctx, pendingID)
}

// RegisterPushToken stores the browser push registration for the calling
// technician.
func (s *TechnicianService) RegisterPushToken(ctx context.Context, principal model.Principal, token string) error {
	if !principal.IsTechnician() || principal.TechnicianID == nil {
		return ErrPermissionDenied
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", ErrValidation)
	}
	return s.technicians.SetPushToken(ctx, principal.TechnicianID.String(), &token)
}
