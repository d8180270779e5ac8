package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"claims-service/internal/model"
	"claims-service/internal/repository"
)

// ClaimStore is the persistence gateway the service mutates through.
// *repository.ClaimRepository satisfies it; tests use an in-memory fake.
type ClaimStore interface {
	Create(ctx context.Context, claim *model.Claim) error
	GetByID(ctx context.Context, id string) (*model.Claim, error)
	Patch(ctx context.Context, id string, patch map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter repository.ClaimListFilter) ([]model.ClaimView, error)
}

type TechnicianStore interface {
	GetByID(ctx context.Context, id string) (*model.Technician, error)
	List(ctx context.Context, onlyAssignable bool) ([]model.Technician, error)
	AdjustCounters(ctx context.Context, id string, currentDelta, completedDelta, totalDelta int) error
}

type EventStore interface {
	Append(ctx context.Context, event *model.ClaimEvent) error
	ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]model.ClaimEvent, error)
}

// Notifier fires outbound messages for a claim. Returned strings are
// per-recipient warnings; dispatch never fails the triggering operation.
type Notifier interface {
	ClaimCreated(ctx context.Context, claim *model.Claim, technician *model.Technician) []string
	ClaimAssigned(ctx context.Context, claim *model.Claim, technician *model.Technician) []string
}

type ClaimService struct {
	claims      ClaimStore
	technicians TechnicianStore
	events      EventStore
	notifier    Notifier
	log         zerolog.Logger
}

func NewClaimService(
	claims ClaimStore,
	technicians TechnicianStore,
	events EventStore,
	notifier Notifier,
	log zerolog.Logger,
) *ClaimService {
	return &ClaimService{
		claims:      claims,
		technicians: technicians,
		events:      events,
		notifier:    notifier,
		log:         log,
	}
}

type CreateClaimInput struct {
	Name         string
	Phone        string
	Address      string
	Reason       string
	TechnicianID string
	ReceivedBy   string
}

// CreateClaimResult carries the persisted claim plus any non-fatal dispatch
// warnings. The claim commit and the notifications are not transactional.
type CreateClaimResult struct {
	Claim    *model.Claim `json:"claim"`
	Warnings []string     `json:"warnings,omitempty"`
}

func validateCreate(input CreateClaimInput) error {
	required := []struct {
		field, value string
	}{
		{"name", input.Name},
		{"phone", input.Phone},
		{"address", input.Address},
		{"reason", input.Reason},
		{"technician_id", input.TechnicianID},
		{"received_by", input.ReceivedBy},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.field)
		}
	}
	return nil
}

func (s *ClaimService) Create(ctx context.Context, principal model.Principal, input CreateClaimInput) (*CreateClaimResult, error) {
	if !principal.IsStaff() {
		return nil, ErrPermissionDenied
	}

	// La validación corre antes de tocar el gateway.
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	technicianID, err := uuid.Parse(strings.TrimSpace(input.TechnicianID))
	if err != nil {
		return nil, fmt.Errorf("%w: technician_id is not a valid id", ErrValidation)
	}

	technician, err := s.technicians.GetByID(ctx, technicianID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown technician", ErrValidation)
		}
		return nil, err
	}
	if !technician.Assignable() {
		return nil, fmt.Errorf("%w: technician not available for assignment", ErrValidation)
	}

	claim := &model.Claim{
		Name:             strings.TrimSpace(input.Name),
		Phone:            strings.TrimSpace(input.Phone),
		Address:          strings.TrimSpace(input.Address),
		Reason:           strings.TrimSpace(input.Reason),
		Status:           model.ClaimStatusPending,
		TechnicianID:     &technicianID,
		ReceivedBy:       strings.TrimSpace(input.ReceivedBy),
		NotificationSent: false,
		IsArchived:       false,
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, claim.ID, principal, model.ClaimEventCreated, "reclamo registrado por "+claim.ReceivedBy)

	if err := s.technicians.AdjustCounters(ctx, technicianID.String(), 1, 0, 1); err != nil {
		s.log.Error().Err(err).Str("technician_id", technicianID.String()).Msg("failed to adjust technician counters")
	}

	warnings := s.dispatchCreated(ctx, claim, technician)

	return &CreateClaimResult{Claim: claim, Warnings: warnings}, nil
}

// dispatchCreated fires the customer and technician notifications and flips
// notification_sent, which gates any later re-dispatch to the customer.
func (s *ClaimService) dispatchCreated(ctx context.Context, claim *model.Claim, technician *model.Technician) []string {
	if claim.NotificationSent {
		return nil
	}

	warnings := s.notifier.ClaimCreated(ctx, claim, technician)

	claim.NotificationSent = true
	if err := s.claims.Patch(ctx, claim.ID.String(), map[string]interface{}{"notification_sent": true}); err != nil {
		s.log.Error().Err(err).Str("claim_id", claim.ID.String()).Msg("failed to persist notification flag")
	}
	s.appendEvent(ctx, claim.ID, model.Principal{Name: "sistema"}, model.ClaimEventNotified,
		fmt.Sprintf("envíos intentados: %d con advertencias", len(warnings)))

	return warnings
}

type EditClaimInput struct {
	Name    *string
	Phone   *string
	Address *string
	Reason  *string
}

func (s *ClaimService) Edit(ctx context.Context, principal model.Principal, id string, input EditClaimInput) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}

	patch := map[string]interface{}{}
	set := func(field string, value *string) error {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			return fmt.Errorf("%w: %s must not be blank", ErrValidation, field)
		}
		patch[field] = trimmed
		return nil
	}

	if err := set("name", input.Name); err != nil {
		return err
	}
	if err := set("phone", input.Phone); err != nil {
		return err
	}
	if err := set("address", input.Address); err != nil {
		return err
	}
	if err := set("reason", input.Reason); err != nil {
		return err
	}
	if len(patch) == 0 {
		return fmt.Errorf("%w: no fields to update", ErrValidation)
	}

	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}

	if err := s.claims.Patch(ctx, claim.ID.String(), patch); err != nil {
		return err
	}

	s.appendEvent(ctx, claim.ID, principal, model.ClaimEventEdited, "datos del reclamo actualizados")
	return nil
}

func (s *ClaimService) Assign(ctx context.Context, principal model.Principal, id, technicianID string) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}

	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}
	if claim.IsArchived || claim.Status.Terminal() {
		return ErrConflict
	}

	newTechID, err := uuid.Parse(strings.TrimSpace(technicianID))
	if err != nil {
		return fmt.Errorf("%w: technician_id is not a valid id", ErrValidation)
	}
	if claim.TechnicianID != nil && *claim.TechnicianID == newTechID {
		return nil
	}

	technician, err := s.technicians.GetByID(ctx, newTechID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: unknown technician", ErrValidation)
		}
		return err
	}
	if !technician.Assignable() {
		return fmt.Errorf("%w: technician not available for assignment", ErrValidation)
	}

	if err := s.claims.Patch(ctx, claim.ID.String(), map[string]interface{}{"technician_id": newTechID}); err != nil {
		return err
	}

	if claim.TechnicianID != nil {
		if err := s.technicians.AdjustCounters(ctx, claim.TechnicianID.String(), -1, 0, 0); err != nil {
			s.log.Error().Err(err).Msg("failed to release previous technician")
		}
	}
	if err := s.technicians.AdjustCounters(ctx, newTechID.String(), 1, 0, 1); err != nil {
		s.log.Error().Err(err).Msg("failed to adjust technician counters")
	}

	s.appendEvent(ctx, claim.ID, principal, model.ClaimEventAssigned, "reasignado a "+technician.Name)

	// Al técnico nuevo siempre se le avisa; el cliente ya fue notificado en
	// el alta (notification_sent lo garantiza).
	claim.TechnicianID = &newTechID
	for _, warning := range s.notifier.ClaimAssigned(ctx, claim, technician) {
		s.log.Warn().Str("claim_id", claim.ID.String()).Msg(warning)
	}

	return nil
}

// Start moves a pending claim into work. Technicians may only start their
// own claims.
func (s *ClaimService) Start(ctx context.Context, principal model.Principal, id string) error {
	return s.transition(ctx, principal, id, model.ClaimStatusInProgress, nil)
}

func (s *ClaimService) Complete(ctx context.Context, principal model.Principal, id, resolution string) error {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return fmt.Errorf("%w: resolution is required", ErrValidation)
	}
	return s.transition(ctx, principal, id, model.ClaimStatusCompleted, &resolution)
}

func (s *ClaimService) Cancel(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}
	return s.transition(ctx, principal, id, model.ClaimStatusCancelled, nil)
}

func (s *ClaimService) transition(ctx context.Context, principal model.Principal, id string, next model.ClaimStatus, resolution *string) error {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}

	if !s.canOperate(principal, claim) {
		return ErrPermissionDenied
	}
	if claim.IsArchived {
		return ErrConflict
	}
	if !claim.Status.CanTransition(next) {
		return fmt.Errorf("%w: cannot move %s claim to %s", ErrConflict, claim.Status, next)
	}

	patch := map[string]interface{}{"status": next}
	if next == model.ClaimStatusCompleted {
		now := time.Now()
		patch["resolution"] = resolution
		patch["resolved_at"] = now
	}

	if err := s.claims.Patch(ctx, claim.ID.String(), patch); err != nil {
		return err
	}

	if claim.TechnicianID != nil {
		switch next {
		case model.ClaimStatusCompleted:
			if err := s.technicians.AdjustCounters(ctx, claim.TechnicianID.String(), -1, 1, 0); err != nil {
				s.log.Error().Err(err).Msg("failed to adjust technician counters")
			}
		case model.ClaimStatusCancelled:
			if err := s.technicians.AdjustCounters(ctx, claim.TechnicianID.String(), -1, 0, 0); err != nil {
				s.log.Error().Err(err).Msg("failed to adjust technician counters")
			}
		}
	}

	s.appendEvent(ctx, claim.ID, principal, model.ClaimEventStatus, fmt.Sprintf("estado: %s -> %s", claim.Status, next))
	return nil
}

// Archive marks a claim as archived. Calling it on an already archived claim
// only refreshes archived_at.
func (s *ClaimService) Archive(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}

	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := s.claims.Patch(ctx, claim.ID.String(), map[string]interface{}{
		"is_archived": true,
		"archived_at": now,
	}); err != nil {
		return err
	}

	if !claim.IsArchived {
		s.appendEvent(ctx, claim.ID, principal, model.ClaimEventArchived, "reclamo archivado")
	}
	return nil
}

func (s *ClaimService) Restore(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsStaff() {
		return ErrPermissionDenied
	}

	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}

	if err := s.claims.Patch(ctx, claim.ID.String(), map[string]interface{}{
		"is_archived": false,
		"archived_at": nil,
	}); err != nil {
		return err
	}

	if claim.IsArchived {
		s.appendEvent(ctx, claim.ID, principal, model.ClaimEventRestored, "reclamo restaurado")
	}
	return nil
}

// Delete removes a claim permanently. Sólo se puede borrar lo archivado.
func (s *ClaimService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsAdmin() {
		return ErrPermissionDenied
	}

	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return err
	}
	if !claim.IsArchived {
		return fmt.Errorf("%w: must archive before delete", ErrPrecondition)
	}

	if err := s.claims.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *ClaimService) Get(ctx context.Context, principal model.Principal, id string) (*model.ClaimView, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canOperate(principal, claim) {
		return nil, ErrPermissionDenied
	}

	view := &model.ClaimView{Claim: *claim}
	if claim.TechnicianID != nil {
		technician, err := s.technicians.GetByID(ctx, claim.TechnicianID.String())
		if err == nil {
			view.TechnicianName = &technician.Name
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return view, nil
}

func (s *ClaimService) List(ctx context.Context, principal model.Principal, filter repository.ClaimListFilter) ([]model.ClaimView, error) {
	if principal.IsTechnician() {
		if principal.TechnicianID == nil {
			return nil, ErrPermissionDenied
		}
		technicianID := principal.TechnicianID.String()
		filter.TechnicianID = &technicianID
	}
	return s.claims.List(ctx, filter)
}

func (s *ClaimService) Events(ctx context.Context, principal model.Principal, id string) ([]model.ClaimEvent, error) {
	claim, err := s.getClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canOperate(principal, claim) {
		return nil, ErrPermissionDenied
	}
	return s.events.ListByClaimID(ctx, claim.ID)
}

func (s *ClaimService) getClaim(ctx context.Context, id string) (*model.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return claim, nil
}

func (s *ClaimService) canOperate(principal model.Principal, claim *model.Claim) bool {
	if principal.IsStaff() {
		return true
	}
	if principal.IsTechnician() && principal.TechnicianID != nil && claim.TechnicianID != nil {
		return *principal.TechnicianID == *claim.TechnicianID
	}
	return false
}

func (s *ClaimService) appendEvent(ctx context.Context, claimID uuid.UUID, principal model.Principal, eventType model.ClaimEventType, detail string) {
	actor := principal.Name
	if actor == "" {
		actor = string(principal.Role)
	}
	event := &model.ClaimEvent{
		ClaimID: claimID,
		Actor:   actor,
		Type:    eventType,
		Detail:  detail,
	}
	if err := s.events.Append(ctx, event); err != nil {
		s.log.Error().Err(err).Str("claim_id", claimID.String()).Msg("failed to append claim event")
	}
}
