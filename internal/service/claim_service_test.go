package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"claims-service/internal/model"
	"claims-service/internal/repository"
)

type fakeClaimStore struct {
	claims      map[string]*model.Claim
	createCalls int
}

func newFakeClaimStore() *fakeClaimStore {
	return &fakeClaimStore{claims: make(map[string]*model.Claim)}
}

func (f *fakeClaimStore) Create(ctx context.Context, claim *model.Claim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	claim.CreatedAt = time.Now()
	claim.UpdatedAt = claim.CreatedAt
	stored := *claim
	f.claims[claim.ID.String()] = &stored
	f.createCalls++
	return nil
}

func (f *fakeClaimStore) GetByID(ctx context.Context, id string) (*model.Claim, error) {
	stored, ok := f.claims[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeClaimStore) Patch(ctx context.Context, id string, patch map[string]interface{}) error {
	stored, ok := f.claims[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for field, value := range patch {
		switch field {
		case "name":
			stored.Name = value.(string)
		case "phone":
			stored.Phone = value.(string)
		case "address":
			stored.Address = value.(string)
		case "reason":
			stored.Reason = value.(string)
		case "status":
			stored.Status = value.(model.ClaimStatus)
		case "technician_id":
			techID := value.(uuid.UUID)
			stored.TechnicianID = &techID
		case "resolution":
			stored.Resolution = value.(*string)
		case "resolved_at":
			at := value.(time.Time)
			stored.ResolvedAt = &at
		case "notification_sent":
			stored.NotificationSent = value.(bool)
		case "is_archived":
			stored.IsArchived = value.(bool)
		case "archived_at":
			if value == nil {
				stored.ArchivedAt = nil
			} else {
				at := value.(time.Time)
				stored.ArchivedAt = &at
			}
		case "updated_at":
			stored.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func (f *fakeClaimStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.claims[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.claims, id)
	return nil
}

func (f *fakeClaimStore) List(ctx context.Context, filter repository.ClaimListFilter) ([]model.ClaimView, error) {
	var out []model.ClaimView
	for _, claim := range f.claims {
		if filter.Archived != nil && claim.IsArchived != *filter.Archived {
			continue
		}
		if filter.TechnicianID != nil {
			if claim.TechnicianID == nil || claim.TechnicianID.String() != *filter.TechnicianID {
				continue
			}
		}
		out = append(out, model.ClaimView{Claim: *claim})
	}
	return out, nil
}

type fakeTechnicianStore struct {
	technicians map[string]*model.Technician
	counterLog  []string
}

func newFakeTechnicianStore(technicians ...*model.Technician) *fakeTechnicianStore {
	store := &fakeTechnicianStore{technicians: make(map[string]*model.Technician)}
	for _, t := range technicians {
		store.technicians[t.ID.String()] = t
	}
	return store
}

func (f *fakeTechnicianStore) GetByID(ctx context.Context, id string) (*model.Technician, error) {
	technician, ok := f.technicians[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *technician
	return &copied, nil
}

func (f *fakeTechnicianStore) List(ctx context.Context, onlyAssignable bool) ([]model.Technician, error) {
	var out []model.Technician
	for _, t := range f.technicians {
		if onlyAssignable && !t.Assignable() {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTechnicianStore) AdjustCounters(ctx context.Context, id string, currentDelta, completedDelta, totalDelta int) error {
	technician, ok := f.technicians[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	technician.CurrentAssignments += currentDelta
	technician.CompletedAssignments += completedDelta
	technician.TotalAssignments += totalDelta
	f.counterLog = append(f.counterLog, id)
	return nil
}

type fakeEventStore struct {
	events []model.ClaimEvent
}

func (f *fakeEventStore) Append(ctx context.Context, event *model.ClaimEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeEventStore) ListByClaimID(ctx context.Context, claimID uuid.UUID) ([]model.ClaimEvent, error) {
	var out []model.ClaimEvent
	for _, event := range f.events {
		if event.ClaimID == claimID {
			out = append(out, event)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	createdCalls  int
	assignedCalls int
	warnings      []string
}

func (f *fakeNotifier) ClaimCreated(ctx context.Context, claim *model.Claim, technician *model.Technician) []string {
	f.createdCalls++
	return f.warnings
}

func (f *fakeNotifier) ClaimAssigned(ctx context.Context, claim *model.Claim, technician *model.Technician) []string {
	f.assignedCalls++
	return f.warnings
}

type fixture struct {
	service    *ClaimService
	claims     *fakeClaimStore
	techs      *fakeTechnicianStore
	events     *fakeEventStore
	notifier   *fakeNotifier
	technician *model.Technician
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	technician := &model.Technician{
		ID:                     uuid.New(),
		UserID:                 uuid.New(),
		Name:                   "Carlos Gómez",
		Phone:                  "+5491155667788",
		Email:                  "carlos@cospec.com.ar",
		Active:                 true,
		Approved:               true,
		AvailableForAssignment: true,
	}
	claims := newFakeClaimStore()
	techs := newFakeTechnicianStore(technician)
	events := &fakeEventStore{}
	notifier := &fakeNotifier{}
	svc := NewClaimService(claims, techs, events, notifier, zerolog.Nop())
	return &fixture{service: svc, claims: claims, techs: techs, events: events, notifier: notifier, technician: technician}
}

func staff() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleReceptionist, Name: "Ana", Approved: true}
}

func admin() model.Principal {
	return model.Principal{UserID: uuid.New(), Role: model.RoleAdmin, Name: "Marta", Approved: true}
}

func validInput(technicianID string) CreateClaimInput {
	return CreateClaimInput{
		Name:         "Juan Pérez",
		Phone:        "+5491122334455",
		Address:      "Calle 123",
		Reason:       "No hay señal",
		TechnicianID: technicianID,
		ReceivedBy:   "Ana",
	}
}

func TestCreateClaim(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)

	claim := result.Claim
	assert.NotEqual(t, uuid.Nil, claim.ID)
	assert.Equal(t, model.ClaimStatusPending, claim.Status)
	assert.False(t, claim.IsArchived)
	assert.True(t, claim.NotificationSent)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, fx.notifier.createdCalls)

	stored, err := fx.claims.GetByID(ctx, claim.ID.String())
	require.NoError(t, err)
	assert.True(t, stored.NotificationSent)
	assert.Equal(t, 1, fx.technician.TotalAssignments)
	assert.Equal(t, 1, fx.technician.CurrentAssignments)
}

func TestCreateClaimValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	techID := fx.technician.ID.String()

	cases := []struct {
		name  string
		input CreateClaimInput
	}{
		{"blank name", CreateClaimInput{Phone: "1", Address: "a", Reason: "r", TechnicianID: techID, ReceivedBy: "Ana"}},
		{"blank phone", CreateClaimInput{Name: "n", Address: "a", Reason: "r", TechnicianID: techID, ReceivedBy: "Ana"}},
		{"blank address", CreateClaimInput{Name: "n", Phone: "1", Reason: "r", TechnicianID: techID, ReceivedBy: "Ana"}},
		{"blank reason", CreateClaimInput{Name: "n", Phone: "1", Address: "a", TechnicianID: techID, ReceivedBy: "Ana"}},
		{"blank technician", CreateClaimInput{Name: "n", Phone: "1", Address: "a", Reason: "r", ReceivedBy: "Ana"}},
		{"blank received_by", CreateClaimInput{Name: "n", Phone: "1", Address: "a", Reason: "r", TechnicianID: techID}},
		{"whitespace only", CreateClaimInput{Name: "   ", Phone: "1", Address: "a", Reason: "r", TechnicianID: techID, ReceivedBy: "Ana"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.service.Create(ctx, staff(), tc.input)
			assert.ErrorIs(t, err, ErrValidation)
			// el gateway nunca se toca ante una validación fallida
			assert.Equal(t, 0, fx.claims.createCalls)
		})
	}
}

func TestCreateClaimDispatchFailureDoesNotRollBack(t *testing.T) {
	fx := newFixture(t)
	fx.notifier.warnings = []string{"no se pudo notificar al cliente por WhatsApp"}
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	assert.Equal(t, fx.notifier.warnings, result.Warnings)

	_, err = fx.claims.GetByID(ctx, result.Claim.ID.String())
	assert.NoError(t, err)
}

func TestCreateClaimPermission(t *testing.T) {
	fx := newFixture(t)
	techPrincipal := model.Principal{UserID: uuid.New(), Role: model.RoleTechnician, TechnicianID: &fx.technician.ID}

	_, err := fx.service.Create(context.Background(), techPrincipal, validInput(fx.technician.ID.String()))
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestArchiveRestoreInvariant(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	require.NoError(t, fx.service.Archive(ctx, staff(), id))
	stored, err := fx.claims.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.IsArchived)
	require.NotNil(t, stored.ArchivedAt)

	require.NoError(t, fx.service.Restore(ctx, staff(), id))
	stored, err = fx.claims.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, stored.IsArchived)
	assert.Nil(t, stored.ArchivedAt)
}

func TestArchiveIdempotent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	require.NoError(t, fx.service.Archive(ctx, staff(), id))
	first, err := fx.claims.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, fx.service.Archive(ctx, staff(), id))
	second, err := fx.claims.GetByID(ctx, id)
	require.NoError(t, err)

	assert.True(t, second.IsArchived)
	require.NotNil(t, second.ArchivedAt)
	assert.False(t, second.ArchivedAt.Before(*first.ArchivedAt))
}

func TestDeleteRequiresArchive(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	err = fx.service.Delete(ctx, admin(), id)
	assert.ErrorIs(t, err, ErrPrecondition)

	// sigue presente
	_, err = fx.claims.GetByID(ctx, id)
	assert.NoError(t, err)

	require.NoError(t, fx.service.Archive(ctx, staff(), id))
	require.NoError(t, fx.service.Delete(ctx, admin(), id))

	_, err = fx.claims.GetByID(ctx, id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteIsAdminOnly(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	require.NoError(t, fx.service.Archive(ctx, staff(), id))
	assert.ErrorIs(t, fx.service.Delete(ctx, staff(), id), ErrPermissionDenied)
}

func TestStatusTransitions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	// pending no puede completarse sin pasar por in_progress
	err = fx.service.Complete(ctx, staff(), id, "listo")
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, fx.service.Start(ctx, staff(), id))
	require.NoError(t, fx.service.Complete(ctx, staff(), id, "se recalibró la antena"))

	stored, err := fx.claims.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.ClaimStatusCompleted, stored.Status)
	require.NotNil(t, stored.Resolution)
	assert.Equal(t, "se recalibró la antena", *stored.Resolution)
	assert.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, 1, fx.technician.CompletedAssignments)
	assert.Equal(t, 0, fx.technician.CurrentAssignments)

	// completed es terminal
	assert.ErrorIs(t, fx.service.Cancel(ctx, staff(), id), ErrConflict)
}

func TestCompleteRequiresResolution(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)

	err = fx.service.Complete(ctx, staff(), result.Claim.ID.String(), "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTechnicianScopedList(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	other := &model.Technician{
		ID: uuid.New(), UserID: uuid.New(), Name: "Otro", Phone: "+54911", Email: "o@cospec.com.ar",
		Active: true, Approved: true, AvailableForAssignment: true,
	}
	fx.techs.technicians[other.ID.String()] = other

	mine, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	_, err = fx.service.Create(ctx, staff(), validInput(other.ID.String()))
	require.NoError(t, err)

	principal := model.Principal{UserID: uuid.New(), Role: model.RoleTechnician, TechnicianID: &fx.technician.ID}
	claims, err := fx.service.List(ctx, principal, repository.ClaimListFilter{})
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, mine.Claim.ID, claims[0].ID)
}

func TestTechnicianCannotTouchForeignClaim(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)

	otherID := uuid.New()
	principal := model.Principal{UserID: uuid.New(), Role: model.RoleTechnician, TechnicianID: &otherID}

	_, err = fx.service.Get(ctx, principal, result.Claim.ID.String())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, fx.service.Start(ctx, principal, result.Claim.ID.String()), ErrPermissionDenied)
}

func TestAssignAdjustsCountersAndNotifies(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	other := &model.Technician{
		ID: uuid.New(), UserID: uuid.New(), Name: "Otro", Phone: "+54911", Email: "o@cospec.com.ar",
		Active: true, Approved: true, AvailableForAssignment: true,
	}
	fx.techs.technicians[other.ID.String()] = other

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)

	require.NoError(t, fx.service.Assign(ctx, staff(), result.Claim.ID.String(), other.ID.String()))

	stored, err := fx.claims.GetByID(ctx, result.Claim.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.TechnicianID)
	assert.Equal(t, other.ID, *stored.TechnicianID)
	assert.Equal(t, 0, fx.technician.CurrentAssignments)
	assert.Equal(t, 1, other.CurrentAssignments)
	assert.Equal(t, 1, fx.notifier.assignedCalls)
}

func TestEditValidatesPresentFields(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	result, err := fx.service.Create(ctx, staff(), validInput(fx.technician.ID.String()))
	require.NoError(t, err)
	id := result.Claim.ID.String()

	blank := "  "
	assert.ErrorIs(t, fx.service.Edit(ctx, staff(), id, EditClaimInput{Phone: &blank}), ErrValidation)

	newAddress := "Av. Siempreviva 742"
	require.NoError(t, fx.service.Edit(ctx, staff(), id, EditClaimInput{Address: &newAddress}))

	stored, err := fx.claims.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, newAddress, stored.Address)
	// los campos ausentes del patch no se tocan
	assert.Equal(t, "Juan Pérez", stored.Name)
}
