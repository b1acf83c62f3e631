package donation

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

type fakeDonationRepo struct {
	donations   map[uuid.UUID]*model.Donation
	transitions []*repository.DonationTransition
}

func newFakeDonationRepo() *fakeDonationRepo {
	return &fakeDonationRepo{donations: make(map[uuid.UUID]*model.Donation)}
}

func (f *fakeDonationRepo) Create(_ context.Context, donation *model.Donation) error {
	donation.ID = uuid.New()
	f.donations[donation.ID] = donation
	return nil
}

func (f *fakeDonationRepo) Get(_ context.Context, id uuid.UUID) (*model.Donation, error) {
	if d, ok := f.donations[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDonationRepo) List(_ context.Context, _ *model.DonationFilters) ([]*model.Donation, error) {
	var out []*model.Donation
	for _, d := range f.donations {
		out = append(out, d)
	}
	return out, nil
}

// Transition mimics the guarded update: it applies only when the stored
// status is in t.From.
func (f *fakeDonationRepo) Transition(_ context.Context, id uuid.UUID, t *repository.DonationTransition) (bool, error) {
	d, ok := f.donations[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, from := range t.From {
		if d.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, nil
	}
	d.Status = t.To
	if t.DonorConfirmed != nil {
		d.DonorConfirmedPickup = t.DonorConfirmed
	}
	if t.CancelReason != nil {
		d.CancelReason = t.CancelReason
	}
	f.transitions = append(f.transitions, t)
	return true, nil
}

type fakeProjectRepo struct {
	project *model.Project
}

func (f *fakeProjectRepo) Get(_ context.Context, id uuid.UUID) (*model.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.project, nil
}

func (f *fakeProjectRepo) List(_ context.Context, _ *model.ProjectFilters) ([]*model.Project, error) {
	return nil, nil
}
func (f *fakeProjectRepo) UpdateRatingStats(_ context.Context, _ uuid.UUID, _ float64, _ int) error {
	return nil
}
func (f *fakeProjectRepo) Deactivate(_ context.Context, _ uuid.UUID, _ string) error { return nil }
func (f *fakeProjectRepo) DeactivateAllForInstitution(_ context.Context, _ uuid.UUID, _ string) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	scheduled []*model.Donation
}

func (f *fakeNotifier) NotifyPickupScheduled(_ context.Context, donation *model.Donation) error {
	f.scheduled = append(f.scheduled, donation)
	return nil
}

func activeProject() *model.Project {
	return &model.Project{
		Base:          model.Base{ID: uuid.New()},
		InstitutionID: uuid.New(),
		Title:         "Campanha do Agasalho",
		Active:        true,
	}
}

func createRequest(project *model.Project, deliveryType model.DeliveryType) *model.CreateDonationRequest {
	req := &model.CreateDonationRequest{
		InstitutionID: project.InstitutionID,
		ProjectID:     project.ID,
		DeliveryType:  deliveryType,
		Items: model.DonationItems{
			{Category: "roupas", Quantity: 3, Description: "casacos"},
		},
	}
	if deliveryType == model.DeliveryTypePickup {
		req.PickupAddress = &model.PickupAddress{
			Street: "Rua das Flores", Number: "100",
			Neighborhood: "Centro", City: "Curitiba", State: "PR", CEP: "80000-000",
		}
	}
	return req
}

func newTestService(project *model.Project) (*Service, *fakeDonationRepo, *fakeNotifier) {
	repo := newFakeDonationRepo()
	notifier := &fakeNotifier{}
	return NewService(repo, &fakeProjectRepo{project: project}, notifier), repo, notifier
}

func seed(repo *fakeDonationRepo, project *model.Project, deliveryType model.DeliveryType, status model.DonationStatus) *model.Donation {
	d := &model.Donation{
		ID:            uuid.New(),
		DonorID:       uuid.New(),
		InstitutionID: project.InstitutionID,
		ProjectID:     project.ID,
		ProjectTitle:  project.Title,
		DeliveryType:  deliveryType,
		Status:        status,
	}
	repo.donations[d.ID] = d
	return d
}

func TestCreateInitialStatusPerDeliveryType(t *testing.T) {
	project := activeProject()
	svc, _, _ := newTestService(project)

	dropOff, err := svc.Create(context.Background(), uuid.New(), createRequest(project, model.DeliveryTypeDropOff))
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusPending, dropOff.Status)

	pickup, err := svc.Create(context.Background(), uuid.New(), createRequest(project, model.DeliveryTypePickup))
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusPendingPickup, pickup.Status)
	require.NotNil(t, pickup.PickupAddress)
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	project := activeProject()
	svc, _, _ := newTestService(project)

	req := createRequest(project, model.DeliveryTypeDropOff)
	req.Items = nil
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateRejectsZeroQuantity(t *testing.T) {
	project := activeProject()
	svc, _, _ := newTestService(project)

	req := createRequest(project, model.DeliveryTypeDropOff)
	req.Items[0].Quantity = 0
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateRequiresPickupAddressForColeta(t *testing.T) {
	project := activeProject()
	svc, _, _ := newTestService(project)

	req := createRequest(project, model.DeliveryTypePickup)
	req.PickupAddress = nil
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestCreateRejectsInactiveProject(t *testing.T) {
	project := activeProject()
	project.Active = false
	svc, _, _ := newTestService(project)

	_, err := svc.Create(context.Background(), uuid.New(), createRequest(project, model.DeliveryTypeDropOff))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestSchedulePickupNotifiesWithoutStatusChange(t *testing.T) {
	project := activeProject()
	svc, repo, notifier := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	err := svc.SchedulePickup(context.Background(), d.ID, project.InstitutionID)
	require.NoError(t, err)
	assert.Len(t, notifier.scheduled, 1)
	assert.Equal(t, model.DonationStatusPendingPickup, repo.donations[d.ID].Status)
}

func TestSchedulePickupRejectsForeignInstitution(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	err := svc.SchedulePickup(context.Background(), d.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestConfirmPickupCreatesConfirmationNotice(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	err := svc.ConfirmPickup(context.Background(), d.ID, project.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusPickedUp, repo.donations[d.ID].Status)

	require.Len(t, repo.transitions, 1)
	notice := repo.transitions[0].Notice
	require.NotNil(t, notice)
	assert.Equal(t, model.NotificationTypeDonorConfirmation, notice.Type)
	assert.Equal(t, d.DonorID, notice.UserID)
	require.NotNil(t, repo.transitions[0].Event)
	assert.Equal(t, model.EventTypeNotificationCreated, repo.transitions[0].Event.EventType)
}

func TestConfirmPickupRejectsWrongState(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPickedUp)

	err := svc.ConfirmPickup(context.Background(), d.ID, project.InstitutionID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestConfirmReceiptAppliesToDropOffOnly(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	err := svc.ConfirmReceipt(context.Background(), d.ID, project.InstitutionID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	assert.Equal(t, model.DonationStatusPendingPickup, repo.donations[d.ID].Status)
}

func TestConfirmReceiptCreditsPoints(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypeDropOff, model.DonationStatusAwaitingReceipt)

	err := svc.ConfirmReceipt(context.Background(), d.ID, project.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusReceived, repo.donations[d.ID].Status)
	require.Len(t, repo.transitions, 1)
	assert.Equal(t, model.PointsPerReceivedDonation, repo.transitions[0].Points)
}

func TestMarkCollectedAppliesToPickupOnly(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypeDropOff, model.DonationStatusPending)

	err := svc.MarkCollected(context.Background(), d.ID, project.InstitutionID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestMarkCollectedClosesUnansweredPickup(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusAwaitingDonorConfirm)

	err := svc.MarkCollected(context.Background(), d.ID, project.InstitutionID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusReceived, repo.donations[d.ID].Status)

	require.Len(t, repo.transitions, 1)
	require.NotNil(t, repo.transitions[0].Notice)
	assert.Equal(t, model.NotificationTypePickupDone, repo.transitions[0].Notice.Type)
	assert.Equal(t, model.PointsPerReceivedDonation, repo.transitions[0].Points)
}

func TestConfirmByDonorRecordsConfirmation(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPickedUp)

	err := svc.ConfirmByDonor(context.Background(), d.ID, d.DonorID)
	require.NoError(t, err)

	stored := repo.donations[d.ID]
	assert.Equal(t, model.DonationStatusReceived, stored.Status)
	require.NotNil(t, stored.DonorConfirmedPickup)
	assert.True(t, *stored.DonorConfirmedPickup)
}

func TestConfirmByDonorRejectsForeignDonor(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPickedUp)

	err := svc.ConfirmByDonor(context.Background(), d.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestMarkDeliveredAdvancesDropOff(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypeDropOff, model.DonationStatusPending)

	err := svc.MarkDelivered(context.Background(), d.ID, d.DonorID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusAwaitingReceipt, repo.donations[d.ID].Status)
}

func TestCancelFromNonTerminalState(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPickedUp)

	err := svc.Cancel(context.Background(), d.ID, Actor{UserID: d.DonorID}, "mudança de planos")
	require.NoError(t, err)

	stored := repo.donations[d.ID]
	assert.Equal(t, model.DonationStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "mudança de planos", *stored.CancelReason)
}

func TestCancelByOwningInstitution(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	actor := Actor{UserID: uuid.New(), InstitutionID: &d.InstitutionID}
	err := svc.Cancel(context.Background(), d.ID, actor, "projeto encerrado")
	require.NoError(t, err)
	assert.Equal(t, model.DonationStatusCancelled, repo.donations[d.ID].Status)
}

func TestCancelRejectsStranger(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPickedUp)

	otherInstitution := uuid.New()
	for _, actor := range []Actor{
		{UserID: uuid.New()},
		{UserID: uuid.New(), InstitutionID: &otherInstitution},
	} {
		err := svc.Cancel(context.Background(), d.ID, actor, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
	}
	assert.Equal(t, model.DonationStatusPickedUp, repo.donations[d.ID].Status)
	assert.Empty(t, repo.transitions)
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	project := activeProject()
	for _, status := range []model.DonationStatus{
		model.DonationStatusReceived,
		model.DonationStatusCancelled,
		model.DonationStatusPickupNotConfirmed,
	} {
		svc, repo, _ := newTestService(project)
		d := seed(repo, project, model.DeliveryTypePickup, status)

		err := svc.Cancel(context.Background(), d.ID, Actor{UserID: d.DonorID}, "")
		require.Error(t, err, "status=%s", status)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	}
}

func TestGetScopedToDonorAndInstitution(t *testing.T) {
	project := activeProject()
	svc, repo, _ := newTestService(project)
	d := seed(repo, project, model.DeliveryTypePickup, model.DonationStatusPendingPickup)

	_, err := svc.Get(context.Background(), d.ID, Actor{UserID: d.DonorID})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), d.ID, Actor{UserID: uuid.New(), InstitutionID: &d.InstitutionID})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), d.ID, Actor{UserID: uuid.New()})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}
