package rating

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

type fakeRatingRepo struct {
	ratings          []*model.Rating
	institutionStats model.RatingStats
	projectStats     model.RatingStats
}

func (f *fakeRatingRepo) Create(_ context.Context, rating *model.Rating) error {
	rating.ID = uuid.New()
	f.ratings = append(f.ratings, rating)
	return nil
}

func (f *fakeRatingRepo) ExistsForDonation(_ context.Context, donationID uuid.UUID) (bool, error) {
	for _, r := range f.ratings {
		if r.DonationID == donationID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRatingRepo) InstitutionStats(_ context.Context, _ uuid.UUID) (*model.RatingStats, error) {
	stats := f.institutionStats
	return &stats, nil
}

func (f *fakeRatingRepo) ProjectStats(_ context.Context, _ uuid.UUID) (*model.RatingStats, error) {
	stats := f.projectStats
	return &stats, nil
}

func (f *fakeRatingRepo) ListForInstitution(_ context.Context, _ uuid.UUID) ([]*model.Rating, error) {
	return f.ratings, nil
}

type fakeDonationRepo struct {
	donations map[uuid.UUID]*model.Donation
}

func (f *fakeDonationRepo) Create(_ context.Context, _ *model.Donation) error { return nil }

func (f *fakeDonationRepo) Get(_ context.Context, id uuid.UUID) (*model.Donation, error) {
	if d, ok := f.donations[id]; ok {
		copied := *d
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeDonationRepo) List(_ context.Context, _ *model.DonationFilters) ([]*model.Donation, error) {
	return nil, nil
}

func (f *fakeDonationRepo) Transition(_ context.Context, _ uuid.UUID, _ *repository.DonationTransition) (bool, error) {
	return false, nil
}

type fakeInstitutionRepo struct {
	average float64
	count   int
}

func (f *fakeInstitutionRepo) Get(_ context.Context, _ uuid.UUID) (*model.Institution, error) {
	return &model.Institution{RatingAverage: f.average, RatingCount: f.count}, nil
}

func (f *fakeInstitutionRepo) UpdateRatingStats(_ context.Context, _ uuid.UUID, average float64, count int) error {
	f.average = average
	f.count = count
	return nil
}

type fakeProjectRepo struct {
	projects        map[uuid.UUID]*model.Project
	deactivatedAll  bool
	deactivatedOne  bool
	institutionOf   uuid.UUID
	activeProjects  int64
	lastReason      string
	updatedAverage  float64
	updatedCount    int
	ratingStatsSeen bool
}

func (f *fakeProjectRepo) Get(_ context.Context, id uuid.UUID) (*model.Project, error) {
	if p, ok := f.projects[id]; ok {
		return p, nil
	}
	return &model.Project{InstitutionID: f.institutionOf}, nil
}

func (f *fakeProjectRepo) List(_ context.Context, _ *model.ProjectFilters) ([]*model.Project, error) {
	return nil, nil
}

func (f *fakeProjectRepo) UpdateRatingStats(_ context.Context, _ uuid.UUID, average float64, count int) error {
	f.ratingStatsSeen = true
	f.updatedAverage = average
	f.updatedCount = count
	return nil
}

func (f *fakeProjectRepo) Deactivate(_ context.Context, _ uuid.UUID, reason string) error {
	f.deactivatedOne = true
	f.lastReason = reason
	return nil
}

func (f *fakeProjectRepo) DeactivateAllForInstitution(_ context.Context, _ uuid.UUID, reason string) (int64, error) {
	f.deactivatedAll = true
	f.lastReason = reason
	return f.activeProjects, nil
}

type fakeOutboxRepo struct {
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(_ context.Context, evt *model.OutboxEvent) error {
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeOutboxRepo) GetPending(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID) error { return nil }
func (f *fakeOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	return nil
}
func (f *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService(ratings *fakeRatingRepo, donations *fakeDonationRepo, institutions *fakeInstitutionRepo, projects *fakeProjectRepo) (*Service, *fakeOutboxRepo) {
	outbox := &fakeOutboxRepo{}
	return NewService(ratings, donations, institutions, projects, outbox), outbox
}

func receivedDonation(donorID uuid.UUID) *model.Donation {
	return &model.Donation{
		ID:            uuid.New(),
		DonorID:       donorID,
		InstitutionID: uuid.New(),
		ProjectID:     uuid.New(),
		DeliveryType:  model.DeliveryTypePickup,
		Status:        model.DonationStatusReceived,
	}
}

func TestSaveRejectsOutOfRangeStars(t *testing.T) {
	svc, _ := newTestService(&fakeRatingRepo{}, &fakeDonationRepo{}, &fakeInstitutionRepo{}, &fakeProjectRepo{})

	for _, stars := range []int{0, 6, -1} {
		_, err := svc.Save(context.Background(), uuid.New(), &model.CreateRatingRequest{
			DonationID: uuid.New(),
			Stars:      stars,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	}
}

func TestSaveRejectsUnreceivedDonation(t *testing.T) {
	donorID := uuid.New()
	donation := receivedDonation(donorID)
	donation.Status = model.DonationStatusPickedUp

	donations := &fakeDonationRepo{donations: map[uuid.UUID]*model.Donation{donation.ID: donation}}
	svc, _ := newTestService(&fakeRatingRepo{}, donations, &fakeInstitutionRepo{}, &fakeProjectRepo{})

	_, err := svc.Save(context.Background(), donorID, &model.CreateRatingRequest{
		DonationID: donation.ID,
		Stars:      4,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestSaveRejectsForeignDonation(t *testing.T) {
	donation := receivedDonation(uuid.New())
	donations := &fakeDonationRepo{donations: map[uuid.UUID]*model.Donation{donation.ID: donation}}
	svc, _ := newTestService(&fakeRatingRepo{}, donations, &fakeInstitutionRepo{}, &fakeProjectRepo{})

	_, err := svc.Save(context.Background(), uuid.New(), &model.CreateRatingRequest{
		DonationID: donation.ID,
		Stars:      4,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestSaveRejectsSecondRating(t *testing.T) {
	donorID := uuid.New()
	donation := receivedDonation(donorID)
	donations := &fakeDonationRepo{donations: map[uuid.UUID]*model.Donation{donation.ID: donation}}
	ratings := &fakeRatingRepo{
		institutionStats: model.RatingStats{Average: 5, Count: 1},
		projectStats:     model.RatingStats{Average: 5, Count: 1},
	}
	svc, _ := newTestService(ratings, donations, &fakeInstitutionRepo{}, &fakeProjectRepo{})

	_, err := svc.Save(context.Background(), donorID, &model.CreateRatingRequest{DonationID: donation.ID, Stars: 5})
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), donorID, &model.CreateRatingRequest{DonationID: donation.ID, Stars: 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	assert.Len(t, ratings.ratings, 1)
}

func TestSaveSnapshotsInstitutionAndProject(t *testing.T) {
	donorID := uuid.New()
	donation := receivedDonation(donorID)
	donations := &fakeDonationRepo{donations: map[uuid.UUID]*model.Donation{donation.ID: donation}}
	ratings := &fakeRatingRepo{
		institutionStats: model.RatingStats{Average: 4.5, Count: 2},
		projectStats:     model.RatingStats{Average: 4.5, Count: 2},
	}
	svc, _ := newTestService(ratings, donations, &fakeInstitutionRepo{}, &fakeProjectRepo{})

	saved, err := svc.Save(context.Background(), donorID, &model.CreateRatingRequest{
		DonationID: donation.ID,
		Stars:      5,
		Comment:    "entrega rápida",
	})
	require.NoError(t, err)
	assert.Equal(t, donation.InstitutionID, saved.InstitutionID)
	assert.Equal(t, donation.ProjectID, saved.ProjectID)
	assert.Equal(t, donorID, saved.DonorID)
}

func TestInstitutionCascadeFiresWithoutSampleGate(t *testing.T) {
	// A single 1-star rating is enough to pull a fresh institution below the
	// threshold and switch off every project it owns.
	ratings := &fakeRatingRepo{institutionStats: model.RatingStats{Average: 1.0, Count: 1}}
	projects := &fakeProjectRepo{activeProjects: 3}
	svc, outbox := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeInstitution(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, projects.deactivatedAll)
	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventTypeProjectDeactivated, outbox.events[0].EventType)
}

func TestInstitutionAtThresholdStaysActive(t *testing.T) {
	ratings := &fakeRatingRepo{institutionStats: model.RatingStats{Average: 2.0, Count: 10}}
	projects := &fakeProjectRepo{activeProjects: 3}
	svc, _ := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeInstitution(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, projects.deactivatedAll)
}

func TestInstitutionWithNoRatingsStaysActive(t *testing.T) {
	ratings := &fakeRatingRepo{institutionStats: model.RatingStats{Average: 0, Count: 0}}
	projects := &fakeProjectRepo{activeProjects: 1}
	svc, _ := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeInstitution(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, projects.deactivatedAll)
}

func TestProjectDeactivationNeedsMinimumSample(t *testing.T) {
	// Two bad ratings are below the sample floor: the mean updates but the
	// project stays active.
	ratings := &fakeRatingRepo{projectStats: model.RatingStats{Average: 1.5, Count: 2}}
	projects := &fakeProjectRepo{}
	svc, _ := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeProject(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, projects.deactivatedOne)
	assert.Equal(t, 1.5, projects.updatedAverage)
}

func TestProjectDeactivatesAtSampleFloor(t *testing.T) {
	ratings := &fakeRatingRepo{projectStats: model.RatingStats{Average: 2.9, Count: 3}}
	projects := &fakeProjectRepo{institutionOf: uuid.New()}
	svc, outbox := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeProject(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, projects.deactivatedOne)
	assert.Equal(t, deactivationReason, projects.lastReason)
	require.Len(t, outbox.events, 1)
}

func TestProjectAtThresholdStaysActive(t *testing.T) {
	ratings := &fakeRatingRepo{projectStats: model.RatingStats{Average: 3.0, Count: 10}}
	projects := &fakeProjectRepo{}
	svc, _ := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeProject(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, projects.deactivatedOne)
}

func TestRoundingToTwoDecimals(t *testing.T) {
	ratings := &fakeRatingRepo{projectStats: model.RatingStats{Average: 3.333333, Count: 3}}
	projects := &fakeProjectRepo{}
	svc, _ := newTestService(ratings, &fakeDonationRepo{}, &fakeInstitutionRepo{}, projects)

	err := svc.RecomputeProject(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3.33, projects.updatedAverage)
}
