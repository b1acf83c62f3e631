package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/model"
)

// DonationTransition describes a guarded status change. Extra rows listed
// here are written in the same database transaction as the status update,
// so a donation never changes state without its side effects.
type DonationTransition struct {
	From           []model.DonationStatus
	To             model.DonationStatus
	DonorConfirmed *bool
	CancelReason   *string
	// Points credited to the owning institution when the transition lands.
	Points int
	Notice *model.Notification
	Event  *model.OutboxEvent
}

// All repository interfaces in one file
type (
	DonationRepository interface {
		Create(ctx context.Context, donation *model.Donation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Donation, error)
		List(ctx context.Context, filters *model.DonationFilters) ([]*model.Donation, error)
		// Transition applies t only if the donation is currently in one of
		// t.From; reports whether a row changed.
		Transition(ctx context.Context, id uuid.UUID, t *DonationTransition) (bool, error)
	}

	NotificationRepository interface {
		// Create inserts the notification and, when evt is non-nil, the
		// outbox row in one transaction.
		Create(ctx context.Context, notification *model.Notification, evt *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*model.Notification, error)
		CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
		Delete(ctx context.Context, id, userID uuid.UUID) error
		// Respond records the donor's answer and applies the donation
		// transition atomically; both writes land or neither does.
		Respond(ctx context.Context, id uuid.UUID, response model.DonorResponse, donationID uuid.UUID, t *DonationTransition) (bool, error)
	}

	RatingRepository interface {
		Create(ctx context.Context, rating *model.Rating) error
		ExistsForDonation(ctx context.Context, donationID uuid.UUID) (bool, error)
		InstitutionStats(ctx context.Context, institutionID uuid.UUID) (*model.RatingStats, error)
		ProjectStats(ctx context.Context, projectID uuid.UUID) (*model.RatingStats, error)
		ListForInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.Rating, error)
	}

	InstitutionRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Institution, error)
		UpdateRatingStats(ctx context.Context, id uuid.UUID, average float64, count int) error
	}

	ProjectRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
		List(ctx context.Context, filters *model.ProjectFilters) ([]*model.Project, error)
		UpdateRatingStats(ctx context.Context, id uuid.UUID, average float64, count int) error
		Deactivate(ctx context.Context, id uuid.UUID, reason string) error
		// DeactivateAllForInstitution returns how many projects were switched off.
		DeactivateAllForInstitution(ctx context.Context, institutionID uuid.UUID, reason string) (int64, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
