package rating

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

// Deactivation policy thresholds. The institution-level cascade fires on any
// sample size; the project-level rule waits for at least MinProjectSample
// ratings. The asymmetry is intentional and mirrors the product rules.
const (
	InstitutionDeactivationMean = 2.0
	ProjectDeactivationMean     = 3.0
	MinProjectSample            = 3
)

const deactivationReason = "média de avaliações abaixo do mínimo"

type Service struct {
	repo            repository.RatingRepository
	donationRepo    repository.DonationRepository
	institutionRepo repository.InstitutionRepository
	projectRepo     repository.ProjectRepository
	outboxRepo      repository.OutboxRepository
}

func NewService(
	repo repository.RatingRepository,
	donationRepo repository.DonationRepository,
	institutionRepo repository.InstitutionRepository,
	projectRepo repository.ProjectRepository,
	outboxRepo repository.OutboxRepository,
) *Service {
	return &Service{
		repo:            repo,
		donationRepo:    donationRepo,
		institutionRepo: institutionRepo,
		projectRepo:     projectRepo,
		outboxRepo:      outboxRepo,
	}
}

// Save records a donor's feedback on a completed donation and refreshes both
// derived aggregates. One rating per donation; only received donations can
// be rated.
func (s *Service) Save(ctx context.Context, donorID uuid.UUID, req *model.CreateRatingRequest) (*model.Rating, error) {
	if req.Stars < model.MinStars || req.Stars > model.MaxStars {
		return nil, apperrors.Validation(
			fmt.Sprintf("estrelas must be between %d and %d", model.MinStars, model.MaxStars), nil)
	}

	donation, err := s.donationRepo.Get(ctx, req.DonationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("donation", err)
		}
		return nil, apperrors.RemoteIO(err)
	}
	if donation.DonorID != donorID {
		return nil, apperrors.Forbidden("donation belongs to another donor", nil)
	}
	if donation.Status != model.DonationStatusReceived {
		return nil, apperrors.InvalidState("only received donations can be rated", nil)
	}

	exists, err := s.repo.ExistsForDonation(ctx, req.DonationID)
	if err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	if exists {
		return nil, apperrors.InvalidState("donation already rated", nil)
	}

	rating := &model.Rating{
		DonationID:    donation.ID,
		DonorID:       donorID,
		InstitutionID: donation.InstitutionID,
		ProjectID:     donation.ProjectID,
		Stars:         req.Stars,
		Comment:       req.Comment,
	}
	if err := s.repo.Create(ctx, rating); err != nil {
		return nil, apperrors.RemoteIO(err)
	}

	if err := s.RecomputeInstitution(ctx, donation.InstitutionID); err != nil {
		log.Error().Err(err).
			Str("instituicao_id", donation.InstitutionID.String()).
			Msg("failed to refresh institution rating aggregate")
	}
	if err := s.RecomputeProject(ctx, donation.ProjectID); err != nil {
		log.Error().Err(err).
			Str("projeto_id", donation.ProjectID.String()).
			Msg("failed to refresh project rating aggregate")
	}

	return rating, nil
}

// RecomputeInstitution refreshes the institution-wide mean and, when it
// falls below the threshold, deactivates every project the institution owns.
// No sample-size gate here: a single bad rating on a fresh institution can
// fire the cascade.
func (s *Service) RecomputeInstitution(ctx context.Context, institutionID uuid.UUID) error {
	stats, err := s.repo.InstitutionStats(ctx, institutionID)
	if err != nil {
		return apperrors.RemoteIO(err)
	}

	average := round2(stats.Average)
	if err := s.institutionRepo.UpdateRatingStats(ctx, institutionID, average, stats.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("institution", err)
		}
		return apperrors.RemoteIO(err)
	}

	if stats.Count == 0 || average >= InstitutionDeactivationMean {
		return nil
	}

	deactivated, err := s.projectRepo.DeactivateAllForInstitution(ctx, institutionID, deactivationReason)
	if err != nil {
		return apperrors.RemoteIO(err)
	}
	if deactivated > 0 {
		log.Warn().
			Str("instituicao_id", institutionID.String()).
			Float64("media", average).
			Int64("projetos_desativados", deactivated).
			Msg("institution below rating threshold, projects deactivated")
		s.emitDeactivation(ctx, institutionID, uuid.Nil, average, stats.Count)
	}

	return nil
}

// RecomputeProject refreshes one project's mean and deactivates it when the
// mean is below threshold with enough ratings to matter.
func (s *Service) RecomputeProject(ctx context.Context, projectID uuid.UUID) error {
	stats, err := s.repo.ProjectStats(ctx, projectID)
	if err != nil {
		return apperrors.RemoteIO(err)
	}

	average := round2(stats.Average)
	if err := s.projectRepo.UpdateRatingStats(ctx, projectID, average, stats.Count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("project", err)
		}
		return apperrors.RemoteIO(err)
	}

	if stats.Count < MinProjectSample || average >= ProjectDeactivationMean {
		return nil
	}

	if err := s.projectRepo.Deactivate(ctx, projectID, deactivationReason); err != nil {
		return apperrors.RemoteIO(err)
	}

	log.Warn().
		Str("projeto_id", projectID.String()).
		Float64("media", average).
		Int("total", stats.Count).
		Msg("project below rating threshold, deactivated")

	project, err := s.projectRepo.Get(ctx, projectID)
	if err == nil {
		s.emitDeactivation(ctx, project.InstitutionID, projectID, average, stats.Count)
	}

	return nil
}

func (s *Service) ListForInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.Rating, error) {
	ratings, err := s.repo.ListForInstitution(ctx, institutionID)
	if err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	return ratings, nil
}

func (s *Service) emitDeactivation(ctx context.Context, institutionID, projectID uuid.UUID, average float64, count int) {
	payload, err := json.Marshal(map[string]interface{}{
		"instituicao_id": institutionID,
		"projeto_id":     projectID,
		"media":          average,
		"total":          count,
		"occurred_at":    time.Now(),
	})
	if err != nil {
		return
	}
	evt := &model.OutboxEvent{
		EventType: model.EventTypeProjectDeactivated,
		Payload:   payload,
	}
	if err := s.outboxRepo.Create(ctx, evt); err != nil {
		log.Error().Err(err).Msg("failed to enqueue deactivation event")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
