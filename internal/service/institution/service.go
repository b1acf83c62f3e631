package institution

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
	"github.com/doarbem/doar-api/internal/service/rating"
	apperrors "github.com/doarbem/doar-api/pkg/errors"
)

// Profile is an institution together with its derived display tier.
type Profile struct {
	model.Institution
	Tier model.Tier `json:"classificacao"`
}

type Service struct {
	repo        repository.InstitutionRepository
	projectRepo repository.ProjectRepository
}

func NewService(repo repository.InstitutionRepository, projectRepo repository.ProjectRepository) *Service {
	return &Service{
		repo:        repo,
		projectRepo: projectRepo,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	institution, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("institution", err)
		}
		return nil, apperrors.RemoteIO(err)
	}

	return &Profile{
		Institution: *institution,
		Tier:        rating.Classify(institution.Points),
	}, nil
}

func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("project", err)
		}
		return nil, apperrors.RemoteIO(err)
	}
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context, filters *model.ProjectFilters) ([]*model.Project, error) {
	projects, err := s.projectRepo.List(ctx, filters)
	if err != nil {
		return nil, apperrors.RemoteIO(err)
	}
	return projects, nil
}
