package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/model"
)

func (r *ratingRepository) Create(ctx context.Context, rating *model.Rating) error {
	query := `
		INSERT INTO avaliacoes (
			id, doacao_id, doador_id, instituicao_id, projeto_id,
			estrelas, comentario, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	rating.ID = uuid.New()
	rating.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		rating.ID,
		rating.DonationID,
		rating.DonorID,
		rating.InstitutionID,
		rating.ProjectID,
		rating.Stars,
		rating.Comment,
		rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

func (r *ratingRepository) ExistsForDonation(ctx context.Context, donationID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM avaliacoes WHERE doacao_id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, donationID); err != nil {
		return false, fmt.Errorf("failed to check rating existence: %w", err)
	}
	return exists, nil
}

func (r *ratingRepository) InstitutionStats(ctx context.Context, institutionID uuid.UUID) (*model.RatingStats, error) {
	query := `
		SELECT COALESCE(AVG(estrelas), 0) AS media, COUNT(*) AS total
		FROM avaliacoes
		WHERE instituicao_id = $1
	`
	var stats model.RatingStats
	if err := r.db.GetContext(ctx, &stats, query, institutionID); err != nil {
		return nil, fmt.Errorf("failed to aggregate institution ratings: %w", err)
	}
	return &stats, nil
}

func (r *ratingRepository) ProjectStats(ctx context.Context, projectID uuid.UUID) (*model.RatingStats, error) {
	query := `
		SELECT COALESCE(AVG(estrelas), 0) AS media, COUNT(*) AS total
		FROM avaliacoes
		WHERE projeto_id = $1
	`
	var stats model.RatingStats
	if err := r.db.GetContext(ctx, &stats, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to aggregate project ratings: %w", err)
	}
	return &stats, nil
}

func (r *ratingRepository) ListForInstitution(ctx context.Context, institutionID uuid.UUID) ([]*model.Rating, error) {
	query := `
		SELECT id, doacao_id, doador_id, instituicao_id, projeto_id,
			   estrelas, comentario, created_at
		FROM avaliacoes
		WHERE instituicao_id = $1
		ORDER BY created_at DESC
	`
	var ratings []*model.Rating
	if err := r.db.SelectContext(ctx, &ratings, query, institutionID); err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	return ratings, nil
}
