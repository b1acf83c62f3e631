package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/model"
)

func (r *institutionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Institution, error) {
	query := `
		SELECT id, nome, email, telefone, descricao,
			   media_avaliacoes, total_avaliacoes, pontos,
			   created_at, updated_at
		FROM instituicoes
		WHERE id = $1
	`
	var institution model.Institution
	err := r.db.GetContext(ctx, &institution, query, id)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get institution: %w", err)
	}
	return &institution, nil
}

func (r *institutionRepository) UpdateRatingStats(ctx context.Context, id uuid.UUID, average float64, count int) error {
	query := `
		UPDATE instituicoes
		SET media_avaliacoes = $1, total_avaliacoes = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, average, count, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update institution rating stats: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
