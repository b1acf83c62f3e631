package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doarbem/doar-api/internal/model"
)

func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	query := `
		SELECT id, instituicao_id, titulo, descricao, ativo,
			   media_avaliacoes_projeto, total_avaliacoes_projeto,
			   motivo_desativacao, created_at, updated_at
		FROM projetos
		WHERE id = $1
	`
	var project model.Project
	err := r.db.GetContext(ctx, &project, query, id)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filters *model.ProjectFilters) ([]*model.Project, error) {
	query := `
		SELECT id, instituicao_id, titulo, descricao, ativo,
			   media_avaliacoes_projeto, total_avaliacoes_projeto,
			   motivo_desativacao, created_at, updated_at
		FROM projetos
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.InstitutionID != uuid.Nil {
		query += fmt.Sprintf(" AND instituicao_id = $%d", argCount)
		args = append(args, filters.InstitutionID)
		argCount++
	}

	if filters.OnlyActive {
		query += " AND ativo = true"
	}

	query += " ORDER BY created_at DESC"

	var projects []*model.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (r *projectRepository) UpdateRatingStats(ctx context.Context, id uuid.UUID, average float64, count int) error {
	query := `
		UPDATE projetos
		SET media_avaliacoes_projeto = $1, total_avaliacoes_projeto = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query, average, count, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update project rating stats: %w", err)
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

func (r *projectRepository) Deactivate(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE projetos
		SET ativo = false, motivo_desativacao = $1, updated_at = $2
		WHERE id = $3 AND ativo = true
	`
	result, err := r.db.ExecContext(ctx, query, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate project: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

func (r *projectRepository) DeactivateAllForInstitution(ctx context.Context, institutionID uuid.UUID, reason string) (int64, error) {
	query := `
		UPDATE projetos
		SET ativo = false, motivo_desativacao = $1, updated_at = $2
		WHERE instituicao_id = $3 AND ativo = true
	`
	result, err := r.db.ExecContext(ctx, query, reason, time.Now(), institutionID)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate institution projects: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
