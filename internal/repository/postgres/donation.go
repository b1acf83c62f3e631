package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
)

func (r *donationRepository) Create(ctx context.Context, donation *model.Donation) error {
	query := `
		INSERT INTO doacoes (
			id, doador_id, instituicao_id, projeto_id, projeto_titulo,
			tipo_entrega, itens, observacoes, endereco_coleta, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	donation.ID = uuid.New()
	donation.CreatedAt = time.Now()
	donation.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		donation.ID,
		donation.DonorID,
		donation.InstitutionID,
		donation.ProjectID,
		donation.ProjectTitle,
		donation.DeliveryType,
		donation.Items,
		donation.Notes,
		donation.PickupAddress,
		donation.Status,
		donation.CreatedAt,
		donation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

func (r *donationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Donation, error) {
	query := `
		SELECT id, doador_id, instituicao_id, projeto_id, projeto_titulo,
			   tipo_entrega, itens, observacoes, endereco_coleta, status,
			   usuario_confirmou_coleta, motivo_cancelamento,
			   created_at, updated_at
		FROM doacoes
		WHERE id = $1
	`
	var donation model.Donation
	err := r.db.GetContext(ctx, &donation, query, id)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return &donation, nil
}

func (r *donationRepository) List(ctx context.Context, filters *model.DonationFilters) ([]*model.Donation, error) {
	query := `
		SELECT id, doador_id, instituicao_id, projeto_id, projeto_titulo,
			   tipo_entrega, itens, observacoes, endereco_coleta, status,
			   usuario_confirmou_coleta, motivo_cancelamento,
			   created_at, updated_at
		FROM doacoes
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.DonorID != uuid.Nil {
		query += fmt.Sprintf(" AND doador_id = $%d", argCount)
		args = append(args, filters.DonorID)
		argCount++
	}

	if filters.InstitutionID != uuid.Nil {
		query += fmt.Sprintf(" AND instituicao_id = $%d", argCount)
		args = append(args, filters.InstitutionID)
		argCount++
	}

	if filters.ProjectID != uuid.Nil {
		query += fmt.Sprintf(" AND projeto_id = $%d", argCount)
		args = append(args, filters.ProjectID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	var donations []*model.Donation
	err := r.db.SelectContext(ctx, &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return donations, nil
}

// Transition performs the guarded status update plus any side-effect rows in
// one transaction. The WHERE status = ANY(from) clause is the optimistic
// concurrency guard: a concurrent actor that already moved the donation makes
// this a no-op instead of a lost update.
func (r *donationRepository) Transition(ctx context.Context, id uuid.UUID, t *repository.DonationTransition) (bool, error) {
	applied := false

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE doacoes
			SET status = $1,
				usuario_confirmou_coleta = COALESCE($2, usuario_confirmou_coleta),
				motivo_cancelamento = COALESCE($3, motivo_cancelamento),
				updated_at = $4
			WHERE id = $5 AND status = ANY($6)
		`
		result, err := tx.ExecContext(ctx, query,
			t.To,
			t.DonorConfirmed,
			t.CancelReason,
			time.Now(),
			id,
			pq.Array(statusStrings(t.From)),
		)
		if err != nil {
			return fmt.Errorf("failed to transition donation: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return nil
		}
		applied = true

		if t.Points > 0 {
			creditQuery := `
				UPDATE instituicoes
				SET pontos = pontos + $1, updated_at = $2
				WHERE id = (SELECT instituicao_id FROM doacoes WHERE id = $3)
			`
			if _, err := tx.ExecContext(ctx, creditQuery, t.Points, time.Now(), id); err != nil {
				return fmt.Errorf("failed to credit institution points: %w", err)
			}
		}

		if t.Notice != nil {
			if err := insertNotification(ctx, tx, t.Notice); err != nil {
				return err
			}
		}

		if t.Event != nil {
			if err := insertOutboxEvent(ctx, tx, t.Event); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func statusStrings(statuses []model.DonationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
