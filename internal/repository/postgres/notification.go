package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/doarbem/doar-api/internal/model"
	"github.com/doarbem/doar-api/internal/repository"
)

// insertNotification writes a notification row using db or an open tx.
func insertNotification(ctx context.Context, ext sqlx.ExtContext, n *model.Notification) error {
	query := `
		INSERT INTO notificacoes (
			id, usuario_id, instituicao_id, doacao_id, tipo_notificacao,
			titulo, descricao, lida, respondida, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := ext.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.InstitutionID,
		n.DonationID,
		n.Type,
		n.Title,
		n.Description,
		n.Read,
		n.Responded,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification, evt *model.OutboxEvent) error {
	if evt == nil {
		return insertNotification(ctx, r.db, notification)
	}
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertNotification(ctx, tx, notification); err != nil {
			return err
		}
		return insertOutboxEvent(ctx, tx, evt)
	})
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
		SELECT id, usuario_id, instituicao_id, doacao_id, tipo_notificacao,
			   titulo, descricao, lida, read_at, respondida, resposta_usuario,
			   responded_at, created_at
		FROM notificacoes
		WHERE id = $1
	`
	var notification model.Notification
	err := r.db.GetContext(ctx, &notification, query, id)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &notification, nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, onlyUnread bool) ([]*model.Notification, error) {
	query := `
		SELECT id, usuario_id, instituicao_id, doacao_id, tipo_notificacao,
			   titulo, descricao, lida, read_at, respondida, resposta_usuario,
			   responded_at, created_at
		FROM notificacoes
		WHERE usuario_id = $1
	`
	args := []interface{}{userID}

	if onlyUnread {
		query += " AND lida = false"
	}

	query += " ORDER BY created_at DESC"

	var notifications []*model.Notification
	err := r.db.SelectContext(ctx, &notifications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM notificacoes WHERE usuario_id = $1 AND lida = false`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `
		UPDATE notificacoes
		SET lida = true, read_at = $1
		WHERE id = $2 AND usuario_id = $3 AND lida = false
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM notificacoes WHERE id = $1 AND usuario_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
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

// Respond updates the notification answer and the linked donation status in
// one transaction. A notification already answered, or a donation no longer
// in an expected source state, aborts the whole pair.
func (r *notificationRepository) Respond(ctx context.Context, id uuid.UUID, response model.DonorResponse, donationID uuid.UUID, t *repository.DonationTransition) (bool, error) {
	applied := false

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		notifQuery := `
			UPDATE notificacoes
			SET respondida = true, resposta_usuario = $1, responded_at = $2,
				lida = true, read_at = COALESCE(read_at, $2)
			WHERE id = $3 AND tipo_notificacao = $4 AND respondida = false
		`
		result, err := tx.ExecContext(ctx, notifQuery,
			response,
			time.Now(),
			id,
			model.NotificationTypeDonorConfirmation,
		)
		if err != nil {
			return fmt.Errorf("failed to record notification response: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return nil
		}

		donationQuery := `
			UPDATE doacoes
			SET status = $1,
				usuario_confirmou_coleta = COALESCE($2, usuario_confirmou_coleta),
				updated_at = $3
			WHERE id = $4 AND status = ANY($5)
		`
		result, err = tx.ExecContext(ctx, donationQuery,
			t.To,
			t.DonorConfirmed,
			time.Now(),
			donationID,
			pq.Array(statusStrings(t.From)),
		)
		if err != nil {
			return fmt.Errorf("failed to transition donation: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			// Roll back the notification update as well.
			return fmt.Errorf("donation %s not in an expected state: %w", donationID, errStaleState)
		}
		applied = true

		if t.Points > 0 {
			creditQuery := `
				UPDATE instituicoes
				SET pontos = pontos + $1, updated_at = $2
				WHERE id = (SELECT instituicao_id FROM doacoes WHERE id = $3)
			`
			if _, err := tx.ExecContext(ctx, creditQuery, t.Points, time.Now(), donationID); err != nil {
				return fmt.Errorf("failed to credit institution points: %w", err)
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
		if errors.Is(err, errStaleState) {
			return false, nil
		}
		return false, err
	}
	return applied, nil
}
