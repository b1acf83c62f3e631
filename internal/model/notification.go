package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	// NotificationTypePickupScheduled tells the donor the institution will
	// visit the pickup address.
	NotificationTypePickupScheduled NotificationType = "ong_busca"
	// NotificationTypePickupDone tells the donor the institution reported
	// the goods as collected.
	NotificationTypePickupDone NotificationType = "ong_buscou_confirmacao"
	// NotificationTypeDonorConfirmation asks the donor to confirm or deny
	// that the pickup happened. Only this type carries a response.
	NotificationTypeDonorConfirmation NotificationType = "confirmacao_coleta_usuario"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypePickupScheduled, NotificationTypePickupDone, NotificationTypeDonorConfirmation:
		return true
	}
	return false
}

// Respondable reports whether recipients answer this notification type.
func (t NotificationType) Respondable() bool {
	return t == NotificationTypeDonorConfirmation
}

type DonorResponse string

const (
	DonorResponseConfirmed DonorResponse = "confirmado"
	DonorResponseDenied    DonorResponse = "negado"
)

// Notification is a directed message from the workflow to one user,
// optionally awaiting a structured response.
type Notification struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	UserID        uuid.UUID        `json:"usuario_id" db:"usuario_id"`
	InstitutionID uuid.UUID        `json:"instituicao_id" db:"instituicao_id"`
	DonationID    uuid.UUID        `json:"doacao_id" db:"doacao_id"`
	Type          NotificationType `json:"tipo_notificacao" db:"tipo_notificacao"`
	Title         string           `json:"titulo" db:"titulo"`
	Description   string           `json:"descricao" db:"descricao"`
	Read          bool             `json:"lida" db:"lida"`
	ReadAt        *time.Time       `json:"data_leitura,omitempty" db:"read_at"`
	Responded     bool             `json:"respondida" db:"respondida"`
	DonorResponse *DonorResponse   `json:"resposta_usuario,omitempty" db:"resposta_usuario"`
	RespondedAt   *time.Time       `json:"data_resposta,omitempty" db:"responded_at"`
	CreatedAt     time.Time        `json:"data_criacao" db:"created_at"`
}

type RespondNotificationRequest struct {
	Confirmed *bool `json:"confirmou" binding:"required"`
}

type NotificationFilters struct {
	UserID     uuid.UUID
	OnlyUnread bool
}
