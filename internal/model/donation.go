package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DeliveryType says who moves the goods: the donor drops them off or the
// institution picks them up at the donor's address.
type DeliveryType string

const (
	DeliveryTypeDropOff DeliveryType = "entrega"
	DeliveryTypePickup  DeliveryType = "coleta"
)

type DonationStatus string

const (
	DonationStatusPending              DonationStatus = "pendente"
	DonationStatusPendingPickup        DonationStatus = "pendente_busca"
	DonationStatusPickedUp             DonationStatus = "buscado"
	DonationStatusAwaitingReceipt      DonationStatus = "aguardando_confirmacao"
	DonationStatusAwaitingDonorConfirm DonationStatus = "aguardando_confirmacao_usuario"
	DonationStatusReceived             DonationStatus = "recebida"
	DonationStatusPickupNotConfirmed   DonationStatus = "coleta_nao_confirmada"
	DonationStatusCancelled            DonationStatus = "cancelada"
)

// Valid reports whether s is one of the defined statuses. Nothing outside
// this set may ever be persisted.
func (s DonationStatus) Valid() bool {
	switch s {
	case DonationStatusPending, DonationStatusPendingPickup, DonationStatusPickedUp,
		DonationStatusAwaitingReceipt, DonationStatusAwaitingDonorConfirm,
		DonationStatusReceived, DonationStatusPickupNotConfirmed, DonationStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the donation can no longer change state.
func (s DonationStatus) Terminal() bool {
	switch s {
	case DonationStatusReceived, DonationStatusPickupNotConfirmed, DonationStatusCancelled:
		return true
	}
	return false
}

// DonationItem is one line of pledged goods.
type DonationItem struct {
	Category    string `json:"categoria" binding:"required"`
	Quantity    int    `json:"quantidade" binding:"required,min=1"`
	Description string `json:"descricao"`
}

// DonationItems is stored as a JSONB column.
type DonationItems []DonationItem

func (d DonationItems) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DonationItems) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for donation items", src)
	}
	return json.Unmarshal(b, d)
}

// PickupAddress is the snapshotted donor address for coleta donations.
type PickupAddress struct {
	CEP          string `json:"cep" binding:"required,cep"`
	Street       string `json:"logradouro" binding:"required"`
	Number       string `json:"numero" binding:"required"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"cidade" binding:"required"`
	State        string `json:"estado" binding:"required"`
}

func (a PickupAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *PickupAddress) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for pickup address", src)
	}
	return json.Unmarshal(b, a)
}

// Donation is one donor's pledge of goods to one project of one institution.
// Records are never hard-deleted.
type Donation struct {
	ID                   uuid.UUID      `json:"id" db:"id"`
	DonorID              uuid.UUID      `json:"doador_id" db:"doador_id"`
	InstitutionID        uuid.UUID      `json:"instituicao_id" db:"instituicao_id"`
	ProjectID            uuid.UUID      `json:"projeto_id" db:"projeto_id"`
	ProjectTitle         string         `json:"projeto_titulo" db:"projeto_titulo"`
	DeliveryType         DeliveryType   `json:"tipo_entrega" db:"tipo_entrega"`
	Items                DonationItems  `json:"itens" db:"itens"`
	Notes                string         `json:"observacoes" db:"observacoes"`
	PickupAddress        *PickupAddress `json:"endereco_coleta,omitempty" db:"endereco_coleta"`
	Status               DonationStatus `json:"status" db:"status"`
	DonorConfirmedPickup *bool          `json:"usuario_confirmou_coleta,omitempty" db:"usuario_confirmou_coleta"`
	CancelReason         *string        `json:"motivo_cancelamento,omitempty" db:"motivo_cancelamento"`
	CreatedAt            time.Time      `json:"data_criacao" db:"created_at"`
	UpdatedAt            time.Time      `json:"data_atualizacao" db:"updated_at"`
}

type CreateDonationRequest struct {
	InstitutionID uuid.UUID      `json:"instituicao_id" binding:"required"`
	ProjectID     uuid.UUID      `json:"projeto_id" binding:"required"`
	ProjectTitle  string         `json:"projeto_titulo"`
	DeliveryType  DeliveryType   `json:"tipo_entrega" binding:"required,oneof=entrega coleta"`
	Items         []DonationItem `json:"itens" binding:"required,min=1,dive"`
	Notes         string         `json:"observacoes" binding:"max=1000"`
	PickupAddress *PickupAddress `json:"endereco_coleta"`
}

type CancelDonationRequest struct {
	Reason string `json:"motivo" binding:"max=500"`
}

// DonationFilters narrows donation listings; zero values mean no filter.
type DonationFilters struct {
	DonorID       uuid.UUID
	InstitutionID uuid.UUID
	ProjectID     uuid.UUID
	Status        DonationStatus
}
