package model

import (
	"github.com/google/uuid"
)

// Project is one fundraising/collection initiative owned by an institution.
type Project struct {
	Base
	InstitutionID      uuid.UUID `json:"instituicao_id" db:"instituicao_id"`
	Title              string    `json:"titulo" db:"titulo"`
	Description        string    `json:"descricao" db:"descricao"`
	Active             bool      `json:"ativo" db:"ativo"`
	RatingAverage      float64   `json:"media_avaliacoes_projeto" db:"media_avaliacoes_projeto"`
	RatingCount        int       `json:"total_avaliacoes_projeto" db:"total_avaliacoes_projeto"`
	DeactivationReason *string   `json:"motivo_desativacao,omitempty" db:"motivo_desativacao"`
}

type ProjectFilters struct {
	InstitutionID uuid.UUID
	OnlyActive    bool
}
