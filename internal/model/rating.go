package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinStars = 1
	MaxStars = 5
)

// Rating is a donor's feedback on one completed donation. Immutable once
// created; one rating per donation.
type Rating struct {
	ID            uuid.UUID `json:"id" db:"id"`
	DonationID    uuid.UUID `json:"doacao_id" db:"doacao_id"`
	DonorID       uuid.UUID `json:"doador_id" db:"doador_id"`
	InstitutionID uuid.UUID `json:"instituicao_id" db:"instituicao_id"`
	ProjectID     uuid.UUID `json:"projeto_id" db:"projeto_id"`
	Stars         int       `json:"estrelas" db:"estrelas"`
	Comment       string    `json:"comentario" db:"comentario"`
	CreatedAt     time.Time `json:"data_criacao" db:"created_at"`
}

type CreateRatingRequest struct {
	DonationID uuid.UUID `json:"doacao_id" binding:"required"`
	Stars      int       `json:"estrelas" binding:"required,min=1,max=5"`
	Comment    string    `json:"comentario" binding:"max=1000"`
}

// RatingStats is an aggregate over a set of ratings.
type RatingStats struct {
	Average float64 `json:"media" db:"media"`
	Count   int     `json:"total" db:"total"`
}
