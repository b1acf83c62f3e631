package model

import (
	"time"

	"github.com/google/uuid"
)

// Base holds the identity and timestamp columns shared by the account-side
// aggregates. Workflow records (donations, notifications) carry these fields
// flat.
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
