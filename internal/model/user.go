package model

import (
	"github.com/google/uuid"
)

// User type constants
const (
	UserTypeDonor       = "doador"
	UserTypeInstitution = "instituicao"
)

// User is an authenticated actor: a donor, or a member of an institution.
type User struct {
	Base
	Email         string     `json:"email" db:"email"`
	Name          string     `json:"nome" db:"nome"`
	Password      string     `json:"password,omitempty" db:"-"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	Type          string     `json:"tipo" db:"tipo"`
	InstitutionID *uuid.UUID `json:"instituicao_id,omitempty" db:"instituicao_id"`
}
