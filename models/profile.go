package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleClient       Role = "cliente"
	RoleProfessional Role = "barbeiro"
	RoleAdmin        Role = "admin"
)

func (r Role) IsStaff() bool {
	return r == RoleProfessional || r == RoleAdmin
}

// Profile is the user record owned by the auth collaborator. The booking core
// only reads it (client contact data for reminders and checkout).
type Profile struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Name  string    `gorm:"column:nome;not null" json:"nome"`
	Phone string    `gorm:"column:telefone" json:"telefone,omitempty"`
	Role  Role      `gorm:"type:varchar(20);not null;default:'cliente'" json:"role"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Profile) TableName() string { return "profiles" }
