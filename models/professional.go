package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Professional struct {
	ID     uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"userId,omitempty"`
	Name   string     `gorm:"column:nome;not null" json:"nome"`
	Bio    string     `json:"bio,omitempty"`
	Active bool       `gorm:"column:ativo;default:true" json:"ativo"`

	Hours []ProfessionalHours `gorm:"foreignKey:ProfessionalID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Professional) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
