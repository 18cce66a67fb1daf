package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name            string          `gorm:"column:nome;not null" json:"nome"`
	Description     string          `gorm:"column:descricao" json:"descricao,omitempty"`
	Price           decimal.Decimal `gorm:"column:preco;type:numeric(10,2);not null" json:"preco"`
	DurationMinutes int             `gorm:"column:duracao_minutos;not null" json:"duracaoMinutos"`
	Active          bool            `gorm:"column:ativo;default:true" json:"ativo"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
