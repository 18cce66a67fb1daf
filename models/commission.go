package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionRate struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ProfessionalID uuid.UUID       `gorm:"column:profissional_id;type:uuid;not null;uniqueIndex:idx_rate_pair,priority:1" json:"profissionalId"`
	ServiceID      uuid.UUID       `gorm:"column:servico_id;type:uuid;not null;uniqueIndex:idx_rate_pair,priority:2" json:"servicoId"`
	Percent        decimal.Decimal `gorm:"column:percentual;type:numeric(5,2);not null" json:"percentual"`
}

func (r *CommissionRate) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// Commission rows are never deleted; Paid only moves false -> true.
type Commission struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	AppointmentID  uuid.UUID       `gorm:"column:agendamento_id;type:uuid;uniqueIndex;not null" json:"agendamentoId"`
	ProfessionalID uuid.UUID       `gorm:"column:profissional_id;type:uuid;index;not null" json:"profissionalId"`
	ValorServico   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"valorServico"`
	ValorBase      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"valorBase"`
	Percent        decimal.Decimal `gorm:"column:percentual;type:numeric(5,2);not null" json:"percentual"`
	ValorComissao  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"valorComissao"`
	Paid           bool            `gorm:"column:pago;default:false;index" json:"pago"`
	PaidAt         *time.Time      `gorm:"column:data_pagamento" json:"dataPagamento,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func (c *Commission) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}
