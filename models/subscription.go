package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "ativa"
	SubscriptionCancelled SubscriptionStatus = "cancelada"
	SubscriptionSuspended SubscriptionStatus = "suspensa"
	SubscriptionExpired   SubscriptionStatus = "expirada"
)

type SubscriptionPlan struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Name         string          `gorm:"column:nome;not null" json:"nome"`
	Description  string          `gorm:"column:descricao" json:"descricao,omitempty"`
	MonthlyPrice decimal.Decimal `gorm:"column:preco_mensal;type:numeric(10,2);not null" json:"precoMensal"`
	// IncludedServices holds service ids as text.
	IncludedServices pq.StringArray `gorm:"column:servicos_inclusos;type:text[]" json:"servicosInclusos"`
	// AllowedWeekdays is nil when the plan is valid every day (0 = Sunday).
	AllowedWeekdays pq.Int64Array `gorm:"column:dias_permitidos;type:integer[]" json:"diasPermitidos"`
	Active          bool          `gorm:"column:ativo;default:true" json:"ativo"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

func (p SubscriptionPlan) Includes(serviceID uuid.UUID) bool {
	for _, id := range p.IncludedServices {
		if parsed, err := uuid.Parse(id); err == nil && parsed == serviceID {
			return true
		}
	}
	return false
}

func (p SubscriptionPlan) RestrictsWeekdays() bool {
	return p.AllowedWeekdays != nil
}

func (p SubscriptionPlan) AllowsWeekday(day time.Weekday) bool {
	if !p.RestrictsWeekdays() {
		return true
	}
	for _, d := range p.AllowedWeekdays {
		if time.Weekday(d) == day {
			return true
		}
	}
	return false
}

type Subscription struct {
	ID       uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	ClientID uuid.UUID          `gorm:"column:cliente_id;type:uuid;index;not null" json:"clienteId"`
	PlanID   uuid.UUID          `gorm:"column:plano_id;type:uuid;index;not null" json:"planoId"`
	Status   SubscriptionStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	StartedAt     time.Time  `gorm:"column:data_inicio;not null" json:"dataInicio"`
	NextBillingAt *time.Time `gorm:"column:proxima_cobranca" json:"proximaCobranca,omitempty"`
	CancelledAt   *time.Time `gorm:"column:data_cancelamento" json:"dataCancelamento,omitempty"`

	ExternalID       string     `gorm:"column:mp_subscription_id;index" json:"mpSubscriptionId,omitempty"`
	GatewayUpdatedAt *time.Time `json:"-"`

	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plano,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
