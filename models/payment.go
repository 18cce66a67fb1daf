package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment references exactly one of an appointment or a subscription.
// ExternalID is the gateway payment id and the idempotency key.
type Payment struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	AppointmentID  *uuid.UUID      `gorm:"column:agendamento_id;type:uuid;index" json:"agendamentoId,omitempty"`
	SubscriptionID *uuid.UUID      `gorm:"column:assinatura_id;type:uuid;index" json:"assinaturaId,omitempty"`
	Amount         decimal.Decimal `gorm:"column:valor;type:numeric(10,2);not null" json:"valor"`
	Method         PaymentMethod   `gorm:"column:metodo;type:varchar(20)" json:"metodo"`
	Status         PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	ExternalID     string          `gorm:"column:mp_payment_id;uniqueIndex;not null" json:"mpPaymentId"`

	GatewayUpdatedAt *time.Time     `json:"-"`
	GatewayPayload   datatypes.JSON `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
