package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "agendado"
	StatusInProgress AppointmentStatus = "em_andamento"
	StatusCompleted  AppointmentStatus = "concluido"
	StatusCancelled  AppointmentStatus = "cancelado"
	StatusNoShow     AppointmentStatus = "nao_compareceu"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pendente"
	PaymentPaid      PaymentStatus = "pago"
	PaymentRefunded  PaymentStatus = "reembolsado"
	PaymentCancelled PaymentStatus = "cancelado"
)

type PaymentMethod string

const (
	MethodPix          PaymentMethod = "pix"
	MethodCreditCard   PaymentMethod = "cartao_credito"
	MethodDebitCard    PaymentMethod = "cartao_debito"
	MethodCash         PaymentMethod = "dinheiro"
	MethodSubscription PaymentMethod = "assinatura"
	MethodMercadoPago  PaymentMethod = "mercado_pago"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodPix, MethodCreditCard, MethodDebitCard, MethodCash, MethodSubscription, MethodMercadoPago:
		return true
	}
	return false
}

var ErrIllegalTransition = errors.New("illegal appointment status transition")

// legal edges of the appointment state machine
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ClientID       uuid.UUID  `gorm:"column:cliente_id;type:uuid;index;not null" json:"clienteId"`
	ProfessionalID uuid.UUID  `gorm:"column:profissional_id;type:uuid;index;not null" json:"profissionalId"`
	ServiceID      uuid.UUID  `gorm:"column:servico_id;type:uuid;index;not null" json:"servicoId"`
	SubscriptionID *uuid.UUID `gorm:"column:assinatura_id;type:uuid" json:"assinaturaId,omitempty"`

	// EndsAt is fixed at creation (start + service duration).
	StartsAt time.Time         `gorm:"column:data_hora_inicio;not null;index" json:"dataHoraInicio"`
	EndsAt   time.Time         `gorm:"column:data_hora_fim;not null" json:"dataHoraFim"`
	Status   AppointmentStatus `gorm:"type:varchar(20);not null;default:'agendado';index" json:"status"`

	ValorServico      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"valorServico"`
	ValorCobrado      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"valorCobrado"`
	CobertoAssinatura bool            `gorm:"default:false" json:"cobertoAssinatura"`
	PaymentStatus     PaymentStatus   `gorm:"type:varchar(20);not null;default:'pendente'" json:"paymentStatus"`
	PaymentMethod     PaymentMethod   `gorm:"type:varchar(20)" json:"paymentMethod,omitempty"`

	Notes          string     `gorm:"column:observacoes" json:"observacoes,omitempty"`
	CancelledAt    *time.Time `json:"cancelledAt,omitempty"`
	ReminderSentAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

// Occupies reports whether the appointment still holds its time range.
func (a Appointment) Occupies() bool {
	return a.Status != StatusCancelled
}

func (a Appointment) Overlaps(start, end time.Time) bool {
	return Overlaps(a.StartsAt, a.EndsAt, start, end)
}

// TransitionTo moves the appointment along a legal edge.
func (a *Appointment) TransitionTo(to AppointmentStatus) error {
	if !CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.Status, to)
	}
	a.Status = to
	return nil
}

// AppointmentChanges carries the optional column updates applied together
// with a status transition.
type AppointmentChanges struct {
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	CancelledAt   *time.Time
}
