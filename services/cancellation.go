package services

import (
	"fmt"
	"time"

	"barbershop-backend/models"
)

type Decision struct {
	Allowed    bool       `json:"allowed"`
	Reason     string     `json:"reason,omitempty"`
	ReasonCode ReasonCode `json:"reasonCode,omitempty"`
}

// CancellationPolicy decides whether an owner may still cancel a booking.
type CancellationPolicy struct {
	lead time.Duration
	now  Clock
}

func NewCancellationPolicy(lead time.Duration, now Clock) *CancellationPolicy {
	if now == nil {
		now = time.Now
	}
	return &CancellationPolicy{lead: lead, now: now}
}

func (p *CancellationPolicy) windowMessage() string {
	return fmt.Sprintf("Cancelamento permitido até %d horas antes do horário agendado. Entre em contato via WhatsApp para assistência.", int(p.lead.Hours()))
}

// CanCancelAt applies only the lead-time rule to a start instant.
func (p *CancellationPolicy) CanCancelAt(start time.Time) Decision {
	if p.now().After(start.Add(-p.lead)) {
		return Decision{Allowed: false, Reason: p.windowMessage(), ReasonCode: ReasonCancellationWindow}
	}
	return Decision{Allowed: true}
}

func (p *CancellationPolicy) CanCancel(a *models.Appointment) Decision {
	if a.Status != models.StatusScheduled {
		return Decision{Allowed: false, Reason: "Este agendamento não pode ser cancelado", ReasonCode: ReasonNotCancellable}
	}
	return p.CanCancelAt(a.StartsAt)
}
