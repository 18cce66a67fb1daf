package services

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/events"
	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgBookingCreated      = "Agendamento realizado com sucesso!"
	msgSlotTaken           = "Este horário não está mais disponível. Por favor, selecione outro."
	msgProfessionalOff     = "Este profissional não está disponível para agendamentos."
	msgServiceOff          = "Este serviço não está mais disponível."
	msgBookingFailed       = "Erro ao criar agendamento. Tente novamente."
	msgAppointmentNotFound = "Agendamento não encontrado"
	msgNotCancellable      = "Este agendamento não pode ser cancelado"
	msgCancelled           = "Agendamento cancelado com sucesso"
	msgCancelFailed        = "Erro ao cancelar agendamento"
)

// Actor identifies who performs an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

type BookingRequest struct {
	ClientID       uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	Date           string // 2006-01-02
	Time           string // 15:04
	Notes          string
}

type AppointmentEvent struct {
	AppointmentID  uuid.UUID                `json:"appointmentId"`
	ClientID       uuid.UUID                `json:"clientId"`
	ProfessionalID uuid.UUID                `json:"professionalId"`
	StartsAt       time.Time                `json:"startsAt"`
	Status         models.AppointmentStatus `json:"status"`
}

func appointmentEvent(a *models.Appointment) AppointmentEvent {
	return AppointmentEvent{
		AppointmentID:  a.ID,
		ClientID:       a.ClientID,
		ProfessionalID: a.ProfessionalID,
		StartsAt:       a.StartsAt,
		Status:         a.Status,
	}
}

// BookingCoordinator creates and cancels appointments. Creation re-derives
// availability and relies on the repository's atomic check-and-insert, so
// concurrent callers for the same range cannot both succeed.
type BookingCoordinator struct {
	repo         repository.Repository
	availability *AvailabilityCalculator
	pricing      *PricingEngine
	policy       *CancellationPolicy
	publisher    events.Publisher
	settings     Settings
	now          Clock
	logger       *zap.Logger
}

func NewBookingCoordinator(
	repo repository.Repository,
	availability *AvailabilityCalculator,
	pricing *PricingEngine,
	policy *CancellationPolicy,
	publisher events.Publisher,
	settings Settings,
	now Clock,
	logger *zap.Logger,
) *BookingCoordinator {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &BookingCoordinator{
		repo:         repo,
		availability: availability,
		pricing:      pricing,
		policy:       policy,
		publisher:    publisher,
		settings:     settings,
		now:          now,
		logger:       logger,
	}
}

func (b *BookingCoordinator) Create(ctx context.Context, req BookingRequest) Result {
	start, err := utils.ParseDateTime(req.Date, req.Time, b.settings.location())
	if err != nil {
		return failed(validationError("Data ou horário inválido", err))
	}

	service, err := b.repo.GetService(ctx, req.ServiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return failed(notFoundError("Serviço não encontrado", err))
	}
	if err != nil {
		return b.persistenceFailure("load service", err)
	}
	if !service.Active {
		return failed(newError(KindPolicyViolation, ReasonServiceInactive, msgServiceOff, nil))
	}

	professional, err := b.repo.GetProfessional(ctx, req.ProfessionalID)
	if errors.Is(err, repository.ErrNotFound) {
		return failed(notFoundError("Profissional não encontrado", err))
	}
	if err != nil {
		return b.persistenceFailure("load professional", err)
	}
	if !professional.Active {
		return failed(newError(KindPolicyViolation, ReasonProfessionalInactive, msgProfessionalOff, nil))
	}

	// never trust a slot list the client may have cached
	starts, err := b.availability.AvailableStarts(ctx, professional.ID, start, service.DurationMinutes)
	if err != nil {
		return failed(AsError(err))
	}
	if !containsInstant(starts, start) {
		return failed(newError(KindConflict, ReasonSlotNoLongerAvailable, msgSlotTaken, nil))
	}

	pricing, err := b.pricing.priceService(ctx, req.ClientID, service, start)
	if err != nil {
		return failed(AsError(err))
	}

	appt := &models.Appointment{
		ID:                uuid.New(),
		ClientID:          req.ClientID,
		ProfessionalID:    professional.ID,
		ServiceID:         service.ID,
		StartsAt:          start,
		EndsAt:            start.Add(service.Duration()),
		Status:            models.StatusScheduled,
		ValorServico:      pricing.ValorServico,
		ValorCobrado:      pricing.ValorCobrado,
		CobertoAssinatura: pricing.CobertoAssinatura,
		PaymentStatus:     models.PaymentPending,
		Notes:             req.Notes,
	}
	if pricing.CobertoAssinatura {
		appt.SubscriptionID = pricing.SubscriptionID
		appt.PaymentMethod = models.MethodSubscription
	}
	if pricing.ValorCobrado.IsZero() {
		appt.PaymentStatus = models.PaymentPaid
	}

	if err := b.repo.CreateAppointment(ctx, appt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			b.logger.Info("Slot taken by concurrent booking",
				zap.Stringer("professionalId", professional.ID),
				zap.Time("startsAt", start))
			return failed(newError(KindConflict, ReasonSlotNoLongerAvailable, msgSlotTaken, err))
		}
		return b.persistenceFailure("insert appointment", err)
	}

	b.publish(ctx, events.AppointmentCreated, appointmentEvent(appt))
	b.logger.Info("Appointment created",
		zap.Stringer("appointmentId", appt.ID),
		zap.Stringer("professionalId", appt.ProfessionalID),
		zap.Time("startsAt", appt.StartsAt),
		zap.Bool("covered", appt.CobertoAssinatura))

	res := succeeded(msgBookingCreated)
	res.AppointmentID = appt.ID.String()
	res.Pricing = pricing
	return res
}

func (b *BookingCoordinator) Cancel(ctx context.Context, appointmentID uuid.UUID, actor Actor) Result {
	appt, err := b.repo.GetAppointment(ctx, appointmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return failed(notFoundError(msgAppointmentNotFound, err))
	}
	if err != nil {
		return b.cancelFailure(err)
	}
	// clients only see their own bookings
	if !actor.Role.IsStaff() && appt.ClientID != actor.UserID {
		return failed(notFoundError(msgAppointmentNotFound, nil))
	}

	if appt.Status != models.StatusScheduled {
		return failed(newError(KindConflict, ReasonNotCancellable, msgNotCancellable, nil))
	}
	if !actor.Role.IsStaff() {
		if d := b.policy.CanCancel(appt); !d.Allowed {
			return failed(newError(KindPolicyViolation, d.ReasonCode, d.Reason, nil))
		}
	}

	now := b.now()
	updated, err := b.repo.TransitionAppointment(ctx, appt.ID, models.StatusScheduled, models.StatusCancelled,
		models.AppointmentChanges{CancelledAt: &now})
	if errors.Is(err, repository.ErrStaleState) {
		return failed(newError(KindConflict, ReasonNotCancellable, msgNotCancellable, err))
	}
	if err != nil {
		return b.cancelFailure(err)
	}

	b.publish(ctx, events.AppointmentCancelled, appointmentEvent(updated))
	b.logger.Info("Appointment cancelled",
		zap.Stringer("appointmentId", updated.ID),
		zap.String("role", string(actor.Role)))

	res := succeeded(msgCancelled)
	res.AppointmentID = updated.ID.String()
	return res
}

func (b *BookingCoordinator) persistenceFailure(step string, err error) Result {
	b.logger.Error("Booking persistence failure", zap.String("step", step), zap.Error(err))
	return failed(persistenceError(msgBookingFailed, err))
}

func (b *BookingCoordinator) cancelFailure(err error) Result {
	b.logger.Error("Cancellation persistence failure", zap.Error(err))
	return failed(persistenceError(msgCancelFailed, err))
}

func (b *BookingCoordinator) publish(ctx context.Context, key string, payload any) {
	if err := b.publisher.Publish(ctx, key, payload); err != nil {
		b.logger.Warn("Failed to publish event", zap.String("key", key), zap.Error(err))
	}
}

func containsInstant(list []time.Time, t time.Time) bool {
	for _, v := range list {
		if v.Equal(t) {
			return true
		}
	}
	return false
}
