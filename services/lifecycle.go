package services

import (
	"context"
	"errors"

	"barbershop-backend/events"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppointmentLifecycle drives the staff-side status transitions.
type AppointmentLifecycle struct {
	repo        repository.Repository
	commissions *CommissionCalculator
	publisher   events.Publisher
	logger      *zap.Logger
}

func NewAppointmentLifecycle(repo repository.Repository, commissions *CommissionCalculator, publisher events.Publisher, logger *zap.Logger) *AppointmentLifecycle {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AppointmentLifecycle{repo: repo, commissions: commissions, publisher: publisher, logger: logger}
}

func (l *AppointmentLifecycle) Start(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return l.transition(ctx, id, models.StatusInProgress, models.AppointmentChanges{})
}

func (l *AppointmentLifecycle) MarkNoShow(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	return l.transition(ctx, id, models.StatusNoShow, models.AppointmentChanges{})
}

// Complete closes the visit, settles its payment fields and records the
// commission. Completing an already completed appointment only makes sure the
// commission exists.
func (l *AppointmentLifecycle) Complete(ctx context.Context, id uuid.UUID, method models.PaymentMethod) (*models.Appointment, *models.Commission, error) {
	appt, err := l.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if appt.Status != models.StatusCompleted {
		changes, err := settlement(appt, method)
		if err != nil {
			return nil, nil, err
		}
		if appt, err = l.transition(ctx, id, models.StatusCompleted, changes); err != nil {
			return nil, nil, err
		}
	}

	commission, err := l.commissions.OnCompleted(ctx, appt)
	if err != nil {
		l.logger.Error("Commission not recorded", zap.Stringer("appointmentId", id), zap.Error(err))
		return appt, nil, err
	}
	return appt, commission, nil
}

func settlement(appt *models.Appointment, method models.PaymentMethod) (models.AppointmentChanges, error) {
	switch {
	case appt.PaymentStatus == models.PaymentPaid:
		return models.AppointmentChanges{}, nil
	case appt.CobertoAssinatura:
		return models.AppointmentChanges{PaymentStatus: models.PaymentPaid, PaymentMethod: models.MethodSubscription}, nil
	case appt.ValorCobrado.IsZero():
		return models.AppointmentChanges{PaymentStatus: models.PaymentPaid}, nil
	case method == "" || !method.Valid() || method == models.MethodSubscription:
		return models.AppointmentChanges{}, validationError("Informe a forma de pagamento", nil)
	default:
		return models.AppointmentChanges{PaymentStatus: models.PaymentPaid, PaymentMethod: method}, nil
	}
}

func (l *AppointmentLifecycle) load(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	appt, err := l.repo.GetAppointment(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError(msgAppointmentNotFound, err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao buscar agendamento", err)
	}
	return appt, nil
}

func (l *AppointmentLifecycle) transition(ctx context.Context, id uuid.UUID, to models.AppointmentStatus, changes models.AppointmentChanges) (*models.Appointment, error) {
	appt, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := appt.Status
	if err := appt.TransitionTo(to); err != nil {
		return nil, newError(KindConflict, ReasonInvalidTransition, "Transição de status não permitida", err)
	}

	updated, err := l.repo.TransitionAppointment(ctx, id, from, to, changes)
	if errors.Is(err, repository.ErrStaleState) {
		return nil, newError(KindConflict, ReasonInvalidTransition, "O agendamento foi alterado. Atualize e tente novamente.", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao atualizar agendamento", err)
	}

	if err := l.publisher.Publish(ctx, events.AppointmentStatusChanged, appointmentEvent(updated)); err != nil {
		l.logger.Warn("Failed to publish event", zap.String("key", events.AppointmentStatusChanged), zap.Error(err))
	}
	l.logger.Info("Appointment status changed",
		zap.Stringer("appointmentId", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return updated, nil
}
