package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"barbershop-backend/events"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PaymentNotification struct {
	Reference         string
	GatewayStatus     string
	Amount            decimal.Decimal
	Method            models.PaymentMethod
	ExternalPaymentID string
	// UpdatedAt is the gateway's last-modified instant, used for ordering.
	UpdatedAt time.Time
	Payload   []byte
}

type SubscriptionNotification struct {
	Reference              string
	GatewayStatus          string
	ExternalSubscriptionID string
	UpdatedAt              time.Time
}

type PaymentReconciledEvent struct {
	ExternalPaymentID string               `json:"externalPaymentId"`
	AppointmentID     *uuid.UUID           `json:"appointmentId,omitempty"`
	SubscriptionID    *uuid.UUID           `json:"subscriptionId,omitempty"`
	Status            models.PaymentStatus `json:"status"`
	Amount            decimal.Decimal      `json:"amount"`
}

type SubscriptionReconciledEvent struct {
	SubscriptionID uuid.UUID                 `json:"subscriptionId"`
	ClientID       uuid.UUID                 `json:"clientId"`
	PlanID         uuid.UUID                 `json:"planId"`
	Status         models.SubscriptionStatus `json:"status"`
}

// MapPaymentStatus folds gateway payment states onto pago/pendente/cancelado.
func MapPaymentStatus(gatewayStatus string) models.PaymentStatus {
	switch strings.ToLower(gatewayStatus) {
	case "approved", "authorized":
		return models.PaymentPaid
	case "pending", "in_process", "in_mediation":
		return models.PaymentPending
	default:
		return models.PaymentCancelled
	}
}

func MapSubscriptionStatus(gatewayStatus string) models.SubscriptionStatus {
	switch strings.ToLower(gatewayStatus) {
	case "authorized", "active":
		return models.SubscriptionActive
	case "paused":
		return models.SubscriptionSuspended
	case "cancelled", "canceled":
		return models.SubscriptionCancelled
	default:
		return models.SubscriptionSuspended
	}
}

func paymentRank(s models.PaymentStatus) int {
	switch s {
	case models.PaymentPaid:
		return 2
	case models.PaymentCancelled, models.PaymentRefunded:
		return 1
	}
	return 0
}

// PaymentSupersedes reports whether incoming may overwrite current. Stale
// deliveries (older gateway timestamp) lose, pendente never replaces pago,
// ties on timestamp go to the higher-ranked status and identical replays are
// no-ops.
func PaymentSupersedes(current, incoming *models.Payment) bool {
	if current.GatewayUpdatedAt != nil && incoming.GatewayUpdatedAt != nil {
		if incoming.GatewayUpdatedAt.Before(*current.GatewayUpdatedAt) {
			return false
		}
		if incoming.GatewayUpdatedAt.Equal(*current.GatewayUpdatedAt) &&
			paymentRank(incoming.Status) < paymentRank(current.Status) {
			return false
		}
	}
	if current.Status == models.PaymentPaid && incoming.Status == models.PaymentPending {
		return false
	}
	return current.Status != incoming.Status ||
		!current.Amount.Equal(incoming.Amount) ||
		current.Method != incoming.Method
}

// PaymentReconciler applies gateway notifications to appointments and
// subscriptions. Both handlers are idempotent and tolerate re-ordered
// deliveries.
type PaymentReconciler struct {
	repo      repository.Repository
	settings  Settings
	publisher events.Publisher
	now       Clock
	logger    *zap.Logger
}

func NewPaymentReconciler(repo repository.Repository, settings Settings, publisher events.Publisher, now Clock, logger *zap.Logger) *PaymentReconciler {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PaymentReconciler{repo: repo, settings: settings, publisher: publisher, now: now, logger: logger}
}

func (r *PaymentReconciler) ProcessPaymentNotification(ctx context.Context, n PaymentNotification) error {
	if n.ExternalPaymentID == "" {
		return validationError("Pagamento sem identificador", nil)
	}
	ref, err := ParseReference(n.Reference)
	if errors.Is(err, ErrUnknownReference) {
		r.logger.Info("Ignoring payment with foreign reference",
			zap.String("reference", n.Reference),
			zap.String("paymentId", n.ExternalPaymentID))
		return nil
	}
	if err != nil {
		return err
	}

	payment := &models.Payment{
		Amount:         n.Amount,
		Method:         n.Method,
		Status:         MapPaymentStatus(n.GatewayStatus),
		ExternalID:     n.ExternalPaymentID,
		GatewayPayload: n.Payload,
	}
	if !n.UpdatedAt.IsZero() {
		at := n.UpdatedAt
		payment.GatewayUpdatedAt = &at
	}
	if payment.Method == "" {
		payment.Method = models.MethodMercadoPago
	}

	switch ref.Kind {
	case ReferenceAppointment:
		return r.reconcileAppointmentPayment(ctx, ref.AppointmentID, payment)
	default:
		return r.reconcileSubscriptionPayment(ctx, ref, payment)
	}
}

func (r *PaymentReconciler) reconcileAppointmentPayment(ctx context.Context, appointmentID uuid.UUID, payment *models.Payment) error {
	if _, err := r.repo.GetAppointment(ctx, appointmentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(msgAppointmentNotFound, err)
		}
		return persistenceError("Erro ao buscar agendamento", err)
	}
	payment.AppointmentID = &appointmentID

	var previous models.PaymentStatus
	merge := func(current, incoming *models.Payment) bool {
		previous = current.Status
		return PaymentSupersedes(current, incoming)
	}
	stored, written, err := r.repo.SavePayment(ctx, payment, merge)
	if err != nil {
		return persistenceError("Erro ao registrar pagamento", err)
	}
	if stored.Status != payment.Status {
		r.logger.Info("Ignoring stale payment notification",
			zap.String("paymentId", payment.ExternalID),
			zap.String("incoming", string(payment.Status)),
			zap.String("stored", string(stored.Status)))
		return nil
	}

	// Applied even on replays, so a retry repairs a previously failed update.
	// A failed attempt never unpays an appointment settled by another payment;
	// only a reversal of this same payment can.
	var unless []models.PaymentStatus
	switch stored.Status {
	case models.PaymentPending:
		unless = append(unless, models.PaymentPaid)
	case models.PaymentCancelled:
		if previous != models.PaymentPaid {
			unless = append(unless, models.PaymentPaid)
		}
	}
	if _, err := r.repo.UpdateAppointmentPayment(ctx, appointmentID, stored.Status, stored.Method, unless...); err != nil {
		return persistenceError("Erro ao atualizar agendamento", err)
	}

	if written {
		r.publishPayment(ctx, stored)
	}
	return nil
}

func (r *PaymentReconciler) reconcileSubscriptionPayment(ctx context.Context, ref Reference, payment *models.Payment) error {
	sub, err := r.repo.GetLatestSubscription(ctx, ref.ClientID, ref.PlanID, false)
	if errors.Is(err, repository.ErrNotFound) {
		// the preapproval notification may not have arrived yet
		return notFoundError("Assinatura não encontrada", err)
	}
	if err != nil {
		return persistenceError("Erro ao buscar assinatura", err)
	}
	subID := sub.ID
	payment.SubscriptionID = &subID

	var previous models.PaymentStatus
	merge := func(current, incoming *models.Payment) bool {
		previous = current.Status
		return PaymentSupersedes(current, incoming)
	}
	stored, written, err := r.repo.SavePayment(ctx, payment, merge)
	if err != nil {
		return persistenceError("Erro ao registrar pagamento", err)
	}
	if written {
		r.publishPayment(ctx, stored)
	}
	if written && stored.Status == models.PaymentPaid && previous != models.PaymentPaid {
		return r.renewSubscription(ctx, sub)
	}
	return nil
}

// renewSubscription extends the paid period after a charge settles. The next
// billing date becomes the later of the stored date and now plus one period,
// so the first charge at activation does not grant a second period.
func (r *PaymentReconciler) renewSubscription(ctx context.Context, sub *models.Subscription) error {
	next := r.now().Add(r.settings.BillingPeriod)
	if sub.NextBillingAt != nil && sub.NextBillingAt.After(next) {
		next = *sub.NextBillingAt
	}
	reactivate := sub.Status == models.SubscriptionExpired
	if !reactivate && sub.NextBillingAt != nil && sub.NextBillingAt.Equal(next) {
		return nil
	}

	sub.NextBillingAt = &next
	if reactivate {
		sub.Status = models.SubscriptionActive
	}
	if err := r.repo.UpdateSubscription(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return newError(KindConflict, ReasonSubscriptionConflict, "Cliente já possui outra assinatura ativa", err)
		}
		return persistenceError("Erro ao renovar assinatura", err)
	}
	r.logger.Info("Subscription renewed",
		zap.Stringer("subscriptionId", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.Time("nextBillingAt", next))
	r.publishSubscription(ctx, sub)
	return nil
}

func (r *PaymentReconciler) ProcessSubscriptionNotification(ctx context.Context, n SubscriptionNotification) error {
	ref, err := ParseReference(n.Reference)
	if errors.Is(err, ErrUnknownReference) {
		r.logger.Info("Ignoring subscription with foreign reference",
			zap.String("reference", n.Reference),
			zap.String("subscriptionId", n.ExternalSubscriptionID))
		return nil
	}
	if err != nil {
		return err
	}
	if ref.Kind != ReferenceSubscription {
		return validationError("Referência externa inválida para assinatura", nil)
	}

	err = r.applySubscription(ctx, ref, n)
	if errors.Is(err, repository.ErrConflict) {
		// a concurrent delivery created the row first; re-read and apply once more
		err = r.applySubscription(ctx, ref, n)
	}
	if errors.Is(err, repository.ErrConflict) {
		return newError(KindConflict, ReasonSubscriptionConflict, "Cliente já possui outra assinatura ativa", err)
	}
	if err != nil {
		return persistenceError("Erro ao atualizar assinatura", err)
	}
	return nil
}

func (r *PaymentReconciler) applySubscription(ctx context.Context, ref Reference, n SubscriptionNotification) error {
	state := MapSubscriptionStatus(n.GatewayStatus)
	now := r.now()

	current, err := r.repo.GetLatestSubscription(ctx, ref.ClientID, ref.PlanID, true)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	resubscription := current != nil &&
		current.Status == models.SubscriptionCancelled &&
		state == models.SubscriptionActive &&
		current.ExternalID != "" && current.ExternalID != n.ExternalSubscriptionID

	if current != nil && !resubscription {
		if current.GatewayUpdatedAt != nil && !n.UpdatedAt.IsZero() && n.UpdatedAt.Before(*current.GatewayUpdatedAt) {
			r.logger.Info("Ignoring stale subscription notification",
				zap.Stringer("subscriptionId", current.ID),
				zap.String("incoming", string(state)),
				zap.String("stored", string(current.Status)))
			return nil
		}
		if current.Status == state && current.ExternalID == n.ExternalSubscriptionID {
			return nil
		}
		current.Status = state
		if n.ExternalSubscriptionID != "" {
			current.ExternalID = n.ExternalSubscriptionID
		}
		if state == models.SubscriptionCancelled && current.CancelledAt == nil {
			current.CancelledAt = &now
		}
		if !n.UpdatedAt.IsZero() {
			at := n.UpdatedAt
			current.GatewayUpdatedAt = &at
		}
		if state == models.SubscriptionActive && (current.NextBillingAt == nil || current.NextBillingAt.Before(now)) {
			next := now.Add(r.settings.BillingPeriod)
			current.NextBillingAt = &next
		}
		if err := r.repo.UpdateSubscription(ctx, current); err != nil {
			return err
		}
		r.publishSubscription(ctx, current)
		return nil
	}

	if state != models.SubscriptionActive {
		r.logger.Info("Ignoring non-active notification for unknown subscription",
			zap.Stringer("clientId", ref.ClientID),
			zap.Stringer("planId", ref.PlanID),
			zap.String("state", string(state)))
		return nil
	}

	if _, err := r.repo.GetPlan(ctx, ref.PlanID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// plans are never recreated under the same id, so a retry cannot succeed
			r.logger.Warn("Ignoring subscription for unknown plan",
				zap.Stringer("clientId", ref.ClientID),
				zap.Stringer("planId", ref.PlanID),
				zap.String("subscriptionId", n.ExternalSubscriptionID))
			return nil
		}
		return err
	}

	nextBilling := now.Add(r.settings.BillingPeriod)
	sub := &models.Subscription{
		ClientID:      ref.ClientID,
		PlanID:        ref.PlanID,
		Status:        models.SubscriptionActive,
		StartedAt:     now,
		NextBillingAt: &nextBilling,
		ExternalID:    n.ExternalSubscriptionID,
	}
	if !n.UpdatedAt.IsZero() {
		at := n.UpdatedAt
		sub.GatewayUpdatedAt = &at
	}
	if err := r.repo.CreateSubscription(ctx, sub); err != nil {
		return err
	}
	r.logger.Info("Subscription activated",
		zap.Stringer("subscriptionId", sub.ID),
		zap.Stringer("clientId", sub.ClientID),
		zap.Time("nextBillingAt", nextBilling))
	r.publishSubscription(ctx, sub)
	return nil
}

func (r *PaymentReconciler) publishPayment(ctx context.Context, p *models.Payment) {
	ev := PaymentReconciledEvent{
		ExternalPaymentID: p.ExternalID,
		AppointmentID:     p.AppointmentID,
		SubscriptionID:    p.SubscriptionID,
		Status:            p.Status,
		Amount:            p.Amount,
	}
	if err := r.publisher.Publish(ctx, events.PaymentReconciled, ev); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("key", events.PaymentReconciled), zap.Error(err))
	}
}

func (r *PaymentReconciler) publishSubscription(ctx context.Context, s *models.Subscription) {
	ev := SubscriptionReconciledEvent{SubscriptionID: s.ID, ClientID: s.ClientID, PlanID: s.PlanID, Status: s.Status}
	if err := r.publisher.Publish(ctx, events.SubscriptionReconciled, ev); err != nil {
		r.logger.Warn("Failed to publish event", zap.String("key", events.SubscriptionReconciled), zap.Error(err))
	}
}
