package services

import (
	"errors"
	"testing"
	"time"

	"barbershop-backend/events"
	"barbershop-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) paymentFor(appt models.Appointment, id, status string, at time.Time) PaymentNotification {
	return PaymentNotification{
		Reference:         AppointmentReference(appt.ID),
		GatewayStatus:     status,
		Amount:            appt.ValorCobrado,
		Method:            models.MethodPix,
		ExternalPaymentID: id,
		UpdatedAt:         at,
	}
}

func TestMapPaymentStatus(t *testing.T) {
	cases := map[string]models.PaymentStatus{
		"approved":     models.PaymentPaid,
		"authorized":   models.PaymentPaid,
		"pending":      models.PaymentPending,
		"in_process":   models.PaymentPending,
		"in_mediation": models.PaymentPending,
		"rejected":     models.PaymentCancelled,
		"cancelled":    models.PaymentCancelled,
		"refunded":     models.PaymentCancelled,
		"charged_back": models.PaymentCancelled,
		"":             models.PaymentCancelled,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapPaymentStatus(in), in)
	}
}

func TestMapSubscriptionStatus(t *testing.T) {
	assert.Equal(t, models.SubscriptionActive, MapSubscriptionStatus("authorized"))
	assert.Equal(t, models.SubscriptionSuspended, MapSubscriptionStatus("paused"))
	assert.Equal(t, models.SubscriptionCancelled, MapSubscriptionStatus("cancelled"))
	assert.Equal(t, models.SubscriptionSuspended, MapSubscriptionStatus("pending"))
}

func TestPaymentNotification_Approved(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	err := f.reconciler().ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "approved", f.now))
	require.NoError(t, err)

	stored := f.get(appt.ID)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, models.MethodPix, stored.PaymentMethod)

	payments := f.repo.Payments()
	require.Len(t, payments, 1)
	assert.Equal(t, "pay-1", payments[0].ExternalID)
	require.NotNil(t, payments[0].AppointmentID)
	assert.Equal(t, appt.ID, *payments[0].AppointmentID)
	assert.Equal(t, []string{events.PaymentReconciled}, f.publisher.Keys())
}

func TestPaymentNotification_ReplayIsNoop(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	n := f.paymentFor(appt, "pay-1", "approved", f.now)
	reconciler := f.reconciler()

	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, n))
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, n))

	assert.Len(t, f.repo.Payments(), 1)
	assert.Equal(t, []string{events.PaymentReconciled}, f.publisher.Keys())
}

func TestPaymentNotification_Ordering(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	reconciler := f.reconciler()
	t0 := f.now

	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "approved", t0.Add(time.Minute))))

	// delivered late, generated earlier
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "pending", t0)))
	assert.Equal(t, models.PaymentPaid, f.get(appt.ID).PaymentStatus)

	// a newer pendente still never replaces pago
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "in_process", t0.Add(2*time.Minute))))
	assert.Equal(t, models.PaymentPaid, f.get(appt.ID).PaymentStatus)
	assert.Equal(t, models.PaymentPaid, f.repo.Payments()[0].Status)

	// a later refund of the same payment reverses it
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "refunded", t0.Add(time.Hour))))
	assert.Equal(t, models.PaymentCancelled, f.get(appt.ID).PaymentStatus)
	assert.Equal(t, models.PaymentCancelled, f.repo.Payments()[0].Status)
}

func TestPaymentNotification_EqualTimestampPrefersHigherRank(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	reconciler := f.reconciler()

	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "approved", f.now)))
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "rejected", f.now)))
	assert.Equal(t, models.PaymentPaid, f.get(appt.ID).PaymentStatus)
}

func TestPaymentNotification_FailedAttemptKeepsPaid(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	reconciler := f.reconciler()

	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-1", "approved", f.now)))
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.paymentFor(appt, "pay-2", "rejected", f.now.Add(time.Minute))))

	assert.Equal(t, models.PaymentPaid, f.get(appt.ID).PaymentStatus)
	assert.Len(t, f.repo.Payments(), 2)
}

func TestPaymentNotification_References(t *testing.T) {
	f := newFixture(t)
	reconciler := f.reconciler()

	err := reconciler.ProcessPaymentNotification(f.ctx, PaymentNotification{
		Reference: "order_42", GatewayStatus: "approved", ExternalPaymentID: "pay-x",
	})
	assert.NoError(t, err, "foreign references are acknowledged")

	err = reconciler.ProcessPaymentNotification(f.ctx, PaymentNotification{
		Reference: "", GatewayStatus: "approved", ExternalPaymentID: "pay-y",
	})
	assert.NoError(t, err)
	assert.Empty(t, f.repo.Payments())

	err = reconciler.ProcessPaymentNotification(f.ctx, PaymentNotification{
		Reference: "appointment_not-a-uuid", GatewayStatus: "approved", ExternalPaymentID: "pay-z",
	})
	assert.Equal(t, KindValidation, kindOf(t, err))

	err = reconciler.ProcessPaymentNotification(f.ctx, PaymentNotification{
		Reference: AppointmentReference(uuid.New()), GatewayStatus: "approved", ExternalPaymentID: "pay-z",
	})
	assert.Equal(t, KindNotFound, kindOf(t, err))

	err = reconciler.ProcessPaymentNotification(f.ctx, PaymentNotification{
		Reference: AppointmentReference(uuid.New()), GatewayStatus: "approved",
	})
	assert.Equal(t, KindValidation, kindOf(t, err))
}

func (f *fixture) preapproval(planID uuid.UUID, externalID, status string, at time.Time) SubscriptionNotification {
	return SubscriptionNotification{
		Reference:              SubscriptionReference(f.client.ID, planID),
		GatewayStatus:          status,
		ExternalSubscriptionID: externalID,
		UpdatedAt:              at,
	}
}

func (f *fixture) plan(name string) models.SubscriptionPlan {
	return f.repo.PutPlan(models.SubscriptionPlan{Name: name, MonthlyPrice: dec("89.90"), Active: true})
}

func TestSubscriptionNotification_Activates(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()

	n := f.preapproval(plan.ID, "pre-1", "authorized", f.now)
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, n))

	sub, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, sub.PlanID)
	assert.Equal(t, "pre-1", sub.ExternalID)
	assert.True(t, sub.StartedAt.Equal(f.now))
	require.NotNil(t, sub.NextBillingAt)
	assert.True(t, sub.NextBillingAt.Equal(f.now.Add(30*24*time.Hour)))

	// replay
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, n))
	again, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, []string{events.SubscriptionReconciled}, f.publisher.Keys())
}

func TestSubscriptionNotification_CancelAndStale(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()
	t0 := f.now

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", t0)))
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "cancelled", t0.Add(time.Hour))))

	sub, err := f.repo.GetLatestSubscription(f.ctx, f.client.ID, plan.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	require.NotNil(t, sub.CancelledAt)

	// an older authorization arriving late is ignored
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", t0.Add(time.Minute))))
	sub, err = f.repo.GetLatestSubscription(f.ctx, f.client.ID, plan.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionCancelled, sub.Status)
}

func TestSubscriptionNotification_Resubscription(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", f.now)))
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "cancelled", f.now.Add(time.Hour))))
	first, err := f.repo.GetLatestSubscription(f.ctx, f.client.ID, plan.ID, true)
	require.NoError(t, err)

	f.now = f.now.Add(48 * time.Hour)
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-2", "authorized", f.now)))

	active, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, active.ID)
	assert.Equal(t, "pre-2", active.ExternalID)
}

func TestSubscriptionNotification_SecondActivePlanConflicts(t *testing.T) {
	f := newFixture(t)
	f.subscribe()
	other := f.plan("Barba Ilimitada")

	err := f.reconciler().ProcessSubscriptionNotification(f.ctx, f.preapproval(other.ID, "pre-9", "authorized", f.now))
	require.Error(t, err)
	var domainErr *Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, KindConflict, domainErr.Kind)
	assert.Equal(t, ReasonSubscriptionConflict, domainErr.Code)
}

func TestSubscriptionNotification_UnknownNonActiveIsIgnored(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")

	require.NoError(t, f.reconciler().ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "cancelled", f.now)))
	_, err := f.repo.GetLatestSubscription(f.ctx, f.client.ID, plan.ID, true)
	assert.Error(t, err)
}

func TestSubscriptionNotification_WrongReferenceKind(t *testing.T) {
	f := newFixture(t)
	err := f.reconciler().ProcessSubscriptionNotification(f.ctx, SubscriptionNotification{
		Reference: AppointmentReference(uuid.New()), GatewayStatus: "authorized",
	})
	assert.Equal(t, KindValidation, kindOf(t, err))
}

func TestSubscriptionPayment(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()
	payment := PaymentNotification{
		Reference:         SubscriptionReference(f.client.ID, plan.ID),
		GatewayStatus:     "approved",
		Amount:            plan.MonthlyPrice,
		ExternalPaymentID: "pay-sub-1",
		UpdatedAt:         f.now,
	}

	// the preapproval has not been seen yet; the gateway retries
	err := reconciler.ProcessPaymentNotification(f.ctx, payment)
	assert.Equal(t, KindNotFound, kindOf(t, err))

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", f.now)))
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, payment))

	payments := f.repo.Payments()
	require.Len(t, payments, 1)
	require.NotNil(t, payments[0].SubscriptionID)
	assert.Nil(t, payments[0].AppointmentID)
	assert.Equal(t, models.MethodMercadoPago, payments[0].Method)
}

func (f *fixture) subscriptionCharge(planID uuid.UUID, id string) PaymentNotification {
	return PaymentNotification{
		Reference:         SubscriptionReference(f.client.ID, planID),
		GatewayStatus:     "approved",
		Amount:            dec("89.90"),
		ExternalPaymentID: id,
		UpdatedAt:         f.now,
	}
}

func TestSubscriptionPayment_RenewalOutlivesExpiry(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()
	expiry := NewSubscriptionExpiryService(f.repo, "0 3 * * *", f.settings, f.clock, f.logger)
	start := f.now
	period := 30 * 24 * time.Hour

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", f.now)))
	// the first charge pays the period granted at activation
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.subscriptionCharge(plan.ID, "pay-1")))
	sub, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.True(t, sub.NextBillingAt.Equal(start.Add(period)))

	f.now = start.Add(period)
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.subscriptionCharge(plan.ID, "pay-2")))
	// replays do not extend twice
	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.subscriptionCharge(plan.ID, "pay-2")))

	f.now = start.Add(period + 4*24*time.Hour)
	n, err := expiry.ExpireOverdue(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	sub, err = f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.True(t, sub.NextBillingAt.Equal(start.Add(2*period)))
}

func TestSubscriptionPayment_ReactivatesExpired(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()
	expiry := NewSubscriptionExpiryService(f.repo, "0 3 * * *", f.settings, f.clock, f.logger)
	start := f.now
	period := 30 * 24 * time.Hour

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", f.now)))
	f.now = start.Add(period + 4*24*time.Hour)
	n, err := expiry.ExpireOverdue(f.ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, reconciler.ProcessPaymentNotification(f.ctx, f.subscriptionCharge(plan.ID, "pay-late")))

	sub, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.True(t, sub.NextBillingAt.Equal(f.now.Add(period)))
	assert.Contains(t, f.publisher.Keys(), events.SubscriptionReconciled)
}

func TestSubscriptionNotification_ReactivationRestartsBilling(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Clube do Corte")
	reconciler := f.reconciler()
	start := f.now

	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", start)))
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "paused", start.Add(time.Hour))))

	f.now = start.Add(60 * 24 * time.Hour)
	require.NoError(t, reconciler.ProcessSubscriptionNotification(f.ctx, f.preapproval(plan.ID, "pre-1", "authorized", f.now)))

	sub, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	require.NoError(t, err)
	require.NotNil(t, sub.NextBillingAt)
	assert.True(t, sub.NextBillingAt.Equal(f.now.Add(30*24*time.Hour)))
}

func TestSubscriptionNotification_UnknownPlanIsIgnored(t *testing.T) {
	f := newFixture(t)
	planID := uuid.New()

	require.NoError(t, f.reconciler().ProcessSubscriptionNotification(f.ctx, f.preapproval(planID, "pre-1", "authorized", f.now)))
	_, err := f.repo.GetActiveSubscription(f.ctx, f.client.ID)
	assert.Error(t, err)
	assert.Empty(t, f.publisher.Keys())
}
