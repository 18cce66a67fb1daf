package services

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/gateway"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BillingService starts gateway checkouts. State changes arrive later
// through the PaymentReconciler.
type BillingService struct {
	repo     repository.Repository
	gateway  gateway.Client
	settings Settings
	now      Clock
	logger   *zap.Logger
}

func NewBillingService(repo repository.Repository, gw gateway.Client, settings Settings, now Clock, logger *zap.Logger) *BillingService {
	if now == nil {
		now = time.Now
	}
	return &BillingService{repo: repo, gateway: gw, settings: settings, now: now, logger: logger}
}

func (b *BillingService) Subscribe(ctx context.Context, clientID, planID uuid.UUID, payerEmail string) (*gateway.Checkout, error) {
	if b.gateway == nil {
		return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Pagamentos indisponíveis no momento", gateway.ErrNotConfigured)
	}

	_, err := b.repo.GetActiveSubscription(ctx, clientID)
	if err == nil {
		return nil, newError(KindConflict, ReasonSubscriptionExists, "Você já possui uma assinatura ativa", nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceError("Erro ao processar assinatura. Tente novamente.", err)
	}

	plan, err := b.repo.GetPlan(ctx, planID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Plano não encontrado", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao processar assinatura. Tente novamente.", err)
	}
	if !plan.Active {
		return nil, newError(KindPolicyViolation, ReasonValidation, "Plano indisponível", nil)
	}

	if payerEmail == "" {
		if profile, err := b.repo.GetProfile(ctx, clientID); err == nil {
			payerEmail = profile.Email
		}
	}

	checkout, err := b.gateway.CreateSubscription(ctx, gateway.SubscriptionRequest{
		Reference:   SubscriptionReference(clientID, planID),
		Reason:      "Assinatura " + plan.Name,
		Amount:      plan.MonthlyPrice,
		Currency:    b.settings.Currency,
		PayerEmail:  payerEmail,
		BillingDays: int(b.settings.BillingPeriod.Hours() / 24),
	})
	if err != nil {
		b.logger.Error("Gateway subscription failed", zap.Stringer("clientId", clientID), zap.Error(err))
		return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Erro ao processar assinatura. Tente novamente.", err)
	}
	return checkout, nil
}

func (b *BillingService) CancelSubscription(ctx context.Context, clientID uuid.UUID) (*models.Subscription, error) {
	sub, err := b.repo.GetActiveSubscription(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Nenhuma assinatura ativa encontrada", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao cancelar assinatura. Tente novamente.", err)
	}

	if sub.ExternalID != "" {
		if b.gateway == nil {
			return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Pagamentos indisponíveis no momento", gateway.ErrNotConfigured)
		}
		if err := b.gateway.CancelSubscription(ctx, sub.ExternalID); err != nil {
			b.logger.Error("Gateway cancellation failed", zap.Stringer("subscriptionId", sub.ID), zap.Error(err))
			return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Erro ao cancelar assinatura. Tente novamente.", err)
		}
	}

	now := b.now()
	sub.Status = models.SubscriptionCancelled
	sub.CancelledAt = &now
	if err := b.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, persistenceError("Erro ao cancelar assinatura. Tente novamente.", err)
	}
	return sub, nil
}

func (b *BillingService) CreateAppointmentCheckout(ctx context.Context, appointmentID, clientID uuid.UUID) (*gateway.Checkout, error) {
	if b.gateway == nil {
		return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Pagamentos indisponíveis no momento", gateway.ErrNotConfigured)
	}

	appt, err := b.repo.GetAppointment(ctx, appointmentID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && appt.ClientID != clientID) {
		return nil, notFoundError(msgAppointmentNotFound, err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao processar pagamento. Tente novamente.", err)
	}
	if appt.PaymentStatus != models.PaymentPending || !appt.ValorCobrado.IsPositive() ||
		appt.Status == models.StatusCancelled {
		return nil, newError(KindConflict, ReasonNothingToPay, "Este agendamento não possui valor pendente", nil)
	}

	title := "Agendamento"
	if service, err := b.repo.GetService(ctx, appt.ServiceID); err == nil {
		title = service.Name
	}
	var email string
	if profile, err := b.repo.GetProfile(ctx, clientID); err == nil {
		email = profile.Email
	}

	checkout, err := b.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
		Reference:  AppointmentReference(appt.ID),
		Title:      title,
		Amount:     appt.ValorCobrado,
		Currency:   b.settings.Currency,
		PayerEmail: email,
	})
	if err != nil {
		b.logger.Error("Gateway checkout failed", zap.Stringer("appointmentId", appt.ID), zap.Error(err))
		return nil, newError(KindExternalService, ReasonGatewayUnavailable, "Erro ao processar pagamento. Tente novamente.", err)
	}
	return checkout, nil
}
