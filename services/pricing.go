package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda",
	time.Tuesday:   "terça",
	time.Wednesday: "quarta",
	time.Thursday:  "quinta",
	time.Friday:    "sexta",
	time.Saturday:  "sábado",
}

type PricingResult struct {
	ValorServico       decimal.Decimal `json:"valorServico"`
	ValorCobrado       decimal.Decimal `json:"valorCobrado"`
	CobertoAssinatura  bool            `json:"cobertoAssinatura"`
	SubscriptionID     *uuid.UUID      `json:"assinaturaId,omitempty"`
	AvisoPlanoLimitado string          `json:"avisoPlanoLimitado,omitempty"`
}

// PricingEngine prices a booking against the client's active subscription.
type PricingEngine struct {
	repo     repository.Repository
	settings Settings
}

func NewPricingEngine(repo repository.Repository, settings Settings) *PricingEngine {
	return &PricingEngine{repo: repo, settings: settings}
}

func (p *PricingEngine) Price(ctx context.Context, clientID, serviceID uuid.UUID, at time.Time) (*PricingResult, error) {
	service, err := p.repo.GetService(ctx, serviceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Serviço não encontrado", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao calcular valor", err)
	}
	return p.priceService(ctx, clientID, service, at)
}

func (p *PricingEngine) priceService(ctx context.Context, clientID uuid.UUID, service *models.Service, at time.Time) (*PricingResult, error) {
	result := &PricingResult{
		ValorServico: service.Price,
		ValorCobrado: service.Price,
	}

	sub, err := p.repo.GetActiveSubscription(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, persistenceError("Erro ao calcular valor", err)
	}

	plan := sub.Plan
	if plan == nil {
		if plan, err = p.repo.GetPlan(ctx, sub.PlanID); err != nil {
			return nil, persistenceError("Erro ao calcular valor", err)
		}
	}
	if !plan.Includes(service.ID) {
		return result, nil
	}

	subID := sub.ID
	result.SubscriptionID = &subID

	allowed := plan.AllowsWeekday(at.In(p.settings.location()).Weekday())
	if allowed {
		result.ValorCobrado = decimal.Zero
		result.CobertoAssinatura = true
	}
	if plan.RestrictsWeekdays() {
		result.AvisoPlanoLimitado = planLimitNote(plan, allowed)
	}
	return result, nil
}

func planLimitNote(plan *models.SubscriptionPlan, covered bool) string {
	names := make([]string, 0, len(plan.AllowedWeekdays))
	for _, d := range plan.AllowedWeekdays {
		if name, ok := weekdayNames[time.Weekday(d)]; ok {
			names = append(names, name)
		}
	}
	days := strings.Join(names, ", ")
	if covered {
		return fmt.Sprintf("Seu plano \"%s\" permite agendamentos apenas às %s. Esta data está coberta pelo plano.", plan.Name, days)
	}
	return fmt.Sprintf("Seu plano \"%s\" permite agendamentos apenas às %s. Nesta data, será cobrado o valor normal.", plan.Name, days)
}
