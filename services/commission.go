package services

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/events"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

type CommissionCalculator struct {
	repo      repository.Repository
	settings  Settings
	publisher events.Publisher
	now       Clock
	logger    *zap.Logger
}

func NewCommissionCalculator(repo repository.Repository, settings Settings, publisher events.Publisher, now Clock, logger *zap.Logger) *CommissionCalculator {
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &CommissionCalculator{repo: repo, settings: settings, publisher: publisher, now: now, logger: logger}
}

// OnCompleted records the professional's commission for a completed
// appointment. Calling it again for the same appointment returns the
// existing row.
func (c *CommissionCalculator) OnCompleted(ctx context.Context, appt *models.Appointment) (*models.Commission, error) {
	if appt.Status != models.StatusCompleted {
		return nil, newError(KindConflict, ReasonInvalidTransition, "Comissão disponível apenas para atendimentos concluídos", nil)
	}

	percent := c.settings.DefaultCommissionPercent
	rate, err := c.repo.GetCommissionRate(ctx, appt.ProfessionalID, appt.ServiceID)
	switch {
	case err == nil:
		percent = rate.Percent
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, persistenceError("Erro ao calcular comissão", err)
	}

	base := appt.ValorCobrado
	if c.settings.CommissionBasis == BasisList {
		base = appt.ValorServico
	}

	commission := &models.Commission{
		ID:             uuid.New(),
		AppointmentID:  appt.ID,
		ProfessionalID: appt.ProfessionalID,
		ValorServico:   appt.ValorServico,
		ValorBase:      base,
		Percent:        percent,
		ValorComissao:  CommissionAmount(base, percent),
	}
	stored, created, err := c.repo.CreateCommission(ctx, commission)
	if err != nil {
		return nil, persistenceError("Erro ao registrar comissão", err)
	}
	if created {
		c.logger.Info("Commission recorded",
			zap.Stringer("appointmentId", appt.ID),
			zap.Stringer("professionalId", appt.ProfessionalID),
			zap.String("amount", stored.ValorComissao.StringFixed(2)))
	}
	return stored, nil
}

// CommissionAmount is base × percent / 100 rounded to cents.
func CommissionAmount(base, percent decimal.Decimal) decimal.Decimal {
	return base.Mul(percent).Div(hundred).Round(2)
}

// MarkPaid is idempotent: paying an already paid commission is a no-op.
func (c *CommissionCalculator) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	commission, changed, err := c.repo.MarkCommissionPaid(ctx, id, c.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Comissão não encontrada", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao registrar pagamento da comissão", err)
	}
	if changed {
		if err := c.publisher.Publish(ctx, events.CommissionPaid, commission); err != nil {
			c.logger.Warn("Failed to publish event", zap.String("key", events.CommissionPaid), zap.Error(err))
		}
	}
	return commission, nil
}

func (c *CommissionCalculator) List(ctx context.Context, f repository.CommissionFilter) ([]models.Commission, error) {
	list, err := c.repo.ListCommissions(ctx, f)
	if err != nil {
		return nil, persistenceError("Erro ao buscar comissões", err)
	}
	return list, nil
}

type CommissionTotals struct {
	ProfessionalID uuid.UUID       `json:"profissionalId"`
	Pending        decimal.Decimal `json:"pendente"`
	Paid           decimal.Decimal `json:"pago"`
	Count          int             `json:"quantidade"`
}

// Summary totals pending and paid commission per professional.
func (c *CommissionCalculator) Summary(ctx context.Context, f repository.CommissionFilter) ([]CommissionTotals, error) {
	list, err := c.List(ctx, f)
	if err != nil {
		return nil, err
	}
	index := map[uuid.UUID]int{}
	var totals []CommissionTotals
	for _, cm := range list {
		i, ok := index[cm.ProfessionalID]
		if !ok {
			i = len(totals)
			index[cm.ProfessionalID] = i
			totals = append(totals, CommissionTotals{ProfessionalID: cm.ProfessionalID, Pending: decimal.Zero, Paid: decimal.Zero})
		}
		if cm.Paid {
			totals[i].Paid = totals[i].Paid.Add(cm.ValorComissao)
		} else {
			totals[i].Pending = totals[i].Pending.Add(cm.ValorComissao)
		}
		totals[i].Count++
	}
	return totals, nil
}
