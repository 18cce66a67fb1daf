package services

import (
	"testing"

	"barbershop-backend/events"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func inProgress(a *models.Appointment) { a.Status = models.StatusInProgress }

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		base, percent, want string
	}{
		{"50.00", "50", "25.00"},
		{"35.00", "40", "14.00"},
		{"33.33", "33.33", "11.11"},
		{"0", "50", "0.00"},
		{"89.90", "12.5", "11.24"},
	}
	for _, tc := range cases {
		got := CommissionAmount(dec(tc.base), dec(tc.percent))
		assert.True(t, got.Equal(dec(tc.want)), "%s x %s%% = %s, got %s", tc.base, tc.percent, tc.want, got)
	}
}

func TestComplete_RequiresPaymentMethod(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	_, _, err := f.lifecycle().Complete(f.ctx, appt.ID, "")
	assert.Equal(t, KindValidation, kindOf(t, err))
	assert.Equal(t, models.StatusScheduled, f.get(appt.ID).Status)

	_, _, err = f.lifecycle().Complete(f.ctx, appt.ID, models.MethodSubscription)
	assert.Equal(t, KindValidation, kindOf(t, err), "assinatura is not a counter payment")
}

func TestComplete_RecordsCommission(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	lifecycle := f.lifecycle()

	_, err := lifecycle.Start(f.ctx, appt.ID)
	require.NoError(t, err)

	done, commission, err := lifecycle.Complete(f.ctx, appt.ID, models.MethodPix)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, models.PaymentPaid, done.PaymentStatus)
	assert.Equal(t, models.MethodPix, done.PaymentMethod)

	require.NotNil(t, commission)
	assert.True(t, commission.ValorComissao.Equal(dec("25.00")))
	assert.True(t, commission.Percent.Equal(dec("50")))
	assert.False(t, commission.Paid)
	assert.Equal(t, []string{events.AppointmentStatusChanged, events.AppointmentStatusChanged}, f.publisher.Keys())
}

func TestComplete_RequiresStart(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	_, _, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodPix)
	assert.Equal(t, KindConflict, kindOf(t, err))
	assert.Equal(t, models.StatusScheduled, f.get(appt.ID).Status)

	list, err := f.commissions().List(f.ctx, repository.CommissionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestComplete_RateOverride(t *testing.T) {
	f := newFixture(t)
	f.repo.PutCommissionRate(models.CommissionRate{ProfessionalID: f.professional.ID, ServiceID: f.service.ID, Percent: dec("40")})
	appt := f.appointment(f.at(tuesday, "10:00"), inProgress)

	_, commission, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodCash)
	require.NoError(t, err)
	assert.True(t, commission.ValorComissao.Equal(dec("20.00")))
}

func TestComplete_CoveredVisitBasis(t *testing.T) {
	covered := func(a *models.Appointment) {
		a.CobertoAssinatura = true
		a.ValorCobrado = decimal.Zero
		a.PaymentStatus = models.PaymentPaid
		a.PaymentMethod = models.MethodSubscription
	}

	t.Run("charged", func(t *testing.T) {
		f := newFixture(t)
		appt := f.appointment(f.at(tuesday, "10:00"), covered, inProgress)
		_, commission, err := f.lifecycle().Complete(f.ctx, appt.ID, "")
		require.NoError(t, err)
		assert.True(t, commission.ValorComissao.IsZero())
	})

	t.Run("list", func(t *testing.T) {
		f := newFixture(t)
		f.settings.CommissionBasis = BasisList
		appt := f.appointment(f.at(tuesday, "10:00"), covered, inProgress)
		_, commission, err := f.lifecycle().Complete(f.ctx, appt.ID, "")
		require.NoError(t, err)
		assert.True(t, commission.ValorBase.Equal(dec("50.00")))
		assert.True(t, commission.ValorComissao.Equal(dec("25.00")))
	})
}

func TestComplete_TwiceKeepsOneCommission(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"), inProgress)

	_, first, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodCreditCard)
	require.NoError(t, err)
	_, second, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodCreditCard)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := f.commissions().List(f.ctx, repository.CommissionFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	lifecycle := f.lifecycle()

	_, err := lifecycle.MarkNoShow(f.ctx, appt.ID)
	require.NoError(t, err)

	_, err = lifecycle.Start(f.ctx, appt.ID)
	assert.Equal(t, KindConflict, kindOf(t, err))
	_, _, err = lifecycle.Complete(f.ctx, appt.ID, models.MethodPix)
	assert.Equal(t, KindConflict, kindOf(t, err))

	_, err = lifecycle.Start(f.ctx, uuid.New())
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestOnCompleted_RejectsOpenAppointment(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	_, err := f.commissions().OnCompleted(f.ctx, &appt)
	assert.Equal(t, KindConflict, kindOf(t, err))
}

func TestMarkPaid_Idempotent(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"), inProgress)
	_, commission, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodPix)
	require.NoError(t, err)
	f.publisher.Reset()

	calc := f.commissions()
	paid, err := calc.MarkPaid(f.ctx, commission.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)

	again, err := calc.MarkPaid(f.ctx, commission.ID)
	require.NoError(t, err)
	assert.True(t, again.Paid)
	assert.Equal(t, []string{events.CommissionPaid}, f.publisher.Keys())

	_, err = calc.MarkPaid(f.ctx, uuid.New())
	assert.Equal(t, KindNotFound, kindOf(t, err))
}

func TestCommissionSummary(t *testing.T) {
	f := newFixture(t)
	other := f.repo.PutProfessional(models.Professional{Name: "Pedro", Active: true})

	var firstID uuid.UUID
	for i, clock := range []string{"10:00", "11:00"} {
		appt := f.appointment(f.at(tuesday, clock), inProgress)
		_, c, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodCash)
		require.NoError(t, err)
		if i == 0 {
			firstID = c.ID
		}
	}
	appt := f.appointment(f.at(tuesday, "10:00"), func(a *models.Appointment) { a.ProfessionalID = other.ID }, inProgress)
	_, _, err := f.lifecycle().Complete(f.ctx, appt.ID, models.MethodCash)
	require.NoError(t, err)

	_, err = f.commissions().MarkPaid(f.ctx, firstID)
	require.NoError(t, err)

	totals, err := f.commissions().Summary(f.ctx, repository.CommissionFilter{})
	require.NoError(t, err)
	require.Len(t, totals, 2)

	byPro := map[uuid.UUID]CommissionTotals{}
	for _, tt := range totals {
		byPro[tt.ProfessionalID] = tt
	}
	joao := byPro[f.professional.ID]
	assert.Equal(t, 2, joao.Count)
	assert.True(t, joao.Paid.Equal(dec("25.00")))
	assert.True(t, joao.Pending.Equal(dec("25.00")))
	assert.Equal(t, 1, byPro[other.ID].Count)
}
