package services

import (
	"context"
	"testing"
	"time"

	"barbershop-backend/events"
	"barbershop-backend/gateway"
	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 2025-06-10 is a Tuesday.
const (
	tuesday  = "2025-06-10"
	thursday = "2025-06-12"
)

type fixture struct {
	t            *testing.T
	ctx          context.Context
	repo         *repository.Memory
	settings     Settings
	now          time.Time
	publisher    *events.Recorder
	logger       *zap.Logger
	professional models.Professional
	service      models.Service
	client       models.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		repo:      repository.NewMemory(),
		settings:  DefaultSettings(),
		publisher: &events.Recorder{},
		logger:    zap.NewNop(),
	}
	// Monday morning before the Tuesday agenda
	f.now = f.at("2025-06-09", "08:00")
	f.repo.SetClock(f.clock)

	for day := time.Monday; day <= time.Saturday; day++ {
		f.repo.PutBusinessHours(models.BusinessHours{Weekday: int(day), Opens: "09:00", Closes: "18:00", Active: true})
	}
	f.professional = f.repo.PutProfessional(models.Professional{Name: "João", Active: true})
	f.service = f.repo.PutService(models.Service{
		Name:            "Corte",
		Price:           decimal.RequireFromString("50.00"),
		DurationMinutes: 30,
		Active:          true,
	})
	f.client = f.repo.PutProfile(models.Profile{Name: "Carlos", Email: "carlos@example.com", Phone: "+55 11 91234-5678", Role: models.RoleClient})
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) at(date, clock string) time.Time {
	f.t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, f.settings.Location)
	require.NoError(f.t, err)
	return ts
}

func (f *fixture) day(date string) time.Time {
	return f.at(date, "00:00")
}

func (f *fixture) availability() *AvailabilityCalculator {
	return NewAvailabilityCalculator(f.repo, f.settings, f.clock, f.logger)
}

func (f *fixture) pricing() *PricingEngine {
	return NewPricingEngine(f.repo, f.settings)
}

func (f *fixture) policy() *CancellationPolicy {
	return NewCancellationPolicy(f.settings.CancellationLead, f.clock)
}

func (f *fixture) booking() *BookingCoordinator {
	return NewBookingCoordinator(f.repo, f.availability(), f.pricing(), f.policy(), f.publisher, f.settings, f.clock, f.logger)
}

func (f *fixture) commissions() *CommissionCalculator {
	return NewCommissionCalculator(f.repo, f.settings, f.publisher, f.clock, f.logger)
}

func (f *fixture) lifecycle() *AppointmentLifecycle {
	return NewAppointmentLifecycle(f.repo, f.commissions(), f.publisher, f.logger)
}

func (f *fixture) reconciler() *PaymentReconciler {
	return NewPaymentReconciler(f.repo, f.settings, f.publisher, f.clock, f.logger)
}

// appointment stores an agendado booking of the fixture service.
func (f *fixture) appointment(start time.Time, mutate ...func(*models.Appointment)) models.Appointment {
	a := models.Appointment{
		ClientID:       f.client.ID,
		ProfessionalID: f.professional.ID,
		ServiceID:      f.service.ID,
		StartsAt:       start,
		EndsAt:         start.Add(f.service.Duration()),
		Status:         models.StatusScheduled,
		ValorServico:   f.service.Price,
		ValorCobrado:   f.service.Price,
		PaymentStatus:  models.PaymentPending,
	}
	for _, m := range mutate {
		m(&a)
	}
	return f.repo.PutAppointment(a)
}

// subscribe gives the fixture client an ativa plan covering the fixture service.
func (f *fixture) subscribe(weekdays ...int64) (models.SubscriptionPlan, models.Subscription) {
	plan := models.SubscriptionPlan{
		Name:             "Clube do Corte",
		MonthlyPrice:     decimal.RequireFromString("89.90"),
		IncludedServices: pq.StringArray{f.service.ID.String()},
		Active:           true,
	}
	if len(weekdays) > 0 {
		plan.AllowedWeekdays = pq.Int64Array(weekdays)
	}
	plan = f.repo.PutPlan(plan)
	next := f.now.AddDate(0, 0, 30)
	sub := f.repo.PutSubscription(models.Subscription{
		ClientID:      f.client.ID,
		PlanID:        plan.ID,
		Status:        models.SubscriptionActive,
		StartedAt:     f.now,
		NextBillingAt: &next,
	})
	return plan, sub
}

func (f *fixture) get(id uuid.UUID) *models.Appointment {
	f.t.Helper()
	a, err := f.repo.GetAppointment(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

// fakeGateway records calls and returns canned answers.
type fakeGateway struct {
	payments      map[string]*gateway.PaymentDetail
	subscriptions map[string]*gateway.SubscriptionDetail
	checkouts     []gateway.CheckoutRequest
	preapprovals  []gateway.SubscriptionRequest
	cancelled     []string
	err           error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payments:      map[string]*gateway.PaymentDetail{},
		subscriptions: map[string]*gateway.SubscriptionDetail{},
	}
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (*gateway.PaymentDetail, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.payments[id], nil
}

func (g *fakeGateway) GetSubscription(_ context.Context, id string) (*gateway.SubscriptionDetail, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.subscriptions[id], nil
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.checkouts = append(g.checkouts, req)
	return &gateway.Checkout{ID: "pref-1", URL: "https://mp.example/checkout/pref-1"}, nil
}

func (g *fakeGateway) CreateSubscription(_ context.Context, req gateway.SubscriptionRequest) (*gateway.Checkout, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.preapprovals = append(g.preapprovals, req)
	return &gateway.Checkout{ID: "pre-1", URL: "https://mp.example/preapproval/pre-1"}, nil
}

func (g *fakeGateway) CancelSubscription(_ context.Context, id string) error {
	if g.err != nil {
		return g.err
	}
	g.cancelled = append(g.cancelled, id)
	return nil
}

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	require.Error(t, err)
	return KindOf(err)
}
