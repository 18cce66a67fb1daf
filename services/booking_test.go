package services

import (
	"sync"
	"testing"

	"barbershop-backend/events"
	"barbershop-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) request(date, clock string) BookingRequest {
	return BookingRequest{
		ClientID:       f.client.ID,
		ProfessionalID: f.professional.ID,
		ServiceID:      f.service.ID,
		Date:           date,
		Time:           clock,
	}
}

func TestCreate_Books(t *testing.T) {
	f := newFixture(t)

	res := f.booking().Create(f.ctx, f.request(tuesday, "10:00"))
	require.True(t, res.Success, res.Message)
	assert.Equal(t, msgBookingCreated, res.Message)
	require.NotNil(t, res.Pricing)

	appt := f.get(uuid.MustParse(res.AppointmentID))
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.Equal(t, models.PaymentPending, appt.PaymentStatus)
	assert.True(t, appt.StartsAt.Equal(f.at(tuesday, "10:00")))
	assert.True(t, appt.EndsAt.Equal(f.at(tuesday, "10:30")))
	assert.False(t, appt.CobertoAssinatura)
	assert.Equal(t, []string{events.AppointmentCreated}, f.publisher.Keys())

	slots, err := f.availability().AvailableSlots(f.ctx, f.professional.ID, f.day(tuesday), 30)
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:00")
}

func TestCreate_CoveredBookingIsSettled(t *testing.T) {
	f := newFixture(t)
	_, sub := f.subscribe()

	res := f.booking().Create(f.ctx, f.request(tuesday, "11:00"))
	require.True(t, res.Success, res.Message)

	appt := f.get(uuid.MustParse(res.AppointmentID))
	assert.True(t, appt.CobertoAssinatura)
	assert.True(t, appt.ValorCobrado.IsZero())
	assert.Equal(t, models.PaymentPaid, appt.PaymentStatus)
	assert.Equal(t, models.MethodSubscription, appt.PaymentMethod)
	require.NotNil(t, appt.SubscriptionID)
	assert.Equal(t, sub.ID, *appt.SubscriptionID)
}

func TestCreate_SlotAlreadyTaken(t *testing.T) {
	f := newFixture(t)
	f.appointment(f.at(tuesday, "10:00"))

	res := f.booking().Create(f.ctx, f.request(tuesday, "10:00"))
	assert.False(t, res.Success)
	assert.Equal(t, ReasonSlotNoLongerAvailable, res.ReasonCode)
	assert.Equal(t, msgSlotTaken, res.Message)
	require.NotNil(t, res.Err)
	assert.Equal(t, KindConflict, res.Err.Kind)
	assert.Empty(t, f.publisher.Keys())
}

func TestCreate_OffGridOrOutsideHours(t *testing.T) {
	f := newFixture(t)

	for _, clock := range []string{"08:00", "10:10", "17:45"} {
		res := f.booking().Create(f.ctx, f.request(tuesday, clock))
		assert.False(t, res.Success, clock)
		assert.Equal(t, ReasonSlotNoLongerAvailable, res.ReasonCode, clock)
	}
}

func TestCreate_ConcurrentRequestsForOneSlot(t *testing.T) {
	f := newFixture(t)
	coordinator := f.booking()

	const callers = 12
	results := make([]Result, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.request(tuesday, "15:00")
			req.ClientID = uuid.New()
			results[i] = coordinator.Create(f.ctx, req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.Success {
			succeeded++
			continue
		}
		assert.Equal(t, ReasonSlotNoLongerAvailable, res.ReasonCode)
	}
	assert.Equal(t, 1, succeeded)

	from, to := f.at(tuesday, "00:00"), f.at(tuesday, "23:59")
	booked, err := f.repo.ListActiveAppointments(f.ctx, f.professional.ID, from, to)
	require.NoError(t, err)
	assert.Len(t, booked, 1)
}

func TestCreate_RejectsInactiveAndUnknown(t *testing.T) {
	f := newFixture(t)

	svc := f.service
	svc.Active = false
	f.repo.PutService(svc)
	res := f.booking().Create(f.ctx, f.request(tuesday, "10:00"))
	assert.Equal(t, ReasonServiceInactive, res.ReasonCode)
	assert.Equal(t, KindPolicyViolation, res.Err.Kind)

	svc.Active = true
	f.repo.PutService(svc)
	pro := f.professional
	pro.Active = false
	f.repo.PutProfessional(pro)
	res = f.booking().Create(f.ctx, f.request(tuesday, "10:00"))
	assert.Equal(t, ReasonProfessionalInactive, res.ReasonCode)

	req := f.request(tuesday, "10:00")
	req.ServiceID = uuid.New()
	res = f.booking().Create(f.ctx, req)
	assert.Equal(t, ReasonNotFound, res.ReasonCode)
}

func TestCreate_InvalidDate(t *testing.T) {
	f := newFixture(t)

	res := f.booking().Create(f.ctx, f.request("10/06/2025", "10:00"))
	assert.False(t, res.Success)
	assert.Equal(t, ReasonValidation, res.ReasonCode)
}

func TestCancel_OwnerBeforeWindow(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	res := f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: f.client.ID, Role: models.RoleClient})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, msgCancelled, res.Message)

	stored := f.get(appt.ID)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)
	assert.True(t, stored.CancelledAt.Equal(f.now))
	assert.Equal(t, []string{events.AppointmentCancelled}, f.publisher.Keys())

	// the freed range can be booked again
	res = f.booking().Create(f.ctx, f.request(tuesday, "10:00"))
	assert.True(t, res.Success, res.Message)
}

func TestCancel_InsideWindow(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))
	f.now = f.at(tuesday, "07:00")

	res := f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: f.client.ID, Role: models.RoleClient})
	assert.False(t, res.Success)
	assert.Equal(t, ReasonCancellationWindow, res.ReasonCode)
	assert.Equal(t, KindPolicyViolation, res.Err.Kind)
	assert.Equal(t, models.StatusScheduled, f.get(appt.ID).Status)

	// staff are not bound by the lead time
	res = f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: uuid.New(), Role: models.RoleProfessional})
	assert.True(t, res.Success, res.Message)
}

func TestCancel_Rejections(t *testing.T) {
	f := newFixture(t)
	appt := f.appointment(f.at(tuesday, "10:00"))

	res := f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: uuid.New(), Role: models.RoleClient})
	assert.Equal(t, ReasonNotFound, res.ReasonCode, "someone else's booking is invisible")

	res = f.booking().Cancel(f.ctx, uuid.New(), Actor{UserID: f.client.ID, Role: models.RoleClient})
	assert.Equal(t, ReasonNotFound, res.ReasonCode)

	done := f.appointment(f.at(tuesday, "11:00"), func(a *models.Appointment) { a.Status = models.StatusCompleted })
	res = f.booking().Cancel(f.ctx, done.ID, Actor{UserID: uuid.New(), Role: models.RoleAdmin})
	assert.Equal(t, ReasonNotCancellable, res.ReasonCode)

	require.True(t, f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: f.client.ID, Role: models.RoleClient}).Success)
	res = f.booking().Cancel(f.ctx, appt.ID, Actor{UserID: f.client.ID, Role: models.RoleClient})
	assert.Equal(t, ReasonNotCancellable, res.ReasonCode, "cancelling twice")
}
