package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"barbershop-backend/models"

	"github.com/google/uuid"
)

// Memory is an in-process Repository. A single mutex serialises every call,
// which gives CreateAppointment the same check-and-insert atomicity the
// Postgres exclusion constraint provides.
type Memory struct {
	mu sync.Mutex

	profiles          map[uuid.UUID]models.Profile
	professionals     map[uuid.UUID]models.Professional
	services          map[uuid.UUID]models.Service
	businessHours     map[time.Weekday]models.BusinessHours
	professionalHours map[uuid.UUID]map[time.Weekday]models.ProfessionalHours
	blocked           []models.BlockedSlot
	appointments      map[uuid.UUID]models.Appointment
	plans             map[uuid.UUID]models.SubscriptionPlan
	subscriptions     map[uuid.UUID]models.Subscription
	rates             map[[2]uuid.UUID]models.CommissionRate
	commissions       map[uuid.UUID]models.Commission
	payments          map[string]models.Payment
	reminders         []models.ReminderLog

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		profiles:          map[uuid.UUID]models.Profile{},
		professionals:     map[uuid.UUID]models.Professional{},
		services:          map[uuid.UUID]models.Service{},
		businessHours:     map[time.Weekday]models.BusinessHours{},
		professionalHours: map[uuid.UUID]map[time.Weekday]models.ProfessionalHours{},
		appointments:      map[uuid.UUID]models.Appointment{},
		plans:             map[uuid.UUID]models.SubscriptionPlan{},
		subscriptions:     map[uuid.UUID]models.Subscription{},
		rates:             map[[2]uuid.UUID]models.CommissionRate{},
		commissions:       map[uuid.UUID]models.Commission{},
		payments:          map[string]models.Payment{},
		now:               time.Now,
	}
}

// SetClock replaces the timestamp source used for created/updated columns.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Seeding helpers used by tests and local tooling.

func (m *Memory) PutProfile(p models.Profile) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.profiles[p.ID] = p
	return p
}

func (m *Memory) PutProfessional(p models.Professional) models.Professional {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.professionals[p.ID] = p
	return p
}

func (m *Memory) PutService(s models.Service) models.Service {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.services[s.ID] = s
	return s
}

func (m *Memory) PutBusinessHours(h models.BusinessHours) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	m.businessHours[time.Weekday(h.Weekday)] = h
}

func (m *Memory) PutProfessionalHours(h models.ProfessionalHours) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if m.professionalHours[h.ProfessionalID] == nil {
		m.professionalHours[h.ProfessionalID] = map[time.Weekday]models.ProfessionalHours{}
	}
	m.professionalHours[h.ProfessionalID][time.Weekday(h.Weekday)] = h
}

func (m *Memory) PutPlan(p models.SubscriptionPlan) models.SubscriptionPlan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.plans[p.ID] = p
	return p
}

func (m *Memory) PutSubscription(s models.Subscription) models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = m.now()
	}
	s.Plan = nil
	m.subscriptions[s.ID] = s
	return s
}

func (m *Memory) PutCommissionRate(r models.CommissionRate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.rates[[2]uuid.UUID{r.ProfessionalID, r.ServiceID}] = r
}

// PutAppointment stores a without overlap checks.
func (m *Memory) PutAppointment(a models.Appointment) models.Appointment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.appointments[a.ID] = a
	return a
}

// Payments returns every stored payment; used by tests.
func (m *Memory) Payments() []models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out
}

func (m *Memory) ReminderLogs() []models.ReminderLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ReminderLog(nil), m.reminders...)
}

func (m *Memory) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Service
	for _, s := range m.services {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Professional
	for _, p := range m.professionals {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ListServices(ctx context.Context) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Service, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) CreateService(ctx context.Context, s *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, exists := m.services[s.ID]; exists {
		return ErrConflict
	}
	m.services[s.ID] = *s
	return nil
}

func (m *Memory) UpdateService(ctx context.Context, s *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.services[s.ID]; !exists {
		return ErrNotFound
	}
	m.services[s.ID] = *s
	return nil
}

func (m *Memory) GetProfessional(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.professionals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetBusinessHours(ctx context.Context, weekday time.Weekday) (*models.BusinessHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.businessHours[weekday]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *Memory) GetProfessionalHours(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*models.ProfessionalHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.professionalHours[professionalID][weekday]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *Memory) ListBlockedSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.BlockedSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BlockedSlot
	for _, b := range m.blocked {
		if !b.Global() && *b.ProfessionalID != professionalID {
			continue
		}
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *Memory) CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = m.now()
	m.blocked = append(m.blocked, *b)
	return nil
}

func (m *Memory) ListActiveAppointments(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.ProfessionalID == professionalID && a.Occupies() && a.Overlaps(from, to) {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (m *Memory) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.appointments {
		if existing.ProfessionalID == a.ProfessionalID && existing.Occupies() && existing.Overlaps(a.StartsAt, a.EndsAt) {
			return ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := m.now()
	a.CreatedAt, a.UpdatedAt = now, now
	m.appointments[a.ID] = *a
	return nil
}

func (m *Memory) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, a := range m.appointments {
		if f.ClientID != nil && a.ClientID != *f.ClientID {
			continue
		}
		if f.ProfessionalID != nil && a.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.From != nil && a.StartsAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !a.StartsAt.Before(*f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
			continue
		}
		if f.RemindersPending && a.ReminderSentAt != nil {
			continue
		}
		out = append(out, a)
	}
	sortAppointments(out)
	return out, nil
}

func (m *Memory) TransitionAppointment(ctx context.Context, id uuid.UUID, from, to models.AppointmentStatus, changes models.AppointmentChanges) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Status != from {
		return nil, ErrStaleState
	}
	a.Status = to
	if changes.PaymentStatus != "" {
		a.PaymentStatus = changes.PaymentStatus
	}
	if changes.PaymentMethod != "" {
		a.PaymentMethod = changes.PaymentMethod
	}
	if changes.CancelledAt != nil {
		at := *changes.CancelledAt
		a.CancelledAt = &at
	}
	a.UpdatedAt = m.now()
	m.appointments[id] = a
	return &a, nil
}

func (m *Memory) UpdateAppointmentPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, method models.PaymentMethod, unless ...models.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return false, nil
	}
	for _, s := range unless {
		if a.PaymentStatus == s {
			return false, nil
		}
	}
	a.PaymentStatus = status
	if method != "" {
		a.PaymentMethod = method
	}
	a.UpdatedAt = m.now()
	m.appointments[id] = a
	return true, nil
}

func (m *Memory) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.ReminderSentAt = &at
	m.appointments[id] = a
	return nil
}

func (m *Memory) GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) GetActiveSubscription(ctx context.Context, clientID uuid.UUID) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Subscription
	for _, s := range m.subscriptions {
		if s.ClientID != clientID || s.Status != models.SubscriptionActive {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			s := s
			found = &s
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	if plan, ok := m.plans[found.PlanID]; ok {
		found.Plan = &plan
	}
	return found, nil
}

func (m *Memory) GetLatestSubscription(ctx context.Context, clientID, planID uuid.UUID, includeCancelled bool) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Subscription
	for _, s := range m.subscriptions {
		if s.ClientID != clientID || s.PlanID != planID {
			continue
		}
		if !includeCancelled && s.Status == models.SubscriptionCancelled {
			continue
		}
		if found == nil || s.CreatedAt.After(found.CreatedAt) {
			s := s
			found = &s
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == models.SubscriptionActive {
		for _, existing := range m.subscriptions {
			if existing.ClientID == s.ClientID && existing.Status == models.SubscriptionActive {
				return ErrConflict
			}
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := m.now()
	s.CreatedAt, s.UpdatedAt = now, now
	stored := *s
	stored.Plan = nil
	m.subscriptions[s.ID] = stored
	return nil
}

func (m *Memory) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subscriptions[s.ID]; !ok {
		return ErrNotFound
	}
	if s.Status == models.SubscriptionActive {
		for id, existing := range m.subscriptions {
			if id != s.ID && existing.ClientID == s.ClientID && existing.Status == models.SubscriptionActive {
				return ErrConflict
			}
		}
	}
	s.UpdatedAt = m.now()
	stored := *s
	stored.Plan = nil
	m.subscriptions[s.ID] = stored
	return nil
}

func (m *Memory) ExpireSubscriptions(ctx context.Context, billedBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.subscriptions {
		if s.Status == models.SubscriptionActive && s.NextBillingAt != nil && s.NextBillingAt.Before(billedBefore) {
			s.Status = models.SubscriptionExpired
			s.UpdatedAt = m.now()
			m.subscriptions[id] = s
			n++
		}
	}
	return n, nil
}

func (m *Memory) GetCommissionRate(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.CommissionRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rates[[2]uuid.UUID{professionalID, serviceID}]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) CreateCommission(ctx context.Context, c *models.Commission) (*models.Commission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.commissions {
		if existing.AppointmentID == c.AppointmentID {
			existing := existing
			return &existing, false, nil
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = m.now()
	m.commissions[c.ID] = *c
	return c, true, nil
}

func (m *Memory) GetCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCommissions(ctx context.Context, f CommissionFilter) ([]models.Commission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Commission
	for _, c := range m.commissions {
		if f.ProfessionalID != nil && c.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.Paid != nil && c.Paid != *f.Paid {
			continue
		}
		if f.From != nil && c.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !c.CreatedAt.Before(*f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkCommissionPaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Commission, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.commissions[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if c.Paid {
		return &c, false, nil
	}
	c.Paid = true
	c.PaidAt = &at
	m.commissions[id] = c
	return &c, true, nil
}

func (m *Memory) SavePayment(ctx context.Context, p *models.Payment, merge PaymentMerge) (*models.Payment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.payments[p.ExternalID]
	if !ok {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		now := m.now()
		p.CreatedAt, p.UpdatedAt = now, now
		m.payments[p.ExternalID] = *p
		stored := *p
		return &stored, true, nil
	}
	if !merge(&current, p) {
		return &current, false, nil
	}
	current.Amount = p.Amount
	current.Method = p.Method
	current.Status = p.Status
	current.GatewayUpdatedAt = p.GatewayUpdatedAt
	current.GatewayPayload = p.GatewayPayload
	current.UpdatedAt = m.now()
	m.payments[p.ExternalID] = current
	return &current, true, nil
}

func (m *Memory) CreateReminderLog(ctx context.Context, l *models.ReminderLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = m.now()
	m.reminders = append(m.reminders, *l)
	return nil
}

func (m *Memory) ListReminderLogs(ctx context.Context, limit int) ([]models.ReminderLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ReminderLog, 0, len(m.reminders))
	for i := len(m.reminders) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.reminders[i])
	}
	return out, nil
}

func containsStatus(list []models.AppointmentStatus, s models.AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortAppointments(appts []models.Appointment) {
	sort.Slice(appts, func(i, j int) bool { return appts[i].StartsAt.Before(appts[j].StartsAt) })
}

var _ Repository = (*Memory)(nil)
var _ Repository = (*Postgres)(nil)
