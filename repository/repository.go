// Package repository is the persistence port of the booking core. Services
// depend on the Repository interface; Postgres backs it in production and
// Memory backs it in tests.
package repository

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/models"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict reports a violated uniqueness or exclusion rule, e.g. an
	// overlapping appointment or a second active subscription.
	ErrConflict = errors.New("conflicting record")
	// ErrStaleState reports a conditional update whose precondition no
	// longer holds.
	ErrStaleState = errors.New("record changed concurrently")
)

type AppointmentFilter struct {
	ClientID       *uuid.UUID
	ProfessionalID *uuid.UUID
	From, To       *time.Time
	Statuses       []models.AppointmentStatus
	// RemindersPending restricts to rows without ReminderSentAt.
	RemindersPending bool
}

type CommissionFilter struct {
	ProfessionalID *uuid.UUID
	Paid           *bool
	From, To       *time.Time
}

// PaymentMerge decides whether incoming replaces the stored row current.
type PaymentMerge func(current, incoming *models.Payment) bool

type Repository interface {
	ListActiveServices(ctx context.Context) ([]models.Service, error)
	ListActiveProfessionals(ctx context.Context) ([]models.Professional, error)
	GetService(ctx context.Context, id uuid.UUID) (*models.Service, error)
	ListServices(ctx context.Context) ([]models.Service, error)
	CreateService(ctx context.Context, s *models.Service) error
	UpdateService(ctx context.Context, s *models.Service) error
	GetProfessional(ctx context.Context, id uuid.UUID) (*models.Professional, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)

	GetBusinessHours(ctx context.Context, weekday time.Weekday) (*models.BusinessHours, error)
	GetProfessionalHours(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*models.ProfessionalHours, error)

	// ListBlockedSlots returns global and professional blocks overlapping [from,to).
	ListBlockedSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error

	// ListActiveAppointments returns non-cancelled appointments of the
	// professional overlapping [from,to).
	ListActiveAppointments(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.Appointment, error)
	// CreateAppointment inserts a only if no non-cancelled appointment of the
	// same professional overlaps it. Returns ErrConflict otherwise.
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error)
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error)
	// TransitionAppointment sets status to when the current status is from.
	TransitionAppointment(ctx context.Context, id uuid.UUID, from, to models.AppointmentStatus, changes models.AppointmentChanges) (*models.Appointment, error)
	// UpdateAppointmentPayment is skipped (returns false) when the current
	// payment status is one of unless.
	UpdateAppointmentPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, method models.PaymentMethod, unless ...models.PaymentStatus) (bool, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error

	GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	GetActiveSubscription(ctx context.Context, clientID uuid.UUID) (*models.Subscription, error)
	GetLatestSubscription(ctx context.Context, clientID, planID uuid.UUID, includeCancelled bool) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	UpdateSubscription(ctx context.Context, s *models.Subscription) error
	ExpireSubscriptions(ctx context.Context, billedBefore time.Time) (int64, error)

	GetCommissionRate(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.CommissionRate, error)
	// CreateCommission returns the existing row (created=false) when the
	// appointment already has a commission.
	CreateCommission(ctx context.Context, c *models.Commission) (*models.Commission, bool, error)
	GetCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	ListCommissions(ctx context.Context, f CommissionFilter) ([]models.Commission, error)
	// MarkCommissionPaid only touches unpaid rows; it reports whether it did.
	MarkCommissionPaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Commission, bool, error)

	// SavePayment upserts by ExternalID. When a row exists, merge decides
	// whether p overwrites it. Returns the stored row and whether it was written.
	SavePayment(ctx context.Context, p *models.Payment, merge PaymentMerge) (*models.Payment, bool, error)

	CreateReminderLog(ctx context.Context, l *models.ReminderLog) error
	// ListReminderLogs returns the newest entries first.
	ListReminderLogs(ctx context.Context, limit int) ([]models.ReminderLog, error)
}
