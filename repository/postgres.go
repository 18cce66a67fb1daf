package repository

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	sqlStateUniqueViolation    = "23505"
	sqlStateExclusionViolation = "23P01"
)

type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// translate maps driver errors onto the port's sentinel errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateUniqueViolation, sqlStateExclusionViolation:
			return ErrConflict
		}
	}
	return err
}

func (r *Postgres) ListActiveServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).Where("ativo = ?", true).Order("nome").Find(&services).Error
	return services, translate(err)
}

func (r *Postgres) ListActiveProfessionals(ctx context.Context) ([]models.Professional, error) {
	var professionals []models.Professional
	err := r.db.WithContext(ctx).Where("ativo = ?", true).Order("nome").Find(&professionals).Error
	return professionals, translate(err)
}

func (r *Postgres) GetService(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var s models.Service
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Postgres) ListServices(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).Order("nome").Find(&services).Error
	return services, translate(err)
}

func (r *Postgres) CreateService(ctx context.Context, s *models.Service) error {
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *Postgres) UpdateService(ctx context.Context, s *models.Service) error {
	res := r.db.WithContext(ctx).Model(s).Select("*").Omit("id", "created_at").Updates(s)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Postgres) GetProfessional(ctx context.Context, id uuid.UUID) (*models.Professional, error) {
	var p models.Professional
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *Postgres) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *Postgres) GetBusinessHours(ctx context.Context, weekday time.Weekday) (*models.BusinessHours, error) {
	var h models.BusinessHours
	if err := r.db.WithContext(ctx).First(&h, "dia_semana = ?", int(weekday)).Error; err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (r *Postgres) GetProfessionalHours(ctx context.Context, professionalID uuid.UUID, weekday time.Weekday) (*models.ProfessionalHours, error) {
	var h models.ProfessionalHours
	err := r.db.WithContext(ctx).
		Where("professional_id = ? AND dia_semana = ?", professionalID, int(weekday)).
		First(&h).Error
	if err != nil {
		return nil, translate(err)
	}
	return &h, nil
}

func (r *Postgres) ListBlockedSlots(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.BlockedSlot, error) {
	var slots []models.BlockedSlot
	err := r.db.WithContext(ctx).
		Where("(professional_id IS NULL OR professional_id = ?)", professionalID).
		Where("data_inicio < ? AND data_fim > ?", to, from).
		Order("data_inicio").
		Find(&slots).Error
	return slots, translate(err)
}

func (r *Postgres) CreateBlockedSlot(ctx context.Context, b *models.BlockedSlot) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *Postgres) ListActiveAppointments(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.db.WithContext(ctx).
		Where("profissional_id = ? AND status <> ?", professionalID, models.StatusCancelled).
		Where("data_hora_inicio < ? AND data_hora_fim > ?", to, from).
		Order("data_hora_inicio").
		Find(&appts).Error
	return appts, translate(err)
}

// CreateAppointment locks any overlapping live row before inserting. The
// appointments_no_overlap exclusion constraint (see config.Migrate) backs this
// up for inserts racing on an empty range, surfacing as 23P01.
func (r *Postgres) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Appointment
		err := tx.Model(&models.Appointment{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("profissional_id = ? AND status <> ?", a.ProfessionalID, models.StatusCancelled).
			Where("data_hora_inicio < ? AND data_hora_fim > ?", a.EndsAt, a.StartsAt).
			Take(&existing).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(a).Error
	})
	return translate(err)
}

func (r *Postgres) GetAppointment(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	var a models.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *Postgres) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if f.ClientID != nil {
		q = q.Where("cliente_id = ?", *f.ClientID)
	}
	if f.ProfessionalID != nil {
		q = q.Where("profissional_id = ?", *f.ProfessionalID)
	}
	if f.From != nil {
		q = q.Where("data_hora_inicio >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("data_hora_inicio < ?", *f.To)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.RemindersPending {
		q = q.Where("reminder_sent_at IS NULL")
	}
	var appts []models.Appointment
	err := q.Order("data_hora_inicio").Find(&appts).Error
	return appts, translate(err)
}

func (r *Postgres) TransitionAppointment(ctx context.Context, id uuid.UUID, from, to models.AppointmentStatus, changes models.AppointmentChanges) (*models.Appointment, error) {
	updates := map[string]interface{}{"status": to, "updated_at": time.Now()}
	if changes.PaymentStatus != "" {
		updates["payment_status"] = changes.PaymentStatus
	}
	if changes.PaymentMethod != "" {
		updates["payment_method"] = changes.PaymentMethod
	}
	if changes.CancelledAt != nil {
		updates["cancelled_at"] = *changes.CancelledAt
	}

	var updated models.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Select("id").First(&models.Appointment{}, "id = ?", id).Error; err != nil {
				return err
			}
			return ErrStaleState
		}
		return tx.First(&updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &updated, nil
}

func (r *Postgres) UpdateAppointmentPayment(ctx context.Context, id uuid.UUID, status models.PaymentStatus, method models.PaymentMethod, unless ...models.PaymentStatus) (bool, error) {
	updates := map[string]interface{}{"payment_status": status, "updated_at": time.Now()}
	if method != "" {
		updates["payment_method"] = method
	}
	q := r.db.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id)
	if len(unless) > 0 {
		q = q.Where("payment_status NOT IN ?", unless)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *Postgres) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return translate(r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("reminder_sent_at", at).Error)
}

func (r *Postgres) GetPlan(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *Postgres) GetActiveSubscription(ctx context.Context, clientID uuid.UUID) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.WithContext(ctx).Preload("Plan").
		Where("cliente_id = ? AND status = ?", clientID, models.SubscriptionActive).
		Order("created_at DESC").
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Postgres) GetLatestSubscription(ctx context.Context, clientID, planID uuid.UUID, includeCancelled bool) (*models.Subscription, error) {
	q := r.db.WithContext(ctx).Where("cliente_id = ? AND plano_id = ?", clientID, planID)
	if !includeCancelled {
		q = q.Where("status <> ?", models.SubscriptionCancelled)
	}
	var s models.Subscription
	if err := q.Order("created_at DESC").First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *Postgres) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Omit("Plan").Create(s).Error)
}

func (r *Postgres) UpdateSubscription(ctx context.Context, s *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Omit("Plan").Save(s).Error)
}

func (r *Postgres) ExpireSubscriptions(ctx context.Context, billedBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND proxima_cobranca < ?", models.SubscriptionActive, billedBefore).
		Updates(map[string]interface{}{"status": models.SubscriptionExpired, "updated_at": time.Now()})
	return res.RowsAffected, translate(res.Error)
}

func (r *Postgres) GetCommissionRate(ctx context.Context, professionalID, serviceID uuid.UUID) (*models.CommissionRate, error) {
	var rate models.CommissionRate
	err := r.db.WithContext(ctx).
		Where("profissional_id = ? AND servico_id = ?", professionalID, serviceID).
		First(&rate).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rate, nil
}

func (r *Postgres) CreateCommission(ctx context.Context, c *models.Commission) (*models.Commission, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "agendamento_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	if res.RowsAffected == 1 {
		return c, true, nil
	}
	var existing models.Commission
	if err := r.db.WithContext(ctx).First(&existing, "agendamento_id = ?", c.AppointmentID).Error; err != nil {
		return nil, false, translate(err)
	}
	return &existing, false, nil
}

func (r *Postgres) GetCommission(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var c models.Commission
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *Postgres) ListCommissions(ctx context.Context, f CommissionFilter) ([]models.Commission, error) {
	q := r.db.WithContext(ctx).Model(&models.Commission{})
	if f.ProfessionalID != nil {
		q = q.Where("profissional_id = ?", *f.ProfessionalID)
	}
	if f.Paid != nil {
		q = q.Where("pago = ?", *f.Paid)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	var commissions []models.Commission
	err := q.Order("created_at DESC").Find(&commissions).Error
	return commissions, translate(err)
}

func (r *Postgres) MarkCommissionPaid(ctx context.Context, id uuid.UUID, at time.Time) (*models.Commission, bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Commission{}).
		Where("id = ? AND pago = ?", id, false).
		Updates(map[string]interface{}{"pago": true, "data_pagamento": at})
	if res.Error != nil {
		return nil, false, translate(res.Error)
	}
	c, err := r.GetCommission(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return c, res.RowsAffected > 0, nil
}

func (r *Postgres) SavePayment(ctx context.Context, p *models.Payment, merge PaymentMerge) (*models.Payment, bool, error) {
	var (
		stored  models.Payment
		written bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("mp_payment_id = ?", p.ExternalID).
			Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			stored, written = *p, true
			return nil
		}
		if err != nil {
			return err
		}
		if !merge(&stored, p) {
			return nil
		}
		err = tx.Model(&stored).Updates(map[string]interface{}{
			"valor":              p.Amount,
			"metodo":             p.Method,
			"status":             p.Status,
			"gateway_updated_at": p.GatewayUpdatedAt,
			"gateway_payload":    p.GatewayPayload,
			"updated_at":         time.Now(),
		}).Error
		if err != nil {
			return err
		}
		written = true
		return tx.First(&stored, "id = ?", stored.ID).Error
	})
	if err != nil {
		// a concurrent first delivery won the insert; the gateway retries
		return nil, false, translate(err)
	}
	return &stored, written, nil
}

func (r *Postgres) CreateReminderLog(ctx context.Context, l *models.ReminderLog) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}

func (r *Postgres) ListReminderLogs(ctx context.Context, limit int) ([]models.ReminderLog, error) {
	var logs []models.ReminderLog
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, translate(err)
}
