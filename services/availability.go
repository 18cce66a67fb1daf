package services

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const slotLabelLayout = "15:04"

// AvailabilityCalculator derives free start times for a professional on a
// day. Its answers are advisory; BookingCoordinator re-checks before writing.
type AvailabilityCalculator struct {
	repo     repository.Repository
	settings Settings
	now      Clock
	logger   *zap.Logger
}

func NewAvailabilityCalculator(repo repository.Repository, settings Settings, now Clock, logger *zap.Logger) *AvailabilityCalculator {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityCalculator{repo: repo, settings: settings, now: now, logger: logger}
}

// AvailableSlots returns the free start times on date formatted as "HH:MM".
func (a *AvailabilityCalculator) AvailableSlots(ctx context.Context, professionalID uuid.UUID, date time.Time, durationMinutes int) ([]string, error) {
	starts, err := a.AvailableStarts(ctx, professionalID, date, durationMinutes)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(starts))
	for _, s := range starts {
		labels = append(labels, s.Format(slotLabelLayout))
	}
	return labels, nil
}

// AvailableStarts returns the free start instants on date, ascending.
func (a *AvailabilityCalculator) AvailableStarts(ctx context.Context, professionalID uuid.UUID, date time.Time, durationMinutes int) ([]time.Time, error) {
	if durationMinutes <= 0 {
		return nil, validationError("Duração inválida", nil)
	}

	professional, err := a.repo.GetProfessional(ctx, professionalID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFoundError("Profissional não encontrado", err)
	}
	if err != nil {
		return nil, persistenceError("Erro ao buscar horários", err)
	}
	if !professional.Active {
		return []time.Time{}, nil
	}

	day := date.In(a.settings.location())
	window, ok, err := a.workingWindow(ctx, professionalID, day)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []time.Time{}, nil
	}

	blocked, err := a.repo.ListBlockedSlots(ctx, professionalID, window.Opens, window.Closes)
	if err != nil {
		return nil, persistenceError("Erro ao buscar horários", err)
	}
	booked, err := a.repo.ListActiveAppointments(ctx, professionalID, window.Opens, window.Closes)
	if err != nil {
		return nil, persistenceError("Erro ao buscar horários", err)
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := a.settings.SlotGranularity
	if step <= 0 {
		step = 30 * time.Minute
	}
	cutoff := a.now().Add(a.settings.MinimumBookingLead)

	starts := []time.Time{}
	for start := window.Opens; start.Before(window.Closes); start = start.Add(step) {
		end := start.Add(duration)
		if end.After(window.Closes) {
			break
		}
		if !start.After(cutoff) {
			continue
		}
		if overlapsBlocked(blocked, start, end) || overlapsBooked(booked, start, end) {
			continue
		}
		starts = append(starts, start)
	}
	return starts, nil
}

// workingWindow resolves the professional override first, then the shop default.
func (a *AvailabilityCalculator) workingWindow(ctx context.Context, professionalID uuid.UUID, day time.Time) (models.WorkingWindow, bool, error) {
	weekday := day.Weekday()

	var opens, closes string
	ph, err := a.repo.GetProfessionalHours(ctx, professionalID, weekday)
	switch {
	case err == nil:
		if !ph.Active {
			return models.WorkingWindow{}, false, nil
		}
		opens, closes = ph.Opens, ph.Closes
	case errors.Is(err, repository.ErrNotFound):
		bh, err := a.repo.GetBusinessHours(ctx, weekday)
		if errors.Is(err, repository.ErrNotFound) {
			return models.WorkingWindow{}, false, nil
		}
		if err != nil {
			return models.WorkingWindow{}, false, persistenceError("Erro ao buscar horários", err)
		}
		if !bh.Active {
			return models.WorkingWindow{}, false, nil
		}
		opens, closes = bh.Opens, bh.Closes
	default:
		return models.WorkingWindow{}, false, persistenceError("Erro ao buscar horários", err)
	}

	window, err := models.ResolveWindow(day, opens, closes)
	if err != nil {
		a.logger.Warn("Invalid working hours configuration",
			zap.Stringer("professionalId", professionalID),
			zap.Int("weekday", int(weekday)),
			zap.Error(err))
		return models.WorkingWindow{}, false, nil
	}
	if !window.Opens.Before(window.Closes) {
		return models.WorkingWindow{}, false, nil
	}
	return window, true, nil
}

func overlapsBlocked(blocked []models.BlockedSlot, start, end time.Time) bool {
	for _, b := range blocked {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func overlapsBooked(booked []models.Appointment, start, end time.Time) bool {
	for _, appt := range booked {
		if appt.Occupies() && appt.Overlaps(start, end) {
			return true
		}
	}
	return false
}
