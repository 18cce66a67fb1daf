// controllers/admin.go
package controllers

import (
	"net/http"
	"strings"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CompleteAppointmentInput struct {
	PaymentMethod string `json:"metodoPagamento"`
}

type CreateBlockedSlotInput struct {
	ProfessionalID *string   `json:"profissionalId" binding:"omitempty,uuid"`
	StartsAt       time.Time `json:"dataInicio" binding:"required"`
	EndsAt         time.Time `json:"dataFim" binding:"required"`
	Reason         string    `json:"motivo"`
}

// GetAgenda lists appointments for staff. Filters: professionalId, date or
// from/to (YYYY-MM-DD, to inclusive), status (comma separated).
func (h *Handler) GetAgenda(c *gin.Context) {
	var filter repository.AppointmentFilter
	if raw := c.Query("professionalId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid professional ID format")
			return
		}
		filter.ProfessionalID = &id
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}
	filter.From, filter.To = from, to
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, models.AppointmentStatus(strings.TrimSpace(s)))
		}
	}

	appts, err := h.Repo.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appts)
}

func (h *Handler) StartAppointment(c *gin.Context) {
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}
	appt, err := h.Lifecycle.Start(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// CompleteAppointment closes the visit and records the commission
func (h *Handler) CompleteAppointment(c *gin.Context) {
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}
	var input CompleteAppointmentInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}

	appt, commission, err := h.Lifecycle.Complete(c.Request.Context(), id, models.PaymentMethod(input.PaymentMethod))
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agendamento": appt, "comissao": commission})
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}
	appt, err := h.Lifecycle.MarkNoShow(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// StaffCancelAppointment cancels without the client lead-time window
func (h *Handler) StaffCancelAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}
	h.respondResult(c, h.Booking.Cancel(c.Request.Context(), id, actor), http.StatusOK)
}

// CreateBlockedSlot blocks a range for one professional, or the whole shop
// when no professional is given.
func (h *Handler) CreateBlockedSlot(c *gin.Context) {
	var input CreateBlockedSlotInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !input.StartsAt.Before(input.EndsAt) {
		utils.RespondWithError(c, http.StatusBadRequest, "dataInicio must be before dataFim")
		return
	}

	slot := models.BlockedSlot{
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		Reason:   input.Reason,
	}
	if input.ProfessionalID != nil {
		id := uuid.MustParse(*input.ProfessionalID)
		if _, err := h.Repo.GetProfessional(c.Request.Context(), id); err != nil {
			utils.RespondWithError(c, http.StatusNotFound, "Professional not found")
			return
		}
		slot.ProfessionalID = &id
	}

	if err := h.Repo.CreateBlockedSlot(c.Request.Context(), &slot); err != nil {
		h.Logger.Error("Failed to create blocked slot", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create blocked slot")
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// dateRange reads ?date or ?from/?to as local calendar days. Both bounds are
// nil when none is given.
func (h *Handler) dateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	loc := h.Settings.TimeZone()
	if raw := c.Query("date"); raw != "" {
		day, err := utils.ParseDate(raw, loc)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return nil, nil, false
		}
		start, end := utils.DayRange(day)
		return &start, &end, true
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		day, err := utils.ParseDate(raw, loc)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid from, expected YYYY-MM-DD")
			return nil, nil, false
		}
		from = &day
	}
	if raw := c.Query("to"); raw != "" {
		day, err := utils.ParseDate(raw, loc)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid to, expected YYYY-MM-DD")
			return nil, nil, false
		}
		_, end := utils.DayRange(day)
		to = &end
	}
	return from, to, true
}
