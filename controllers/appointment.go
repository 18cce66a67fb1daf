// controllers/appointment.go
package controllers

import (
	"net/http"

	"barbershop-backend/repository"
	"barbershop-backend/services"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateAppointmentInput defines the expected JSON structure for booking
type CreateAppointmentInput struct {
	ProfessionalID string `json:"profissionalId" binding:"required,uuid"`
	ServiceID      string `json:"servicoId" binding:"required,uuid"`
	Date           string `json:"data" binding:"required"`
	Time           string `json:"horario" binding:"required"`
	Notes          string `json:"observacoes" binding:"max=500"`
}

// CreateAppointment books a slot for the authenticated client
func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input CreateAppointmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	res := h.Booking.Create(c.Request.Context(), services.BookingRequest{
		ClientID:       actor.UserID,
		ProfessionalID: uuid.MustParse(input.ProfessionalID),
		ServiceID:      uuid.MustParse(input.ServiceID),
		Date:           input.Date,
		Time:           input.Time,
		Notes:          input.Notes,
	})
	h.respondResult(c, res, http.StatusCreated)
}

// GetMyAppointments lists the caller's appointments, soonest first
func (h *Handler) GetMyAppointments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	appts, err := h.Repo.ListAppointments(c.Request.Context(), repository.AppointmentFilter{ClientID: &actor.UserID})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve appointments")
		return
	}
	c.JSON(http.StatusOK, appts)
}

// CancelAppointment cancels one of the caller's appointments
func (h *Handler) CancelAppointment(c *gin.Context) {
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

// CreateAppointmentCheckout starts an online payment for a pending booking
func (h *Handler) CreateAppointmentCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id", "appointment")
	if !ok {
		return
	}
	checkout, err := h.Billing.CreateAppointmentCheckout(c.Request.Context(), id, actor.UserID)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}
