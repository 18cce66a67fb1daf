// controllers/catalog.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetServices lists the active services
func (h *Handler) GetServices(c *gin.Context) {
	list, err := h.Catalog.ActiveServices(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetProfessionals lists the active professionals
func (h *Handler) GetProfessionals(c *gin.Context) {
	list, err := h.Catalog.ActiveProfessionals(c.Request.Context())
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetSlots returns free start times for a professional on a day. The length
// comes from ?duration (minutes) or from ?serviceId.
func (h *Handler) GetSlots(c *gin.Context) {
	professionalID, ok := paramUUID(c, "id", "professional")
	if !ok {
		return
	}
	date, err := utils.ParseDate(c.Query("date"), h.Settings.TimeZone())
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	duration, ok := h.slotDuration(c)
	if !ok {
		return
	}

	slots, err := h.Availability.AvailableSlots(c.Request.Context(), professionalID, date, duration)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     date.Format(utils.DateLayout),
		"duration": duration,
		"slots":    slots,
	})
}

func (h *Handler) slotDuration(c *gin.Context) (int, bool) {
	if raw := c.Query("duration"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid duration")
			return 0, false
		}
		return minutes, true
	}
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "duration or serviceId is required")
		return 0, false
	}
	service, err := h.Repo.GetService(c.Request.Context(), serviceID)
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return 0, false
	}
	return service.DurationMinutes, true
}

// GetPricing quotes a service for the caller at a given day and time
func (h *Handler) GetPricing(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(c.Query("serviceId"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid service ID format")
		return
	}
	clock := c.DefaultQuery("time", "00:00")
	at, err := utils.ParseDateTime(c.Query("date"), clock, h.Settings.TimeZone())
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid date or time")
		return
	}

	result, err := h.Pricing.Price(c.Request.Context(), actor.UserID, serviceID, at)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCancellationPolicy tells whether a booking starting at ?start could
// still be cancelled now.
func (h *Handler) GetCancellationPolicy(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid start, expected RFC3339")
		return
	}
	c.JSON(http.StatusOK, h.Policy.CanCancelAt(start))
}
