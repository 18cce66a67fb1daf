// controllers/reminder.go
package controllers

import (
	"net/http"
	"strconv"

	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetReminderLogs lists the latest reminder deliveries (default 50)
func (h *Handler) GetReminderLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
		return
	}
	logs, err := h.Repo.ListReminderLogs(c.Request.Context(), limit)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve reminder logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

// RunReminders triggers a reminder pass outside the cron schedule
func (h *Handler) RunReminders(c *gin.Context) {
	if h.Reminders == nil || !h.Reminders.Enabled() {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "Reminders are not configured")
		return
	}
	sent, err := h.Reminders.SendUpcomingReminders(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to send reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}
