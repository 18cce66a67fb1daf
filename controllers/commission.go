// controllers/commission.go
package controllers

import (
	"net/http"
	"strconv"

	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) commissionFilter(c *gin.Context) (repository.CommissionFilter, bool) {
	var filter repository.CommissionFilter
	if raw := c.Query("professionalId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid professional ID format")
			return filter, false
		}
		filter.ProfessionalID = &id
	}
	if raw := c.Query("paid"); raw != "" {
		paid, err := strconv.ParseBool(raw)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid paid flag")
			return filter, false
		}
		filter.Paid = &paid
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return filter, false
	}
	filter.From, filter.To = from, to
	return filter, true
}

func (h *Handler) GetCommissions(c *gin.Context) {
	filter, ok := h.commissionFilter(c)
	if !ok {
		return
	}
	list, err := h.Commissions.List(c.Request.Context(), filter)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetCommissionSummary totals pending and paid commission per professional
func (h *Handler) GetCommissionSummary(c *gin.Context) {
	filter, ok := h.commissionFilter(c)
	if !ok {
		return
	}
	totals, err := h.Commissions.Summary(c.Request.Context(), filter)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

func (h *Handler) PayCommission(c *gin.Context) {
	id, ok := paramUUID(c, "id", "commission")
	if !ok {
		return
	}
	commission, err := h.Commissions.MarkPaid(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, commission)
}
