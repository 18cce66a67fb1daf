// controllers/subscription.go
package controllers

import (
	"net/http"

	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubscribeInput struct {
	PlanID     string `json:"planoId" binding:"required,uuid"`
	PayerEmail string `json:"email" binding:"omitempty,email"`
}

// Subscribe starts the gateway checkout for a plan; the subscription becomes
// ativa once the gateway notifies authorization.
func (h *Handler) Subscribe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input SubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	checkout, err := h.Billing.Subscribe(c.Request.Context(), actor.UserID, uuid.MustParse(input.PlanID), input.PayerEmail)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) CancelSubscription(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	sub, err := h.Billing.CancelSubscription(c.Request.Context(), actor.UserID)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
