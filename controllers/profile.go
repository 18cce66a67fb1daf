package controllers

import (
	"errors"
	"net/http"

	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetProfile returns the caller's profile together with the active
// subscription, if any.
func (h *Handler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	profile, err := h.Repo.GetProfile(ctx, actor.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	response := gin.H{"profile": profile, "assinatura": nil}
	sub, err := h.Repo.GetActiveSubscription(ctx, actor.UserID)
	switch {
	case err == nil:
		response["assinatura"] = sub
	case !errors.Is(err, repository.ErrNotFound):
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve subscription")
		return
	}
	c.JSON(http.StatusOK, response)
}
