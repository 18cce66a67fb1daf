// controllers/service.go
package controllers

import (
	"errors"
	"net/http"

	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateServiceInput defines the expected JSON structure for creating a service
type CreateServiceInput struct {
	Name            string          `json:"nome" binding:"required"`
	Description     string          `json:"descricao"`
	Price           decimal.Decimal `json:"preco" binding:"required"`
	DurationMinutes int             `json:"duracaoMinutos" binding:"required,min=1"`
}

// UpdateServiceInput defines the expected JSON structure for updating a service
type UpdateServiceInput struct {
	Name            *string          `json:"nome"`
	Description     *string          `json:"descricao"`
	Price           *decimal.Decimal `json:"preco"`
	DurationMinutes *int             `json:"duracaoMinutos" binding:"omitempty,min=1"`
	Active          *bool            `json:"ativo"`
}

// ListAllServices returns the full catalog, inactive services included
func (h *Handler) ListAllServices(c *gin.Context) {
	list, err := h.Repo.ListServices(c.Request.Context())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve services")
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateService adds a service to the catalog
func (h *Handler) CreateService(c *gin.Context) {
	var input CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Price.IsNegative() {
		utils.RespondWithError(c, http.StatusBadRequest, "preco must not be negative")
		return
	}

	service := models.Service{
		Name:            input.Name,
		Description:     input.Description,
		Price:           input.Price.Round(2),
		DurationMinutes: input.DurationMinutes,
		Active:          true,
	}
	if err := h.Repo.CreateService(c.Request.Context(), &service); err != nil {
		h.Logger.Error("Failed to create service", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create service")
		return
	}

	h.Catalog.Invalidate(c.Request.Context())
	c.JSON(http.StatusCreated, service)
}

// UpdateService changes price, duration or availability of a service.
// Existing appointments keep the values captured at booking time.
func (h *Handler) UpdateService(c *gin.Context) {
	id, ok := paramUUID(c, "id", "service")
	if !ok {
		return
	}
	var input UpdateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	service, err := h.Repo.GetService(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "Service not found")
		return
	}
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve service")
		return
	}

	if input.Name != nil {
		service.Name = *input.Name
	}
	if input.Description != nil {
		service.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			utils.RespondWithError(c, http.StatusBadRequest, "preco must not be negative")
			return
		}
		service.Price = input.Price.Round(2)
	}
	if input.DurationMinutes != nil {
		service.DurationMinutes = *input.DurationMinutes
	}
	if input.Active != nil {
		service.Active = *input.Active
	}

	if err := h.Repo.UpdateService(c.Request.Context(), service); err != nil {
		h.Logger.Error("Failed to update service", zap.Stringer("serviceId", id), zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update service")
		return
	}

	h.Catalog.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, service)
}
