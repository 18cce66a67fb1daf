package controllers

import (
	"net/http"
	"time"

	"barbershop-backend/gateway"
	"barbershop-backend/repository"
	"barbershop-backend/services"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler exposes the scheduling services over HTTP.
type Handler struct {
	Repo             repository.Repository
	Catalog          *services.CatalogService
	Availability     *services.AvailabilityCalculator
	Pricing          *services.PricingEngine
	Policy           *services.CancellationPolicy
	Booking          *services.BookingCoordinator
	Lifecycle        *services.AppointmentLifecycle
	Commissions      *services.CommissionCalculator
	Reconciler       *services.PaymentReconciler
	Billing          *services.BillingService
	Reminders        *services.ReminderService
	Gateway          gateway.Client
	WebhookSecret    string
	// WebhookTolerance bounds the age of a signed notification; zero disables the check.
	WebhookTolerance time.Duration
	Settings         services.Settings
	Logger           *zap.Logger
	// Now defaults to time.Now.
	Now              services.Clock
}

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation:      http.StatusBadRequest,
	services.KindConflict:        http.StatusConflict,
	services.KindPolicyViolation: http.StatusUnprocessableEntity,
	services.KindNotFound:        http.StatusNotFound,
	services.KindExternalService: http.StatusBadGateway,
	services.KindPersistence:     http.StatusInternalServerError,
}

func httpStatus(err *services.Error) int {
	if code, ok := statusByKind[err.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// respondDomainError writes the user-facing message and reason code of err.
func (h *Handler) respondDomainError(c *gin.Context, err error) {
	derr := services.AsError(err)
	code := httpStatus(derr)
	if code >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("reasonCode", string(derr.Code)),
			zap.Error(derr))
	}
	c.AbortWithStatusJSON(code, gin.H{
		"success":    false,
		"error":      derr.Message,
		"reasonCode": derr.Code,
	})
}

func (h *Handler) respondResult(c *gin.Context, res services.Result, okStatus int) {
	if res.Success {
		c.JSON(okStatus, res)
		return
	}
	status := http.StatusInternalServerError
	if res.Err != nil {
		status = httpStatus(res.Err)
		if status >= http.StatusInternalServerError {
			h.Logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(res.Err))
		}
	}
	c.AbortWithStatusJSON(status, res)
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, role, ok := utils.CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return services.Actor{}, false
	}
	return services.Actor{UserID: userID, Role: role}, true
}

func paramUUID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}
