// controllers/webhook.go
package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"barbershop-backend/gateway"
	"barbershop-backend/services"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookNotification is the Mercado Pago notification body.
type WebhookNotification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// dataID accepts both "123" and 123.
func (n WebhookNotification) dataID() string {
	raw := strings.TrimSpace(string(n.Data.ID))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(n.Data.ID, &s); err == nil {
		return s
	}
	return raw
}

// MercadoPagoWebhook receives gateway notifications, fetches the referenced
// resource and hands it to the reconciler. Non-2xx answers make the gateway
// retry.
func (h *Handler) MercadoPagoWebhook(c *gin.Context) {
	var note WebhookNotification
	body, err := c.GetRawData()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid body")
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &note); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid notification payload")
			return
		}
	}

	kind := note.Type
	if kind == "" {
		kind = c.Query("type")
	}
	if kind == "" {
		kind = c.Query("topic")
	}
	id := c.Query("data.id")
	if id == "" {
		id = note.dataID()
	}
	if id == "" {
		id = c.Query("id")
	}
	if kind == "" || id == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Notification type and data.id are required")
		return
	}

	if h.WebhookSecret != "" {
		if err := gateway.VerifySignatureAt(h.WebhookSecret, c.GetHeader("x-signature"), c.GetHeader("x-request-id"), id, h.now(), h.WebhookTolerance); err != nil {
			h.Logger.Warn("Rejected webhook signature", zap.String("type", kind), zap.String("dataId", id), zap.Error(err))
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid signature")
			return
		}
	}

	switch kind {
	case "payment":
		h.handlePayment(c, id)
	case "subscription_preapproval", "preapproval":
		h.handleSubscription(c, id)
	default:
		h.Logger.Debug("Ignoring webhook type", zap.String("type", kind), zap.String("action", note.Action))
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": true})
	}
}

func (h *Handler) handlePayment(c *gin.Context, id string) {
	if h.Gateway == nil {
		utils.RespondWithError(c, http.StatusBadGateway, gateway.ErrNotConfigured.Error())
		return
	}
	detail, err := h.Gateway.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("Failed to fetch payment", zap.String("paymentId", id), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to fetch payment")
		return
	}

	err = h.Reconciler.ProcessPaymentNotification(c.Request.Context(), services.PaymentNotification{
		Reference:         detail.ExternalReference,
		GatewayStatus:     detail.Status,
		Amount:            detail.Amount,
		Method:            detail.Method,
		ExternalPaymentID: detail.ID,
		UpdatedAt:         detail.UpdatedAt,
		Payload:           detail.Raw,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) handleSubscription(c *gin.Context, id string) {
	if h.Gateway == nil {
		utils.RespondWithError(c, http.StatusBadGateway, gateway.ErrNotConfigured.Error())
		return
	}
	detail, err := h.Gateway.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("Failed to fetch subscription", zap.String("subscriptionId", id), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to fetch subscription")
		return
	}

	err = h.Reconciler.ProcessSubscriptionNotification(c.Request.Context(), services.SubscriptionNotification{
		Reference:              detail.ExternalReference,
		GatewayStatus:          detail.Status,
		ExternalSubscriptionID: detail.ID,
		UpdatedAt:              detail.UpdatedAt,
	})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
