// Package gateway talks to the payment gateway (Mercado Pago).
package gateway

import (
	"context"
	"errors"
	"time"

	"barbershop-backend/models"

	"github.com/shopspring/decimal"
)

var ErrNotConfigured = errors.New("payment gateway not configured")

type PaymentDetail struct {
	ID                string
	Status            string
	ExternalReference string
	Amount            decimal.Decimal
	Method            models.PaymentMethod
	UpdatedAt         time.Time
	Raw               []byte
}

type SubscriptionDetail struct {
	ID                string
	Status            string
	ExternalReference string
	UpdatedAt         time.Time
}

type CheckoutRequest struct {
	Reference  string
	Title      string
	Amount     decimal.Decimal
	Currency   string
	PayerEmail string
}

type SubscriptionRequest struct {
	Reference   string
	Reason      string
	Amount      decimal.Decimal
	Currency    string
	PayerEmail  string
	BillingDays int
}

// Checkout is where the payer is sent to finish paying.
type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Client interface {
	GetPayment(ctx context.Context, id string) (*PaymentDetail, error)
	GetSubscription(ctx context.Context, id string) (*SubscriptionDetail, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Checkout, error)
	CancelSubscription(ctx context.Context, id string) error
}

// MapPaymentMethod converts gateway payment_method_id / payment_type_id into
// the local method enum.
func MapPaymentMethod(methodID, typeID string) models.PaymentMethod {
	if methodID == "pix" {
		return models.MethodPix
	}
	switch typeID {
	case "credit_card":
		return models.MethodCreditCard
	case "debit_card":
		return models.MethodDebitCard
	}
	return models.MethodMercadoPago
}
