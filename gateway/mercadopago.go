package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preapproval"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/shopspring/decimal"
)

type MercadoPagoOptions struct {
	AccessToken string
	// PublicBaseURL is used to build the notification and return URLs.
	PublicBaseURL string
}

type MercadoPago struct {
	payments     payment.Client
	preapprovals preapproval.Client
	preferences  preference.Client
	baseURL      string
}

func NewMercadoPago(opts MercadoPagoOptions) (*MercadoPago, error) {
	if opts.AccessToken == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := config.New(opts.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return &MercadoPago{
		payments:     payment.NewClient(cfg),
		preapprovals: preapproval.NewClient(cfg),
		preferences:  preference.NewClient(cfg),
		baseURL:      strings.TrimRight(opts.PublicBaseURL, "/"),
	}, nil
}

func (m *MercadoPago) GetPayment(ctx context.Context, id string) (*PaymentDetail, error) {
	numericID, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("invalid payment id %q: %w", id, err)
	}
	resource, err := m.payments.Get(ctx, numericID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", id, err)
	}
	raw, _ := json.Marshal(resource)
	return &PaymentDetail{
		ID:                strconv.Itoa(resource.ID),
		Status:            resource.Status,
		ExternalReference: resource.ExternalReference,
		Amount:            decimal.NewFromFloat(resource.TransactionAmount).Round(2),
		Method:            MapPaymentMethod(resource.PaymentMethodID, resource.PaymentTypeID),
		UpdatedAt:         resource.DateLastUpdated,
		Raw:               raw,
	}, nil
}

func (m *MercadoPago) GetSubscription(ctx context.Context, id string) (*SubscriptionDetail, error) {
	resource, err := m.preapprovals.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch preapproval %s: %w", id, err)
	}
	return &SubscriptionDetail{
		ID:                resource.ID,
		Status:            resource.Status,
		ExternalReference: resource.ExternalReference,
		UpdatedAt:         resource.LastModified,
	}, nil
}

func (m *MercadoPago) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	amount, _ := req.Amount.Float64()
	request := preference.Request{
		Items: []preference.ItemRequest{{
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  amount,
			CurrencyID: req.Currency,
		}},
		ExternalReference: req.Reference,
		NotificationURL:   m.baseURL + "/api/webhooks/mercadopago",
		BackURLs: &preference.BackURLsRequest{
			Success: m.baseURL + "/agendamentos?pagamento=sucesso",
			Failure: m.baseURL + "/agendamentos?pagamento=falha",
			Pending: m.baseURL + "/agendamentos?pagamento=pendente",
		},
		AutoReturn: "approved",
	}
	if req.PayerEmail != "" {
		request.Payer = &preference.PayerRequest{Email: req.PayerEmail}
	}
	resource, err := m.preferences.Create(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	return &Checkout{ID: resource.ID, URL: resource.InitPoint}, nil
}

func (m *MercadoPago) CreateSubscription(ctx context.Context, req SubscriptionRequest) (*Checkout, error) {
	amount, _ := req.Amount.Float64()
	frequency, frequencyType := 1, "months"
	if req.BillingDays > 0 && req.BillingDays != 30 {
		frequency, frequencyType = req.BillingDays, "days"
	}
	resource, err := m.preapprovals.Create(ctx, preapproval.Request{
		Reason:            req.Reason,
		ExternalReference: req.Reference,
		PayerEmail:        req.PayerEmail,
		BackURL:           m.baseURL + "/assinatura",
		AutoRecurring: &preapproval.AutoRecurringRequest{
			Frequency:         frequency,
			FrequencyType:     frequencyType,
			TransactionAmount: amount,
			CurrencyID:        req.Currency,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create preapproval: %w", err)
	}
	return &Checkout{ID: resource.ID, URL: resource.InitPoint}, nil
}

func (m *MercadoPago) CancelSubscription(ctx context.Context, id string) error {
	if _, err := m.preapprovals.Update(ctx, id, preapproval.UpdateRequest{Status: "cancelled"}); err != nil {
		return fmt.Errorf("cancel preapproval %s: %w", id, err)
	}
	return nil
}

var _ Client = (*MercadoPago)(nil)
