package services

import (
	"time"

	"github.com/shopspring/decimal"
)

type CommissionBasis string

const (
	// BasisCharged applies the rate to valor_cobrado (zero for covered visits).
	BasisCharged CommissionBasis = "charged"
	// BasisList applies the rate to valor_servico.
	BasisList CommissionBasis = "list"
)

// Settings holds the scheduling knobs shared by the core services.
type Settings struct {
	Location                 *time.Location
	SlotGranularity          time.Duration
	MinimumBookingLead       time.Duration
	CancellationLead         time.Duration
	DefaultCommissionPercent decimal.Decimal
	CommissionBasis          CommissionBasis
	BillingPeriod            time.Duration
	SubscriptionGrace        time.Duration
	Currency                 string
}

func DefaultSettings() Settings {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.UTC
	}
	return Settings{
		Location:                 loc,
		SlotGranularity:          30 * time.Minute,
		CancellationLead:         4 * time.Hour,
		DefaultCommissionPercent: decimal.NewFromInt(50),
		CommissionBasis:          BasisCharged,
		BillingPeriod:            30 * 24 * time.Hour,
		SubscriptionGrace:        3 * 24 * time.Hour,
		Currency:                 "BRL",
	}
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Clock returns the current instant; tests inject a fixed one.
type Clock func() time.Time

// TimeZone is the shop's local zone; UTC when unset.
func (s Settings) TimeZone() *time.Location {
	return s.location()
}
