package config

import (
	"fmt"
	"log"
	"time"

	"barbershop-backend/services"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	Port      string `mapstructure:"PORT"`
	Env       string `mapstructure:"APP_ENV"`
	DBURL     string `mapstructure:"DB_URL"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// Scheduling.
	Timezone                 string  `mapstructure:"TIMEZONE"`
	SlotGranularityMinutes   int     `mapstructure:"SLOT_GRANULARITY_MINUTES"`
	MinBookingLeadMinutes    int     `mapstructure:"MIN_BOOKING_LEAD_MINUTES"`
	CancellationLeadHours    int     `mapstructure:"CANCELLATION_LEAD_HOURS"`
	DefaultCommissionPercent float64 `mapstructure:"DEFAULT_COMMISSION_PERCENT"`
	CommissionBasis          string  `mapstructure:"COMMISSION_BASIS"`
	SubscriptionBillingDays  int     `mapstructure:"SUBSCRIPTION_BILLING_DAYS"`
	SubscriptionGraceDays    int     `mapstructure:"SUBSCRIPTION_GRACE_DAYS"`
	Currency                 string  `mapstructure:"CURRENCY"`

	// Redis catalog cache.
	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	CatalogCacheTTL time.Duration `mapstructure:"CATALOG_CACHE_TTL"`

	// RabbitMQ domain events.
	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	// Mercado Pago.
	MPAccessToken             string        `mapstructure:"MP_ACCESS_TOKEN"`
	MPWebhookSecret           string        `mapstructure:"MP_WEBHOOK_SECRET"`
	WebhookSignatureTolerance time.Duration `mapstructure:"WEBHOOK_SIGNATURE_TOLERANCE"`
	PublicBaseURL             string        `mapstructure:"PUBLIC_BASE_URL"`

	// Twilio reminders.
	TwilioAccountSID     string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken      string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber    string `mapstructure:"TWILIO_PHONE_NUMBER"`
	TwilioWhatsAppNumber string `mapstructure:"TWILIO_WHATSAPP_NUMBER"`
	ReminderCron         string `mapstructure:"REMINDER_CRON"`
	ReminderLeadHours    int    `mapstructure:"REMINDER_LEAD_HOURS"`
	ExpiryCron           string `mapstructure:"EXPIRY_CRON"`

	CORSOrigins          []string `mapstructure:"CORS_ORIGINS"`
	WebhookRatePerMinute int      `mapstructure:"WEBHOOK_RATE_PER_MINUTE"`
	BookingRatePerMinute int      `mapstructure:"BOOKING_RATE_PER_MINUTE"`
}

var AppConfig Config

var defaults = map[string]any{
	"PORT":                        "8080",
	"APP_ENV":                     "development",
	"TIMEZONE":                    "America/Sao_Paulo",
	"SLOT_GRANULARITY_MINUTES":    30,
	"MIN_BOOKING_LEAD_MINUTES":    0,
	"CANCELLATION_LEAD_HOURS":     4,
	"DEFAULT_COMMISSION_PERCENT":  50,
	"COMMISSION_BASIS":            string(services.BasisCharged),
	"SUBSCRIPTION_BILLING_DAYS":   30,
	"SUBSCRIPTION_GRACE_DAYS":     3,
	"CURRENCY":                    "BRL",
	"REDIS_ADDR":                  "",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"CATALOG_CACHE_TTL":           "5m",
	"AMQP_URL":                    "",
	"EVENTS_EXCHANGE":             "barbershop.events",
	"DB_URL":                      "",
	"JWT_SECRET":                  "",
	"MP_ACCESS_TOKEN":             "",
	"MP_WEBHOOK_SECRET":           "",
	"WEBHOOK_SIGNATURE_TOLERANCE": "10m",
	"PUBLIC_BASE_URL":             "",
	"TWILIO_ACCOUNT_SID":          "",
	"TWILIO_AUTH_TOKEN":           "",
	"TWILIO_PHONE_NUMBER":         "",
	"TWILIO_WHATSAPP_NUMBER":      "",
	"REMINDER_CRON":               "0 * * * *",
	"REMINDER_LEAD_HOURS":         24,
	"EXPIRY_CRON":                 "30 3 * * *",
	"CORS_ORIGINS":                "http://localhost:3000",
	"WEBHOOK_RATE_PER_MINUTE":     120,
	"BOOKING_RATE_PER_MINUTE":     30,
}

// LoadConfig reads .env (if any), then the environment, into AppConfig.
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func (c Config) validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SlotGranularityMinutes <= 0 {
		return fmt.Errorf("SLOT_GRANULARITY_MINUTES must be positive")
	}
	switch services.CommissionBasis(c.CommissionBasis) {
	case services.BasisCharged, services.BasisList:
	default:
		return fmt.Errorf("COMMISSION_BASIS must be %q or %q", services.BasisCharged, services.BasisList)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Scheduling converts the raw values into the settings the services use.
func (c Config) Scheduling() (services.Settings, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return services.Settings{}, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return services.Settings{
		Location:                 loc,
		SlotGranularity:          time.Duration(c.SlotGranularityMinutes) * time.Minute,
		MinimumBookingLead:       time.Duration(c.MinBookingLeadMinutes) * time.Minute,
		CancellationLead:         time.Duration(c.CancellationLeadHours) * time.Hour,
		DefaultCommissionPercent: decimal.NewFromFloat(c.DefaultCommissionPercent),
		CommissionBasis:          services.CommissionBasis(c.CommissionBasis),
		BillingPeriod:            time.Duration(c.SubscriptionBillingDays) * 24 * time.Hour,
		SubscriptionGrace:        time.Duration(c.SubscriptionGraceDays) * 24 * time.Hour,
		Currency:                 c.Currency,
	}, nil
}
