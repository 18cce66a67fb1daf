package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barbershop-backend/config"
	"barbershop-backend/controllers"
	"barbershop-backend/events"
	"barbershop-backend/gateway"
	"barbershop-backend/repository"
	"barbershop-backend/routes"
	"barbershop-backend/services"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("main: %v", err)
	}
	cfg := config.AppConfig

	logger, err := config.InitLogger(cfg.IsProduction())
	if err != nil {
		log.Fatalf("main: init logger: %v", err)
	}
	defer logger.Sync()
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	settings, err := cfg.Scheduling()
	if err != nil {
		logger.Fatal("Invalid scheduling settings", zap.Error(err))
	}

	db, err := config.ConnectDB(cfg.DBURL, logger)
	if err != nil {
		logger.Fatal("Database unavailable", zap.Error(err))
	}
	if err := config.Migrate(db); err != nil {
		logger.Fatal("Migration failed", zap.Error(err))
	}
	repo := repository.NewPostgres(db)

	var cache utils.CatalogCache = utils.NopCache{}
	if rdb := config.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		cache = utils.NewRedisCache(rdb, "barbershop:catalog:")
		logger.Info("Catalog cache enabled", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("Catalog cache disabled")
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		rp, err := events.NewRabbitPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			logger.Warn("Event publishing disabled", zap.Error(err))
		} else {
			publisher = rp
		}
	}
	defer publisher.Close()

	var gw gateway.Client
	if cfg.MPAccessToken != "" {
		mp, err := gateway.NewMercadoPago(gateway.MercadoPagoOptions{
			AccessToken:   cfg.MPAccessToken,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			logger.Fatal("Mercado Pago client", zap.Error(err))
		}
		gw = mp
	} else {
		logger.Warn("Mercado Pago not configured; payments disabled")
	}

	availability := services.NewAvailabilityCalculator(repo, settings, nil, logger)
	pricing := services.NewPricingEngine(repo, settings)
	policy := services.NewCancellationPolicy(settings.CancellationLead, nil)
	commissions := services.NewCommissionCalculator(repo, settings, publisher, nil, logger)

	var sender services.MessageSender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		sender = services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	}
	reminders := services.NewReminderService(repo, sender, services.ReminderOptions{
		Schedule:       cfg.ReminderCron,
		Lead:           time.Duration(cfg.ReminderLeadHours) * time.Hour,
		SMSNumber:      cfg.TwilioPhoneNumber,
		WhatsAppNumber: cfg.TwilioWhatsAppNumber,
	}, settings, nil, logger)

	handler := &controllers.Handler{
		Repo:             repo,
		Catalog:          services.NewCatalogService(repo, cache, cfg.CatalogCacheTTL, logger),
		Availability:     availability,
		Pricing:          pricing,
		Policy:           policy,
		Booking:          services.NewBookingCoordinator(repo, availability, pricing, policy, publisher, settings, nil, logger),
		Lifecycle:        services.NewAppointmentLifecycle(repo, commissions, publisher, logger),
		Commissions:      commissions,
		Reconciler:       services.NewPaymentReconciler(repo, settings, publisher, nil, logger),
		Billing:          services.NewBillingService(repo, gw, settings, nil, logger),
		Reminders:        reminders,
		Gateway:          gw,
		WebhookSecret:    cfg.MPWebhookSecret,
		WebhookTolerance: cfg.WebhookSignatureTolerance,
		Settings:         settings,
		Logger:           logger,
	}

	if err := reminders.StartScheduler(); err != nil {
		logger.Fatal("Reminder scheduler", zap.Error(err))
	}
	defer reminders.Stop()

	expiry := services.NewSubscriptionExpiryService(repo, cfg.ExpiryCron, settings, nil, logger)
	if err := expiry.StartScheduler(); err != nil {
		logger.Fatal("Expiry scheduler", zap.Error(err))
	}
	defer expiry.Stop()

	router := routes.SetupRouter(handler, routes.Options{
		CORSOrigins:          cfg.CORSOrigins,
		JWTSecret:            cfg.JWTSecret,
		WebhookRatePerMinute: cfg.WebhookRatePerMinute,
		BookingRatePerMinute: cfg.BookingRatePerMinute,
		Logger:               logger,
	})
	if !cfg.IsProduction() {
		printRoutes(router)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

func printRoutes(r *gin.Engine) {
	for _, route := range r.Routes() {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
