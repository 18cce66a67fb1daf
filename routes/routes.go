package routes

import (
	"net/http"

	"barbershop-backend/config"
	"barbershop-backend/controllers"
	"barbershop-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	CORSOrigins          []string
	JWTSecret            string
	WebhookRatePerMinute int
	BookingRatePerMinute int
	Logger               *zap.Logger
}

func SetupRouter(h *controllers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(config.Recovery(opts.Logger))

	// cors.New panics on an empty origin list; without origins only
	// same-origin callers are served.
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	} else {
		opts.Logger.Warn("CORS_ORIGINS is empty; cross-origin requests are not allowed")
	}

	r.Use(config.PerformanceLogger(opts.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhookLimiter := utils.NewIPRateLimiter(opts.WebhookRatePerMinute)
	bookingLimiter := utils.NewIPRateLimiter(opts.BookingRatePerMinute)

	api := r.Group("/api")
	{
		// Public catalog
		api.GET("/services", h.GetServices)
		api.GET("/professionals", h.GetProfessionals)
		api.GET("/professionals/:id/slots", h.GetSlots)
		api.GET("/cancellation-policy", h.GetCancellationPolicy)

		api.POST("/webhooks/mercadopago", webhookLimiter.Middleware(opts.Logger), h.MercadoPagoWebhook)
	}

	authed := api.Group("")
	authed.Use(utils.AuthMiddleware(opts.JWTSecret))
	{
		authed.GET("/me", h.GetProfile)
		authed.GET("/pricing", h.GetPricing)

		appointments := authed.Group("/appointments")
		{
			appointments.POST("", bookingLimiter.Middleware(opts.Logger), h.CreateAppointment)
			appointments.GET("/mine", h.GetMyAppointments)
			appointments.POST("/:id/cancel", h.CancelAppointment)
			appointments.POST("/:id/checkout", h.CreateAppointmentCheckout)
		}

		subscriptions := authed.Group("/subscriptions")
		{
			subscriptions.POST("", h.Subscribe)
			subscriptions.DELETE("/current", h.CancelSubscription)
		}
	}

	admin := authed.Group("/admin")
	admin.Use(utils.RequireStaff())
	{
		admin.GET("/dashboard", h.GetDashboardOverview)

		admin.GET("/appointments", h.GetAgenda)
		admin.POST("/appointments/:id/start", h.StartAppointment)
		admin.POST("/appointments/:id/complete", h.CompleteAppointment)
		admin.POST("/appointments/:id/no-show", h.MarkNoShow)
		admin.POST("/appointments/:id/cancel", h.StaffCancelAppointment)

		admin.POST("/blocked-slots", h.CreateBlockedSlot)

		admin.GET("/commissions", h.GetCommissions)
		admin.GET("/commissions/summary", h.GetCommissionSummary)
		admin.POST("/commissions/:id/pay", h.PayCommission)

		services := admin.Group("/services")
		{
			services.GET("", h.ListAllServices)
			services.POST("", h.CreateService)
			services.PUT("/:id", h.UpdateService)
		}

		admin.GET("/reminders", h.GetReminderLogs)
		admin.POST("/reminders/run", h.RunReminders)
	}

	return r
}
