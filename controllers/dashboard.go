package controllers

import (
	"net/http"
	"time"

	"barbershop-backend/models"
	"barbershop-backend/repository"
	"barbershop-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type DashboardOverview struct {
	Date                 string               `json:"date"`
	TodayAppointments    int                  `json:"todayAppointments"`
	TodayByStatus        map[string]int       `json:"todayByStatus"`
	TodayExpectedRevenue decimal.Decimal      `json:"todayExpectedRevenue"`
	TodayCovered         int                  `json:"todayCoveredBySubscription"`
	PendingCommissions   decimal.Decimal      `json:"pendingCommissions"`
	Upcoming             []models.Appointment `json:"upcoming"`
}

const dashboardUpcoming = 5

// GetDashboardOverview summarises today's agenda for staff
func (h *Handler) GetDashboardOverview(c *gin.Context) {
	ctx := c.Request.Context()
	now := h.now().In(h.Settings.TimeZone())
	start, end := utils.DayRange(now)

	today, err := h.Repo.ListAppointments(ctx, repository.AppointmentFilter{From: &start, To: &end})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load agenda")
		return
	}

	overview := DashboardOverview{
		Date:                 start.Format(utils.DateLayout),
		TodayByStatus:        map[string]int{},
		TodayExpectedRevenue: decimal.Zero,
		PendingCommissions:   decimal.Zero,
		Upcoming:             []models.Appointment{},
	}
	for _, a := range today {
		overview.TodayByStatus[string(a.Status)]++
		if a.Status == models.StatusCancelled {
			continue
		}
		overview.TodayAppointments++
		overview.TodayExpectedRevenue = overview.TodayExpectedRevenue.Add(a.ValorCobrado)
		if a.CobertoAssinatura {
			overview.TodayCovered++
		}
		if a.Status == models.StatusScheduled && a.StartsAt.After(now) && len(overview.Upcoming) < dashboardUpcoming {
			overview.Upcoming = append(overview.Upcoming, a)
		}
	}

	unpaid := false
	totals, err := h.Commissions.Summary(ctx, repository.CommissionFilter{Paid: &unpaid})
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	for _, t := range totals {
		overview.PendingCommissions = overview.PendingCommissions.Add(t.Pending)
	}

	c.JSON(http.StatusOK, overview)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
