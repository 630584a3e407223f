package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"misa/internal/models"
	"misa/internal/services"
)

// DashboardHandler serves the monthly report.
type DashboardHandler struct {
	dashboardService services.DashboardServicer
	now              func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService services.DashboardServicer) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, now: time.Now}
}

// GetDashboard returns the report for one month
// @Summary     Monthly dashboard
// @Description Budget vs actual, projection and alert, distribution by category and payment method, cumulative curve and ant expenses. Defaults to the current month.
// @Tags        dashboard
// @Produce     json
// @Security    BearerAuth
// @Param       year          query int    false "Year"
// @Param       month         query int    false "Month (1-12)"
// @Param       ant_threshold query number false "Amount below which a purchase is an ant expense"
// @Success     200 {object} analytics.Report
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	period, _, err := parsePeriod(c, models.PeriodOf(h.now()))
	if err != nil {
		respondWithError(c, err)
		return
	}
	threshold, err := parseDecimalQuery(c, "ant_threshold")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.dashboardService.GetReport(c.Request.Context(), username, period, threshold)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
