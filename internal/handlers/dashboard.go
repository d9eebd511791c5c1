package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lrs-tracker/config"
	"lrs-tracker/internal/dashboard"
	"lrs-tracker/internal/models"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves statement statistics for the whole system or
// for one LRS, depending on whether the route carries :lrsId.
type DashboardHandler struct {
	svc     *dashboard.Service
	timeout time.Duration
}

func NewDashboardHandler(svc *dashboard.Service, cfg *config.Config) *DashboardHandler {
	return &DashboardHandler{
		svc:     svc,
		timeout: cfg.QueryTimeout,
	}
}

func (h *DashboardHandler) scope(c *gin.Context) dashboard.Scope {
	return dashboard.ResolveScope(c.Param("lrsId"))
}

func (h *DashboardHandler) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// GetStats godoc
// @Summary Statement totals
// @Description Total statement count and average statements per active day
// @Tags dashboard
// @Security ApiKeyAuth
// @Produce json
// @Param lrsId path string false "LRS id (store routes only)"
// @Success 200 {object} models.StatsResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /stats [get]
// @Router /stores/{lrsId}/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	scope := h.scope(c)
	stats, err := h.svc.GetStats(ctx, scope)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{SummaryStats: stats, LrsID: scope.StoreID()})
}

// GetGraph godoc
// @Summary Daily statement series
// @Description One point per UTC day between start and end inclusive, with statement and distinct actor counts. Defaults to the last seven days.
// @Tags dashboard
// @Security ApiKeyAuth
// @Produce json
// @Param lrsId path string false "LRS id (store routes only)"
// @Param start query string false "First day, YYYY-MM-DD"
// @Param end query string false "Last day, YYYY-MM-DD"
// @Param format query string false "list or map" default(list)
// @Success 200 {object} models.GraphResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /graph [get]
// @Router /stores/{lrsId}/graph [get]
func (h *DashboardHandler) GetGraph(c *gin.Context) {
	start, err := parseDay(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "start must be a date in YYYY-MM-DD form",
		})
		return
	}
	end, err := parseDay(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "end must be a date in YYYY-MM-DD form",
		})
		return
	}

	format := c.DefaultQuery("format", "list")
	if format != "list" && format != "map" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "format must be list or map",
		})
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()

	scope := h.scope(c)
	graph, err := h.svc.GetGraphData(ctx, scope, start, end)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	first := graph.Range.Start.Format(models.DayFormat)
	last := graph.Range.End.Format(models.DayFormat)
	if format == "map" {
		c.JSON(http.StatusOK, models.GraphMapResponse{
			LrsID:  scope.StoreID(),
			Start:  first,
			End:    last,
			Points: graph.Series.ByDay(),
		})
		return
	}

	c.JSON(http.StatusOK, models.GraphResponse{
		LrsID:  scope.StoreID(),
		Start:  first,
		End:    last,
		Points: graph.Series.Points(),
	})
}

// GetActorCount godoc
// @Summary Distinct actors
// @Description Number of distinct actors, counted per identifier kind and summed
// @Tags dashboard
// @Security ApiKeyAuth
// @Produce json
// @Param lrsId path string false "LRS id (store routes only)"
// @Success 200 {object} models.ActorCountResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /actors [get]
// @Router /stores/{lrsId}/actors [get]
func (h *DashboardHandler) GetActorCount(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	scope := h.scope(c)
	n, err := h.svc.GetActorCount(ctx, scope)
	if err != nil {
		writeQueryError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ActorCountResponse{LrsID: scope.StoreID(), ActorCount: n})
}

// parseDay reads an optional YYYY-MM-DD query value as a UTC day.
func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DayFormat, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dashboard.ErrDeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{
			Error:   "timeout",
			Message: "Query did not complete in time",
		})
	case errors.Is(err, dashboard.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "store_unavailable",
			Message: "Statement store is unavailable",
		})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Failed to compute dashboard data",
		})
	}
}
