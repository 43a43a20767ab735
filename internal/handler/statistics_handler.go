package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

type statisticsService interface {
	ClassAttendanceStats(ctx context.Context, classID string, rng models.DateRange) (*models.ClassStats, error)
	StudentAttendanceStats(ctx context.Context, studentID string, classIDs []string, rng models.DateRange) (*models.StudentStats, error)
}

// StatisticsHandler serves attendance aggregates.
type StatisticsHandler struct {
	service statisticsService
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(svc statisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: svc}
}

// Class godoc
// @Summary Class attendance statistics
// @Description Defaults to the last month when no range is given.
// @Tags Statistics
// @Produce json
// @Param id path string true "Class ID"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /statistics/classes/{id}/attendance [get]
func (h *StatisticsHandler) Class(c *gin.Context) {
	rng, err := dateRange(c, service.ClassStatsLookbackMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.ClassAttendanceStats(c.Request.Context(), c.Param("id"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, rangeMeta(c, rng))
}

// Student godoc
// @Summary Student attendance statistics
// @Description Covers every enrolled class unless class_id is given. Defaults to the last three months.
// @Tags Statistics
// @Produce json
// @Param id path string true "Student ID"
// @Param class_id query []string false "Restrict to classes"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /statistics/students/{id}/attendance [get]
func (h *StatisticsHandler) Student(c *gin.Context) {
	rng, err := dateRange(c, service.StudentStatsLookbackMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	stats, err := h.service.StudentAttendanceStats(c.Request.Context(), c.Param("id"), queryList(c, "class_id"), rng)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, rangeMeta(c, rng))
}
