package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

type reportService interface {
	ClassReport(ctx context.Context, classID string, rng models.DateRange, format string) (*service.Report, error)
	StudentReport(ctx context.Context, studentID string, classIDs []string, rng models.DateRange, format string) (*service.Report, error)
}

// ReportHandler renders statistics as downloadable reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs a report handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// Class godoc
// @Summary Class attendance report
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Param format query string false "json, csv or pdf"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/classes/{id} [get]
func (h *ReportHandler) Class(c *gin.Context) {
	rng, err := dateRange(c, service.ClassStatsLookbackMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.ClassReport(c.Request.Context(), c.Param("id"), rng, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, report, rng)
}

// Student godoc
// @Summary Student attendance report
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param class_id query []string false "Restrict to classes"
// @Param format query string false "json, csv or pdf"
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/students/{id} [get]
func (h *ReportHandler) Student(c *gin.Context) {
	rng, err := dateRange(c, service.StudentStatsLookbackMonths)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.StudentReport(c.Request.Context(), c.Param("id"), queryList(c, "class_id"), rng, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReport(c, report, rng)
}

func writeReport(c *gin.Context, report *service.Report, rng models.DateRange) {
	if report.Format == service.ReportFormatJSON {
		response.JSON(c, http.StatusOK, report.Data, nil, rangeMeta(c, rng))
		return
	}
	response.Attachment(c, report.ContentType, report.Filename, report.Body)
}
