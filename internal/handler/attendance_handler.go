package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

// AttendanceHandler exposes check-in and manual status endpoints.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// CheckIn godoc
// @Summary Record a student check-in
// @Description Creates a present record unless one already exists; existing records are returned unchanged.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.CheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req service.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	record, created, err := h.service.CheckIn(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, record, nil)
}

// SetStatus godoc
// @Summary Set a student's attendance status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/attendance/{studentId} [put]
func (h *AttendanceHandler) SetStatus(c *gin.Context) {
	var req service.SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IssuerID = issuerFrom(c, req.IssuerID)
	record, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// GetStatus godoc
// @Summary Effective attendance status of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/attendance/{studentId} [get]
func (h *AttendanceHandler) GetStatus(c *gin.Context) {
	view, err := h.service.GetStatus(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
