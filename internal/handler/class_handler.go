package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

// ClassHandler exposes class CRUD and roster endpoints.
type ClassHandler struct {
	service *service.ClassService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService) *ClassHandler {
	return &ClassHandler{service: svc}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param owner_id query string false "Filter by owning teacher"
// @Param student_id query string false "Filter by enrolled student"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	filter := models.ClassFilter{
		OwnerID:   c.Query("owner_id"),
		StudentID: c.Query("student_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
	}
	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if !bindJSON(c, &req) {
		return
	}
	req.OwnerID = issuerFrom(c, req.OwnerID)
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req struct {
		service.UpdateClassRequest
		IssuerID string `json:"issuer_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), issuerFrom(c, req.IssuerID), req.UpdateClassRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// AddStudents godoc
// @Summary Enroll students
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.AddStudentsRequest true "Student IDs"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [post]
func (h *ClassHandler) AddStudents(c *gin.Context) {
	var req struct {
		service.AddStudentsRequest
		IssuerID string `json:"issuer_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	change, err := h.service.AddStudents(c.Request.Context(), c.Param("id"), issuerFrom(c, req.IssuerID), req.AddStudentsRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, change, nil)
}

// RemoveStudent godoc
// @Summary Remove a student from the roster
// @Tags Classes
// @Param id path string true "Class ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/students/{studentId} [delete]
func (h *ClassHandler) RemoveStudent(c *gin.Context) {
	if err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), issuerFrom(c, c.Query("issuer_id")), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UpdateInactivityPolicy godoc
// @Summary Update class inactivity policy
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.InactivityPolicyRequest true "Policy"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/inactivity-policy [put]
func (h *ClassHandler) UpdateInactivityPolicy(c *gin.Context) {
	var req struct {
		service.InactivityPolicyRequest
		IssuerID string `json:"issuer_id"`
	}
	if !bindJSON(c, &req) {
		return
	}
	class, err := h.service.UpdateInactivityPolicy(c.Request.Context(), c.Param("id"), issuerFrom(c, req.IssuerID), req.InactivityPolicyRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}
