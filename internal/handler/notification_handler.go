package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csi-attendance-api/internal/models"
	"github.com/noah-isme/csi-attendance-api/internal/service"
	"github.com/noah-isme/csi-attendance-api/pkg/response"
)

// NotificationHandler exposes push delivery and the per-user inbox.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Send godoc
// @Summary Send a notification to one user
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.SendNotificationRequest true "Notification"
// @Success 201 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /notifications [post]
func (h *NotificationHandler) Send(c *gin.Context) {
	var req service.SendNotificationRequest
	if !bindJSON(c, &req) {
		return
	}
	notification, err := h.service.Send(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notification)
}

// Broadcast godoc
// @Summary Notify every student of a class
// @Tags Notifications
// @Accept json
// @Produce json
// @Param classId path string true "Class ID"
// @Param payload body service.BroadcastRequest true "Notification"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/broadcast/{classId} [post]
func (h *NotificationHandler) Broadcast(c *gin.Context) {
	var req service.BroadcastRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Broadcast(c.Request.Context(), c.Param("classId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List a user's notifications
// @Tags Notifications
// @Produce json
// @Param userId path string true "User ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications/users/{userId} [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), c.Param("userId"), queryInt(c, "page", 1), queryInt(c, "limit", models.DefaultNotificationLimit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if !bindOptionalJSON(c, &req) {
		return
	}
	notification, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), issuerFrom(c, req.UserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notification, nil)
}
