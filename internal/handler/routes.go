package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/csi-attendance-api/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Classes       *ClassHandler
	Sessions      *SessionHandler
	Attendance    *AttendanceHandler
	Statistics    *StatisticsHandler
	Reports       *ReportHandler
	Notifications *NotificationHandler
	Metrics       *MetricsHandler
}

// Register mounts every API route on api. Mutations are audited through logger.
func Register(api gin.IRouter, h Handlers, logger *zap.Logger) {
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(logger, action, resource)
	}

	classes := api.Group("/classes")
	classes.GET("", h.Classes.List)
	classes.POST("", audit("create", "class"), h.Classes.Create)
	classes.GET("/:id", h.Classes.Get)
	classes.PUT("/:id", audit("update", "class"), h.Classes.Update)
	classes.POST("/:id/students", audit("enroll", "class"), h.Classes.AddStudents)
	classes.DELETE("/:id/students/:studentId", audit("unenroll", "class"), h.Classes.RemoveStudent)
	classes.PUT("/:id/inactivity-policy", audit("update_policy", "class"), h.Classes.UpdateInactivityPolicy)
	classes.GET("/:id/sessions", h.Sessions.ListByClass)

	sessions := api.Group("/sessions")
	sessions.POST("", audit("start", "session"), h.Sessions.Start)
	sessions.GET("/:id", h.Sessions.Get)
	sessions.POST("/:id/end", audit("end", "session"), h.Sessions.End)
	sessions.GET("/:id/roster", h.Sessions.Roster)
	sessions.POST("/:id/check-in", h.Attendance.CheckIn)
	sessions.GET("/:id/attendance/:studentId", h.Attendance.GetStatus)
	sessions.PUT("/:id/attendance/:studentId", audit("set_status", "attendance"), h.Attendance.SetStatus)

	stats := api.Group("/statistics")
	stats.GET("/classes/:id/attendance", h.Statistics.Class)
	stats.GET("/students/:id/attendance", h.Statistics.Student)

	reports := api.Group("/reports")
	reports.GET("/classes/:id", h.Reports.Class)
	reports.GET("/students/:id", h.Reports.Student)

	notifications := api.Group("/notifications")
	notifications.POST("", audit("send", "notification"), h.Notifications.Send)
	notifications.POST("/broadcast/:classId", audit("broadcast", "notification"), h.Notifications.Broadcast)
	notifications.GET("/users/:userId", h.Notifications.List)
	notifications.PUT("/:id/read", h.Notifications.MarkRead)

	if h.Metrics != nil {
		api.GET("/system/metrics", h.Metrics.System)
	}
}
