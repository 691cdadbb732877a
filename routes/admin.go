package routes

import (
	"github.com/mudassar003/forher-sub003/handlers/admin"
	"github.com/mudassar003/forher-sub003/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine, h *admin.Handler) {
	adminRoutes := r.Group("/admin/subscriptions")
	adminRoutes.Use(middleware.AdminAuth())
	{
		adminRoutes.POST("/update-status", h.UpdateStatus)
		adminRoutes.POST("/update-appointment-time", h.UpdateAppointmentTime)
		adminRoutes.POST("/cancel", h.Cancel)
		adminRoutes.POST("/:subscriptionId/reconcile", h.Reconcile)
	}
}
