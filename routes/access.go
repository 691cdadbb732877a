package routes

import (
	"github.com/mudassar003/forher-sub003/handlers/access"
	"github.com/mudassar003/forher-sub003/middleware"

	"github.com/gin-gonic/gin"
)

func AccessRoutes(r *gin.Engine, h *access.Handler) {
	accessRoutes := r.Group("/appointment-access")
	accessRoutes.Use(middleware.JWTAuth())
	{
		accessRoutes.POST("", h.RequestAccess)
		accessRoutes.GET("", h.GetAccessStatus)
	}
}
