package routes

import (
	"github.com/mudassar003/forher-sub003/handlers/subscriptions"
	"github.com/mudassar003/forher-sub003/middleware"

	"github.com/gin-gonic/gin"
)

func SubscriptionRoutes(r *gin.Engine, h *subscriptions.Handler) {
	r.GET("/subscriptions", middleware.JWTAuth(), h.List)

	stripeRoutes := r.Group("/stripe/subscriptions")
	stripeRoutes.Use(middleware.JWTAuth())
	{
		stripeRoutes.POST("/cancel", h.Cancel)
		stripeRoutes.POST("/reactivate", h.Reactivate)
	}
}
