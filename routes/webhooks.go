package routes

import (
	sanitywh "github.com/mudassar003/forher-sub003/handlers/sanity"
	stripewh "github.com/mudassar003/forher-sub003/handlers/stripe"

	"github.com/gin-gonic/gin"
)

// Webhooks authenticate with their own secrets, not user JWTs.
func WebhookRoutes(r *gin.Engine, stripeHandler *stripewh.WebhookHandler, sanityHandler *sanitywh.WebhookHandler) {
	r.POST("/stripe/webhook", stripeHandler.Handle)
	r.POST("/sanity/webhook", sanityHandler.Handle)
}
