package routes

import (
	"time"

	"github.com/mudassar003/forher-sub003/handlers/access"
	"github.com/mudassar003/forher-sub003/handlers/admin"
	sanitywh "github.com/mudassar003/forher-sub003/handlers/sanity"
	stripewh "github.com/mudassar003/forher-sub003/handlers/stripe"
	"github.com/mudassar003/forher-sub003/handlers/subscriptions"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers carries the constructed handler set into the router. Everything is
// injected; nothing here reaches for globals.
type Handlers struct {
	Access        *access.Handler
	Subscriptions *subscriptions.Handler
	Admin         *admin.Handler
	StripeWebhook *stripewh.WebhookHandler
	SanityWebhook *sanitywh.WebhookHandler
}

func SetupRouter(h Handlers) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	AccessRoutes(r, h.Access)
	SubscriptionRoutes(r, h.Subscriptions)
	AdminRoutes(r, h.Admin)
	WebhookRoutes(r, h.StripeWebhook, h.SanityWebhook)

	return r
}
