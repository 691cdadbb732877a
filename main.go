package main

import (
	"log"
	"os"

	"github.com/mudassar003/forher-sub003/db"
	_ "github.com/mudassar003/forher-sub003/docs"
	"github.com/mudassar003/forher-sub003/handlers/access"
	"github.com/mudassar003/forher-sub003/handlers/admin"
	sanitywh "github.com/mudassar003/forher-sub003/handlers/sanity"
	stripewh "github.com/mudassar003/forher-sub003/handlers/stripe"
	"github.com/mudassar003/forher-sub003/handlers/subscriptions"
	"github.com/mudassar003/forher-sub003/routes"
	"github.com/mudassar003/forher-sub003/sanity"
	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title Subscription & Appointment Access API
// @version 1.0
// @description Subscription lifecycle, appointment-access gating and CMS mirror reconciliation.
// @host localhost:8080
// @BasePath /
// @SecurityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter the JWT with the Bearer prefix: Bearer <JWT>
func main() {
	gin.SetMode(gin.ReleaseMode)

	if err := godotenv.Load(); err != nil {
		utils.LogInfo("No .env file found, using the system environment")
	}

	database, err := db.Connect()
	if err != nil {
		log.Fatal("Could not initialize the database: ", err)
	}

	// All clients are constructed here and injected; no package owns a global.
	var mirror services.MirrorClient
	sanityClient, err := sanity.NewClientFromEnv()
	if err != nil {
		utils.LogError(err, "Sanity is not configured, mirror writes will be reported as failed")
		mirror = services.NoMirror()
	} else {
		mirror = sanityClient
	}

	billing := services.NewStripeBilling(os.Getenv("STRIPE_SECRET_KEY"))

	accessService := services.NewAccessService(database)
	subscriptionService := services.NewSubscriptionService(database, billing, mirror)
	cascadeService := services.NewCascadeService(database)

	r := routes.SetupRouter(routes.Handlers{
		Access:        access.NewHandler(accessService),
		Subscriptions: subscriptions.NewHandler(subscriptionService),
		Admin:         admin.NewHandler(subscriptionService, accessService),
		StripeWebhook: stripewh.NewWebhookHandler(subscriptionService),
		SanityWebhook: sanitywh.NewWebhookHandler(cascadeService),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Error starting the server: ", err)
	}
}
