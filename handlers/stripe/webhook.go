package stripe

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type WebhookHandler struct {
	Subscriptions *services.SubscriptionService
}

func NewWebhookHandler(subscriptions *services.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{Subscriptions: subscriptions}
}

// Handle receives Stripe lifecycle events. Unknown event types are accepted
// and ignored so Stripe does not retry them.
func (h *WebhookHandler) Handle(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not read the request body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	if secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook secret not configured"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sig, secret)
	if err != nil {
		utils.LogError(err, "Stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stripe signature verification failed"})
		return
	}

	switch event.Type {
	case "invoice.payment_succeeded":
		h.handleInvoicePaymentSucceeded(c, event)
	case "customer.subscription.updated":
		h.handleSubscriptionUpdated(c, event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(c, event)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Event ignored"})
	}
}

// invoiceSubscriptionID digs the subscription id out of an invoice payload.
// Newer API versions nest it under parent.subscription_details.
func invoiceSubscriptionID(raw json.RawMessage) string {
	var invoice struct {
		Subscription string `json:"subscription"`
		Parent       struct {
			SubscriptionDetails struct {
				Subscription string `json:"subscription"`
			} `json:"subscription_details"`
		} `json:"parent"`
	}
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return ""
	}
	if invoice.Parent.SubscriptionDetails.Subscription != "" {
		return invoice.Parent.SubscriptionDetails.Subscription
	}
	return invoice.Subscription
}

func (h *WebhookHandler) handleInvoicePaymentSucceeded(c *gin.Context, event stripe.Event) {
	stripeSubID := invoiceSubscriptionID(event.Data.Raw)
	if stripeSubID == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Invoice without subscription, ignored"})
		return
	}

	var invoice struct {
		PeriodEnd int64 `json:"period_end"`
	}
	_ = json.Unmarshal(event.Data.Raw, &invoice)
	var periodEnd time.Time
	if invoice.PeriodEnd > 0 {
		periodEnd = time.Unix(invoice.PeriodEnd, 0)
	}

	result, err := h.Subscriptions.MarkPaymentSucceeded(stripeSubID, periodEnd)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "No local subscription for this invoice"})
			return
		}
		utils.LogError(err, "Error applying invoice.payment_succeeded")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error recording the payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment recorded", "mirrorSynced": result.MirrorSynced})
}

func (h *WebhookHandler) handleSubscriptionUpdated(c *gin.Context, event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing subscription"})
		return
	}

	sub, err := h.Subscriptions.FindByBillingID(stripeSub.ID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "No local subscription for this event"})
			return
		}
		utils.LogError(err, "Error loading subscription for billing event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading subscription"})
		return
	}

	remote := &services.BillingSubscription{
		ID:                stripeSub.ID,
		Status:            string(stripeSub.Status),
		CancelAtPeriodEnd: stripeSub.CancelAtPeriodEnd,
	}
	if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 {
		remote.CurrentPeriodEnd = time.Unix(stripeSub.Items.Data[0].CurrentPeriodEnd, 0)
	}

	result, err := h.Subscriptions.SyncFromBilling(sub, remote)
	if err != nil {
		utils.LogError(err, "Error syncing subscription from billing event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error syncing subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription synced", "changed": result.Changed, "mirrorSynced": result.MirrorSynced})
}

func (h *WebhookHandler) handleSubscriptionDeleted(c *gin.Context, event stripe.Event) {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error parsing subscription"})
		return
	}

	sub, err := h.Subscriptions.FindByBillingID(stripeSub.ID)
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "No local subscription for this event"})
			return
		}
		utils.LogError(err, "Error loading subscription for billing event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading subscription"})
		return
	}

	result, err := h.Subscriptions.ApplyStatusUpdate(sub.ID, models.SubscriptionCancelled, false)
	if err != nil {
		utils.LogError(err, "Error applying customer.subscription.deleted")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error cancelling subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription cancelled", "mirrorSynced": result.MirrorSynced})
}
