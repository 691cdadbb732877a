package sanity

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
)

const secretHeader = "x-sanity-webhook-secret"

type WebhookHandler struct {
	Cascade *services.CascadeService
}

func NewWebhookHandler(cascade *services.CascadeService) *WebhookHandler {
	return &WebhookHandler{Cascade: cascade}
}

type webhookPayload struct {
	ID        string `json:"_id" binding:"required"`
	Type      string `json:"_type" binding:"required"`
	Operation string `json:"operation" binding:"required"`
}

// Handle receives Sanity document events. Only deletes act on the relational
// store; every other operation is acknowledged and ignored.
func (h *WebhookHandler) Handle(c *gin.Context) {
	secret := os.Getenv("SANITY_WEBHOOK_SECRET")
	if secret == "" {
		utils.LogError(nil, "SANITY_WEBHOOK_SECRET is not configured")
		utils.SendError(c, http.StatusInternalServerError, "Webhook secret not configured")
		return
	}

	provided := c.GetHeader(secretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		utils.LogError(nil, "Sanity webhook secret mismatch")
		utils.SendErrorCode(c, http.StatusUnauthorized, services.CodeWebhookAuthFailed, "Invalid webhook secret")
		return
	}

	var payload webhookPayload
	if !utils.ValidateRequestBody(c, &payload) {
		return
	}

	if payload.Operation != "delete" {
		c.JSON(http.StatusOK, gin.H{"message": "Operation ignored", "operation": payload.Operation})
		return
	}

	outcome, err := h.Cascade.OnExternalDelete(payload.Type, payload.ID)
	if err != nil {
		utils.LogError(err, "Error applying CMS deletion cascade")
		utils.SendError(c, http.StatusInternalServerError, "Error applying the deletion")
		return
	}

	if !outcome.Acted {
		c.JSON(http.StatusOK, gin.H{"message": "No action for document type " + payload.Type})
		return
	}

	utils.LogSuccess("CMS delete cascaded for document " + payload.ID)
	c.JSON(http.StatusOK, outcome)
}
