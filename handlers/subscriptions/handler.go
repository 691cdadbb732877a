package subscriptions

import (
	"errors"
	"net/http"

	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	Subscriptions *services.SubscriptionService
}

func NewHandler(subscriptions *services.SubscriptionService) *Handler {
	return &Handler{Subscriptions: subscriptions}
}

type subscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required,uuid"`
}

func (h *Handler) authenticatedUser(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.SendErrorCode(c, http.StatusUnauthorized, services.CodeNotAuthenticated, "User not authenticated")
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		utils.SendErrorCode(c, http.StatusUnauthorized, services.CodeNotAuthenticated, "User not authenticated")
		return "", false
	}
	return id, true
}

// List returns the user's subscriptions, newest first.
// @Summary List the user's subscriptions
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.UserSubscription
// @Failure 401 {object} utils.Response
// @Router /subscriptions [get]
func (h *Handler) List(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	subs, err := h.Subscriptions.ListUserSubscriptions(userID)
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error fetching subscriptions")
		utils.SendError(c, http.StatusInternalServerError, "Error fetching subscriptions")
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Cancel schedules a cancel-at-period-end for a subscription the caller owns.
// Access persists through the already-paid period.
// @Summary Cancel a subscription at period end
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body subscriptionRequest true "Subscription to cancel"
// @Success 200 {object} services.StatusUpdateResult
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response "code: OWNERSHIP_MISMATCH"
// @Failure 404 {object} utils.Response
// @Failure 502 {object} utils.Response "code: BILLING_PROVIDER_FAILED"
// @Router /stripe/subscriptions/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	var req subscriptionRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	if _, err := h.Subscriptions.GetOwnedSubscription(req.SubscriptionID, userID); err != nil {
		h.sendOwnershipError(c, userID, err)
		return
	}

	result, err := h.Subscriptions.RequestCancellation(req.SubscriptionID, false)
	if err != nil {
		h.sendUpdateError(c, userID, err, "Error cancelling subscription")
		return
	}

	utils.LogSuccessWithUser(userID, "Subscription cancellation scheduled")
	c.JSON(http.StatusOK, result)
}

// Reactivate clears a pending cancellation on a subscription the caller owns.
// @Summary Reactivate a cancelling subscription
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body subscriptionRequest true "Subscription to reactivate"
// @Success 200 {object} services.StatusUpdateResult
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response "code: OWNERSHIP_MISMATCH"
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response "code: NOT_CANCELLING"
// @Failure 502 {object} utils.Response "code: BILLING_PROVIDER_FAILED"
// @Router /stripe/subscriptions/reactivate [post]
func (h *Handler) Reactivate(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	var req subscriptionRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	if _, err := uuid.Parse(req.SubscriptionID); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid subscription ID")
		return
	}

	if _, err := h.Subscriptions.GetOwnedSubscription(req.SubscriptionID, userID); err != nil {
		h.sendOwnershipError(c, userID, err)
		return
	}

	result, err := h.Subscriptions.Reactivate(req.SubscriptionID)
	if err != nil {
		if errors.Is(err, services.ErrNotCancelling) {
			utils.SendErrorCode(c, http.StatusConflict, services.CodeNotCancelling,
				"Only a subscription pending cancellation can be reactivated")
			return
		}
		h.sendUpdateError(c, userID, err, "Error reactivating subscription")
		return
	}

	utils.LogSuccessWithUser(userID, "Subscription reactivated")
	c.JSON(http.StatusOK, result)
}

func (h *Handler) sendOwnershipError(c *gin.Context, userID string, err error) {
	switch {
	case errors.Is(err, services.ErrSubscriptionNotFound):
		utils.SendError(c, http.StatusNotFound, "Subscription not found")
	case errors.Is(err, services.ErrOwnershipMismatch):
		utils.LogErrorWithUser(userID, nil, "Attempt to act on another user's subscription")
		utils.SendErrorCode(c, http.StatusForbidden, services.CodeOwnershipMismatch,
			"You are not authorized to manage this subscription")
	default:
		utils.LogErrorWithUser(userID, err, "Error loading subscription")
		utils.SendError(c, http.StatusInternalServerError, "Error loading subscription")
	}
}

func (h *Handler) sendUpdateError(c *gin.Context, userID string, err error, message string) {
	if errors.Is(err, services.ErrBillingProvider) {
		utils.LogErrorWithUser(userID, err, message)
		utils.SendErrorCode(c, http.StatusBadGateway, services.CodeBillingProviderFailed,
			"The billing provider rejected the request; nothing was changed")
		return
	}
	if errors.Is(err, services.ErrRelationalWrite) {
		utils.LogErrorWithUser(userID, err, message)
		utils.SendErrorCode(c, http.StatusInternalServerError, services.CodeRelationalWriteFailed, message)
		return
	}
	utils.LogErrorWithUser(userID, err, message)
	utils.SendError(c, http.StatusInternalServerError, message)
}
