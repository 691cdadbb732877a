package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Subscriptions *services.SubscriptionService
	Access        *services.AccessService
}

func NewHandler(subscriptions *services.SubscriptionService, access *services.AccessService) *Handler {
	return &Handler{Subscriptions: subscriptions, Access: access}
}

type updateStatusRequest struct {
	SubscriptionID string `json:"subscriptionId" binding:"required,uuid"`
	Status         string `json:"status" binding:"required"`
	IsActive       *bool  `json:"isActive" binding:"required"`
}

type updateAppointmentTimeRequest struct {
	SubscriptionID            string  `json:"subscriptionId" binding:"required,uuid"`
	AppointmentAccessedAt     *string `json:"appointment_accessed_at"`
	AppointmentAccessExpired  bool    `json:"appointment_access_expired"`
	AppointmentAccessDuration int     `json:"appointment_access_duration" binding:"required"`
}

type cancelRequest struct {
	SubscriptionID    string `json:"subscriptionId" binding:"required,uuid"`
	CancelImmediately bool   `json:"cancelImmediately"`
}

// UpdateStatus applies a status/is_active pair. The response says whether the
// CMS mirror also took the write and carries a warning when the pair violates
// the activity invariant (admins may force that on purpose).
// @Summary Update a subscription's status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body updateStatusRequest true "New status"
// @Success 200 {object} services.StatusUpdateResult
// @Failure 400 {object} utils.Response "code: INVALID_STATUS_VALUE"
// @Failure 404 {object} utils.Response
// @Router /admin/subscriptions/update-status [post]
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	result, err := h.Subscriptions.ApplyStatusUpdate(
		req.SubscriptionID, models.SubscriptionStatus(req.Status), *req.IsActive)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			utils.SendErrorCode(c, http.StatusBadRequest, services.CodeInvalidStatusValue,
				"Unknown subscription status: "+req.Status)
		case errors.Is(err, services.ErrSubscriptionNotFound):
			utils.SendError(c, http.StatusNotFound, "Subscription not found")
		case errors.Is(err, services.ErrRelationalWrite):
			utils.SendErrorCode(c, http.StatusInternalServerError, services.CodeRelationalWriteFailed,
				"Error updating subscription status")
		default:
			utils.LogError(err, "Error updating subscription status")
			utils.SendError(c, http.StatusInternalServerError, "Error updating subscription status")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateAppointmentTime overrides the access-ledger fields directly. This is
// the only sanctioned way to reset an expired window.
// @Summary Override the appointment-access ledger
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body updateAppointmentTimeRequest true "Ledger override"
// @Success 200 {object} models.UserSubscription
// @Failure 400 {object} utils.Response "code: INVALID_DURATION_RANGE"
// @Failure 404 {object} utils.Response
// @Router /admin/subscriptions/update-appointment-time [post]
func (h *Handler) UpdateAppointmentTime(c *gin.Context) {
	var req updateAppointmentTimeRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	var accessedAt *time.Time
	if req.AppointmentAccessedAt != nil && *req.AppointmentAccessedAt != "" {
		parsed, err := time.Parse(time.RFC3339, *req.AppointmentAccessedAt)
		if err != nil {
			utils.SendError(c, http.StatusBadRequest, "appointment_accessed_at must be an RFC 3339 timestamp")
			return
		}
		accessedAt = &parsed
	}

	sub, err := h.Access.OverrideAccessLedger(
		req.SubscriptionID, accessedAt, req.AppointmentAccessExpired, req.AppointmentAccessDuration)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDuration):
			utils.SendErrorCode(c, http.StatusBadRequest, services.CodeInvalidDurationRange,
				"appointment_access_duration must be between 60 and 7200 seconds")
		case errors.Is(err, services.ErrSubscriptionNotFound):
			utils.SendError(c, http.StatusNotFound, "Subscription not found")
		default:
			utils.LogError(err, "Error overriding appointment access ledger")
			utils.SendError(c, http.StatusInternalServerError, "Error updating appointment access")
		}
		return
	}

	utils.LogSuccess("Appointment access ledger overridden for subscription " + sub.ID)
	c.JSON(http.StatusOK, sub)
}

// Cancel runs the cancellation flow, immediately or at period end.
// @Summary Cancel a subscription (admin)
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body cancelRequest true "Cancellation request"
// @Success 200 {object} services.StatusUpdateResult
// @Failure 404 {object} utils.Response
// @Failure 502 {object} utils.Response "code: BILLING_PROVIDER_FAILED"
// @Router /admin/subscriptions/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	var req cancelRequest
	if !utils.ValidateRequestBody(c, &req) {
		return
	}

	result, err := h.Subscriptions.RequestCancellation(req.SubscriptionID, req.CancelImmediately)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			utils.SendError(c, http.StatusNotFound, "Subscription not found")
		case errors.Is(err, services.ErrBillingProvider):
			utils.SendErrorCode(c, http.StatusBadGateway, services.CodeBillingProviderFailed,
				"The billing provider rejected the cancellation; nothing was changed")
		case errors.Is(err, services.ErrRelationalWrite):
			utils.SendErrorCode(c, http.StatusInternalServerError, services.CodeRelationalWriteFailed,
				"Error recording the cancellation")
		default:
			utils.LogError(err, "Error cancelling subscription")
			utils.SendError(c, http.StatusInternalServerError, "Error cancelling subscription")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reconcile pulls the billing provider's view of a subscription and repairs
// local drift.
// @Summary Reconcile a subscription against the billing provider
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param subscriptionId path string true "Subscription ID"
// @Success 200 {object} services.ReconciliationResult
// @Failure 404 {object} utils.Response
// @Failure 502 {object} utils.Response "code: BILLING_PROVIDER_FAILED"
// @Router /admin/subscriptions/{subscriptionId}/reconcile [post]
func (h *Handler) Reconcile(c *gin.Context) {
	subscriptionID := c.Param("subscriptionId")

	result, err := h.Subscriptions.ReconcileStatus(subscriptionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSubscriptionNotFound):
			utils.SendError(c, http.StatusNotFound, "Subscription not found")
		case errors.Is(err, services.ErrBillingProvider):
			utils.SendErrorCode(c, http.StatusBadGateway, services.CodeBillingProviderFailed,
				"Could not fetch the subscription from the billing provider")
		default:
			utils.LogError(err, "Error reconciling subscription")
			utils.SendError(c, http.StatusInternalServerError, "Error reconciling subscription")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
