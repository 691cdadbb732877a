package access

import (
	"net/http"
	"time"

	"github.com/mudassar003/forher-sub003/services"
	"github.com/mudassar003/forher-sub003/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Access *services.AccessService
}

func NewHandler(access *services.AccessService) *Handler {
	return &Handler{Access: access}
}

// AccessResponse is the contract consumed by the page-gating middleware.
type AccessResponse struct {
	Success        bool   `json:"success"`
	HasAccess      bool   `json:"hasAccess"`
	IsFirstTime    bool   `json:"isFirstTime"`
	TimeRemaining  int    `json:"timeRemaining"`
	AccessExpired  bool   `json:"accessExpired"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

func fromDecision(d services.AccessDecision) AccessResponse {
	resp := AccessResponse{
		Success:        true,
		TimeRemaining:  d.TimeRemaining,
		IsFirstTime:    d.IsFirstTime,
		SubscriptionID: d.SubscriptionID,
	}

	switch d.State {
	case services.AccessNoSubscription:
		resp.Error = services.CodeNoSubscription
		resp.Message = "No qualifying subscription found. An active subscription is required to book an appointment."
	case services.AccessExpiredLocked:
		resp.AccessExpired = true
		resp.Error = services.CodeAlreadyExpired
		// Distinct from the no-subscription message: these users already paid
		// and must not be pushed towards re-purchasing.
		resp.Message = "Your appointment access window has expired. Please contact support to have it reset."
	default:
		resp.HasAccess = true
	}
	return resp
}

// RequestAccess opens the appointment-access window on first call.
// @Summary Request appointment access
// @Description Open (or resume) the one-time appointment-access window for the authenticated user. The first call stamps the window start; later calls return the remaining time.
// @Tags appointment-access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccessResponse
// @Failure 401 {object} utils.Response "code: NOT_AUTHENTICATED"
// @Router /appointment-access [post]
func (h *Handler) RequestAccess(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.SendErrorCode(c, http.StatusUnauthorized, services.CodeNotAuthenticated, "User not authenticated")
		return
	}

	decision, err := h.Access.GrantAccess(userID.(string), time.Now())
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error granting appointment access")
		utils.SendError(c, http.StatusInternalServerError, "Error checking appointment access")
		return
	}

	c.JSON(http.StatusOK, fromDecision(decision))
}

// GetAccessStatus reports the window state without ever stamping it.
// @Summary Check appointment access
// @Description Read-only status of the appointment-access window. Never opens the window.
// @Tags appointment-access
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccessResponse
// @Failure 401 {object} utils.Response "code: NOT_AUTHENTICATED"
// @Router /appointment-access [get]
func (h *Handler) GetAccessStatus(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.SendErrorCode(c, http.StatusUnauthorized, services.CodeNotAuthenticated, "User not authenticated")
		return
	}

	decision, err := h.Access.CheckAccess(userID.(string), time.Now())
	if err != nil {
		utils.LogErrorWithUser(userID, err, "Error checking appointment access")
		utils.SendError(c, http.StatusInternalServerError, "Error checking appointment access")
		return
	}

	c.JSON(http.StatusOK, fromDecision(decision))
}
