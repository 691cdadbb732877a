package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/utils"

	"gorm.io/gorm"
)

// SubscriptionService keeps the relational subscription record, the billing
// provider and the CMS mirror in agreement.
//
// Ordering is deliberate and asymmetric: for cancel/reactivate the billing
// provider is called before the relational write (the provider is
// authoritative over what the user is billed for), while for plain status
// updates the relational store is written first and the mirror patched after
// (relational is authoritative over the CMS copy, which is best-effort only).
type SubscriptionService struct {
	DB      *gorm.DB
	Billing BillingClient
	Mirror  MirrorClient
}

func NewSubscriptionService(database *gorm.DB, billing BillingClient, mirror MirrorClient) *SubscriptionService {
	return &SubscriptionService{DB: database, Billing: billing, Mirror: mirror}
}

// StatusUpdateResult reports a status mutation. MirrorSynced false with a
// non-empty MirrorError means "relationally correct but mirror stale" —
// the operation still succeeded.
type StatusUpdateResult struct {
	Subscription     *models.UserSubscription `json:"subscription"`
	MirrorSynced     bool                     `json:"mirrorSynced"`
	MirrorError      string                   `json:"mirrorError,omitempty"`
	InvariantWarning string                   `json:"invariantWarning,omitempty"`
}

// ReconciliationResult reports a drift check against the billing provider.
type ReconciliationResult struct {
	SubscriptionID string                    `json:"subscriptionId"`
	PreviousStatus models.SubscriptionStatus `json:"previousStatus"`
	NewStatus      models.SubscriptionStatus `json:"newStatus"`
	Changed        bool                      `json:"changed"`
	MirrorSynced   bool                      `json:"mirrorSynced"`
	MirrorError    string                    `json:"mirrorError,omitempty"`
}

func (s *SubscriptionService) getSubscription(subscriptionID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.DB.First(&sub, "id = ? AND is_deleted = ?", subscriptionID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindByBillingID looks a subscription up by its billing-provider id.
func (s *SubscriptionService) FindByBillingID(stripeSubscriptionID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.DB.First(&sub, "stripe_subscription_id = ? AND is_deleted = ?", stripeSubscriptionID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// GetOwnedSubscription loads a subscription and checks it belongs to userID.
func (s *SubscriptionService) GetOwnedSubscription(subscriptionID, userID string) (*models.UserSubscription, error) {
	sub, err := s.getSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrOwnershipMismatch
	}
	return sub, nil
}

// ListUserSubscriptions returns the user's non-deleted subscriptions, newest
// first.
func (s *SubscriptionService) ListUserSubscriptions(userID string) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := s.DB.Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("created_at DESC").
		Find(&subs).Error
	return subs, err
}

// ApplyStatusUpdate writes status and is_active to the relational store and
// then patches the CMS mirror best-effort. A (status, is_active) pair that
// violates the activity invariant is written anyway — admins sometimes force
// non-standard combinations — but the result carries a warning.
func (s *SubscriptionService) ApplyStatusUpdate(subscriptionID string, status models.SubscriptionStatus, isActive bool) (*StatusUpdateResult, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	sub, err := s.getSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}

	result := &StatusUpdateResult{}
	if isActive != status.IsEntitling() {
		result.InvariantWarning = fmt.Sprintf(
			"status %q with is_active=%t does not match the activity invariant", status, isActive)
		utils.LogInfo(result.InvariantWarning)
	}

	err = s.DB.Model(&models.UserSubscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":    status,
			"is_active": isActive,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationalWrite, err)
	}

	sub.Status = status
	sub.IsActive = isActive
	result.Subscription = sub
	result.MirrorSynced, result.MirrorError = s.mirrorStatus(sub, status, isActive)
	return result, nil
}

// mirrorStatus patches the Sanity document with the new status pair. Failures
// are logged and reported, never propagated: the relational commit already
// happened and is the success criterion.
func (s *SubscriptionService) mirrorStatus(sub *models.UserSubscription, status models.SubscriptionStatus, isActive bool) (bool, string) {
	if sub.SanityID == nil || *sub.SanityID == "" {
		return true, ""
	}
	err := s.Mirror.PatchDocument(*sub.SanityID, map[string]interface{}{
		"status":   string(status),
		"isActive": isActive,
	})
	if err != nil {
		utils.LogMirrorFailure(*sub.SanityID, "user_subscriptions", err)
		return false, err.Error()
	}
	return true, ""
}

// ReconcileStatus pulls the billing provider's view and repairs local drift,
// e.g. a row stuck on pending after the provider reports active.
func (s *SubscriptionService) ReconcileStatus(subscriptionID string) (*ReconciliationResult, error) {
	sub, err := s.getSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		SubscriptionID: sub.ID,
		PreviousStatus: sub.Status,
		NewStatus:      sub.Status,
		MirrorSynced:   true,
	}

	if sub.StripeSubscriptionID == "" {
		// Nothing to reconcile against.
		return result, nil
	}

	remote, err := s.Billing.GetSubscription(sub.StripeSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBillingProvider, err)
	}

	return s.SyncFromBilling(sub, remote)
}

// SyncFromBilling applies the provider's reported state to the local record.
// Also the entry point for billing webhook events carrying a subscription
// object, which saves a round trip to the provider.
func (s *SubscriptionService) SyncFromBilling(sub *models.UserSubscription, remote *BillingSubscription) (*ReconciliationResult, error) {
	desired := mapBillingStatus(remote)
	desiredActive := desired.IsEntitling()

	result := &ReconciliationResult{
		SubscriptionID: sub.ID,
		PreviousStatus: sub.Status,
		NewStatus:      desired,
		MirrorSynced:   true,
	}

	if sub.Status == desired && sub.IsActive == desiredActive {
		return result, nil
	}

	updates := map[string]interface{}{
		"status":    desired,
		"is_active": desiredActive,
	}
	if !remote.CurrentPeriodEnd.IsZero() {
		if desired == models.SubscriptionCancelling {
			updates["end_date"] = remote.CurrentPeriodEnd
		} else {
			updates["next_billing_date"] = remote.CurrentPeriodEnd
		}
	}

	err := s.DB.Model(&models.UserSubscription{}).
		Where("id = ?", sub.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationalWrite, err)
	}

	result.Changed = true
	sub.Status = desired
	sub.IsActive = desiredActive
	result.MirrorSynced, result.MirrorError = s.mirrorStatus(sub, desired, desiredActive)
	return result, nil
}

// mapBillingStatus translates the provider's status vocabulary to ours.
func mapBillingStatus(remote *BillingSubscription) models.SubscriptionStatus {
	if remote.CancelAtPeriodEnd && (remote.Status == "active" || remote.Status == "trialing") {
		return models.SubscriptionCancelling
	}
	switch remote.Status {
	case "active":
		return models.SubscriptionActive
	case "trialing":
		return models.SubscriptionTrialing
	case "past_due", "unpaid":
		return models.SubscriptionPastDue
	case "canceled":
		return models.SubscriptionCancelled
	case "incomplete":
		return models.SubscriptionIncomplete
	case "incomplete_expired":
		return models.SubscriptionExpired
	case "paused":
		return models.SubscriptionPaused
	default:
		return models.SubscriptionPending
	}
}

// RequestCancellation cancels with the billing provider first; only once the
// provider accepted does the relational record change. A provider failure
// aborts everything — the system must never claim a cancellation it did not
// get.
func (s *SubscriptionService) RequestCancellation(subscriptionID string, immediate bool) (*StatusUpdateResult, error) {
	sub, err := s.getSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"cancellation_date": now,
	}
	var newStatus models.SubscriptionStatus
	var newActive bool

	if immediate {
		if sub.StripeSubscriptionID != "" {
			if _, err := s.Billing.CancelImmediately(sub.StripeSubscriptionID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBillingProvider, err)
			}
		}
		newStatus = models.SubscriptionCancelled
		newActive = false
	} else {
		var remote *BillingSubscription
		if sub.StripeSubscriptionID != "" {
			remote, err = s.Billing.CancelAtPeriodEnd(sub.StripeSubscriptionID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBillingProvider, err)
			}
		}
		newStatus = models.SubscriptionCancelling
		newActive = true
		if remote != nil && !remote.CurrentPeriodEnd.IsZero() {
			updates["end_date"] = remote.CurrentPeriodEnd
			end := remote.CurrentPeriodEnd
			sub.EndDate = &end
		}
	}

	updates["status"] = newStatus
	updates["is_active"] = newActive

	err = s.DB.Model(&models.UserSubscription{}).
		Where("id = ?", subscriptionID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationalWrite, err)
	}

	sub.Status = newStatus
	sub.IsActive = newActive
	sub.CancellationDate = &now

	result := &StatusUpdateResult{Subscription: sub}
	result.MirrorSynced, result.MirrorError = s.mirrorStatus(sub, newStatus, newActive)
	utils.LogSuccessWithUser(sub.UserID, "Subscription cancellation recorded")
	return result, nil
}

// Reactivate clears a pending cancel-at-period-end. Only a cancelling
// subscription can be reactivated; anything else is rejected untouched.
func (s *SubscriptionService) Reactivate(subscriptionID string) (*StatusUpdateResult, error) {
	sub, err := s.getSubscription(subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.Status != models.SubscriptionCancelling {
		return nil, ErrNotCancelling
	}

	if sub.StripeSubscriptionID != "" {
		if _, err := s.Billing.ClearPendingCancellation(sub.StripeSubscriptionID); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBillingProvider, err)
		}
	}

	err = s.DB.Model(&models.UserSubscription{}).
		Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"status":            models.SubscriptionActive,
			"is_active":         true,
			"cancellation_date": nil,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationalWrite, err)
	}

	sub.Status = models.SubscriptionActive
	sub.IsActive = true
	sub.CancellationDate = nil

	result := &StatusUpdateResult{Subscription: sub}
	result.MirrorSynced, result.MirrorError = s.mirrorStatus(sub, sub.Status, true)
	utils.LogSuccessWithUser(sub.UserID, "Subscription reactivated")
	return result, nil
}

// MarkPaymentSucceeded moves a pending subscription to active after the
// billing webhook reports a successful payment, and advances the next billing
// date on renewals.
func (s *SubscriptionService) MarkPaymentSucceeded(stripeSubscriptionID string, periodEnd time.Time) (*StatusUpdateResult, error) {
	var sub models.UserSubscription
	err := s.DB.First(&sub, "stripe_subscription_id = ? AND is_deleted = ?", stripeSubscriptionID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	// A paid invoice activates pending/incomplete/past_due rows. A cancelling
	// subscription paying its final invoice keeps its pending cancellation.
	switch sub.Status {
	case models.SubscriptionPending, models.SubscriptionIncomplete, models.SubscriptionPastDue:
		updates["status"] = models.SubscriptionActive
		updates["is_active"] = true
		sub.Status = models.SubscriptionActive
		sub.IsActive = true
	}
	if !periodEnd.IsZero() {
		updates["next_billing_date"] = periodEnd
	}

	result := &StatusUpdateResult{Subscription: &sub, MirrorSynced: true}
	if len(updates) == 0 {
		return result, nil
	}

	err = s.DB.Model(&models.UserSubscription{}).
		Where("id = ?", sub.ID).
		Updates(updates).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelationalWrite, err)
	}

	result.MirrorSynced, result.MirrorError = s.mirrorStatus(&sub, sub.Status, sub.IsActive)
	return result, nil
}
