package services

import "errors"

// Machine-checkable reason codes surfaced to API callers. The UI relies on
// these to distinguish "log in" from "subscribe" from "locked out, contact
// support"; never collapse them into a generic error string.
const (
	CodeNotAuthenticated      = "NOT_AUTHENTICATED"
	CodeNoSubscription        = "NO_SUBSCRIPTION"
	CodeAlreadyExpired        = "ALREADY_EXPIRED"
	CodeInvalidStatusValue    = "INVALID_STATUS_VALUE"
	CodeInvalidDurationRange  = "INVALID_DURATION_RANGE"
	CodeOwnershipMismatch     = "OWNERSHIP_MISMATCH"
	CodeRelationalWriteFailed = "RELATIONAL_WRITE_FAILED"
	CodeMirrorWriteFailed     = "MIRROR_WRITE_FAILED"
	CodeBillingProviderFailed = "BILLING_PROVIDER_FAILED"
	CodeWebhookAuthFailed     = "WEBHOOK_AUTH_FAILED"
	CodeNotCancelling         = "NOT_CANCELLING"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidStatus        = errors.New("invalid subscription status value")
	ErrInvalidDuration      = errors.New("appointment access duration out of range")
	ErrOwnershipMismatch    = errors.New("subscription belongs to another user")
	ErrNotCancelling        = errors.New("subscription is not pending cancellation")
	ErrBillingProvider      = errors.New("billing provider call failed")
	ErrRelationalWrite      = errors.New("relational write failed")
)
