package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPaused     SubscriptionStatus = "paused"
	SubscriptionCancelled  SubscriptionStatus = "cancelled"
	SubscriptionCancelling SubscriptionStatus = "cancelling"
	SubscriptionPending    SubscriptionStatus = "pending"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
	SubscriptionExpired    SubscriptionStatus = "expired"
)

// DefaultAppointmentAccessDuration is the appointment-access window in seconds
// applied when a subscription carries no per-row override.
const DefaultAppointmentAccessDuration = 1200

// Bounds accepted for a per-subscription access window override.
const (
	MinAppointmentAccessDuration = 60
	MaxAppointmentAccessDuration = 7200
)

func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionPaused, SubscriptionCancelled,
		SubscriptionCancelling, SubscriptionPending, SubscriptionPastDue,
		SubscriptionTrialing, SubscriptionIncomplete, SubscriptionExpired:
		return true
	}
	return false
}

// IsEntitling reports whether the status still confers benefits. A cancelling
// subscription stays entitling until the paid period ends.
func (s SubscriptionStatus) IsEntitling() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCancelling:
		return true
	}
	return false
}

// UserSubscription is the authoritative subscription record. The Sanity
// document referenced by SanityID is a denormalized, best-effort copy.
type UserSubscription struct {
	ID                        string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID                    string             `json:"userId" gorm:"type:uuid;not null;index"`
	UserEmail                 string             `json:"userEmail"`
	PlanID                    string             `json:"planId"`
	PlanName                  string             `json:"planName"`
	SanityID                  *string            `json:"sanityId" gorm:"index"`
	StripeSubscriptionID      string             `json:"stripeSubscriptionId"`
	StripeCustomerID          string             `json:"stripeCustomerId"`
	Status                    SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	IsActive                  bool               `json:"isActive"`
	StartDate                 time.Time          `json:"startDate"`
	EndDate                   *time.Time         `json:"endDate"`
	NextBillingDate           *time.Time         `json:"nextBillingDate"`
	CancellationDate          *time.Time         `json:"cancellationDate"`
	HasAppointmentAccess      bool               `json:"hasAppointmentAccess"`
	AppointmentAccessedAt     *time.Time         `json:"appointmentAccessedAt"`
	AppointmentAccessExpired  bool               `json:"appointmentAccessExpired"`
	AppointmentAccessDuration int                `json:"appointmentAccessDuration" gorm:"default:1200"`
	IsDeleted                 bool               `json:"isDeleted"`
	CreatedAt                 time.Time          `json:"createdAt"`
	UpdatedAt                 time.Time          `json:"updatedAt"`
}

// AccessDuration returns the effective window length in seconds.
func (s *UserSubscription) AccessDuration() int {
	if s.AppointmentAccessDuration > 0 {
		return s.AppointmentAccessDuration
	}
	return DefaultAppointmentAccessDuration
}
