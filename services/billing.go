package services

import (
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// BillingSubscription is the provider-side view of a subscription, reduced to
// the fields the reconciler cares about.
type BillingSubscription struct {
	ID                string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// BillingClient abstracts the billing provider so the reconciler can be tested
// with a fake. The Stripe implementation is constructed in main and injected.
type BillingClient interface {
	GetSubscription(id string) (*BillingSubscription, error)
	CancelImmediately(id string) (*BillingSubscription, error)
	CancelAtPeriodEnd(id string) (*BillingSubscription, error)
	ClearPendingCancellation(id string) (*BillingSubscription, error)
}

type StripeBilling struct {
	api *client.API
}

func NewStripeBilling(secretKey string) *StripeBilling {
	return &StripeBilling{api: client.New(secretKey, nil)}
}

func (b *StripeBilling) GetSubscription(id string) (*BillingSubscription, error) {
	sub, err := b.api.Subscriptions.Get(id, nil)
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(sub), nil
}

func (b *StripeBilling) CancelImmediately(id string) (*BillingSubscription, error) {
	sub, err := b.api.Subscriptions.Cancel(id, &stripe.SubscriptionCancelParams{
		Prorate: stripe.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(sub), nil
}

func (b *StripeBilling) CancelAtPeriodEnd(id string) (*BillingSubscription, error) {
	sub, err := b.api.Subscriptions.Update(id, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(sub), nil
}

func (b *StripeBilling) ClearPendingCancellation(id string) (*BillingSubscription, error) {
	sub, err := b.api.Subscriptions.Update(id, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	return fromStripeSubscription(sub), nil
}

func fromStripeSubscription(sub *stripe.Subscription) *BillingSubscription {
	out := &BillingSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	// Period boundaries live on the items since the Basil API versions.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.Items.Data[0].CurrentPeriodEnd, 0)
	}
	return out
}

// MirrorClient is the write surface of the CMS mirror. Implementations must be
// safe to call best-effort: failures are logged and reported, never retried
// into the relational transaction.
type MirrorClient interface {
	PatchDocument(documentID string, set map[string]interface{}) error
}

// noMirror is used when the process starts without Sanity credentials.
type noMirror struct{}

func (noMirror) PatchDocument(string, map[string]interface{}) error {
	return fmt.Errorf("sanity mirror is not configured")
}

func NoMirror() MirrorClient { return noMirror{} }
