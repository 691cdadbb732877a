package services

import (
	"errors"
	"testing"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

type fakeBilling struct {
	sub          *BillingSubscription
	err          error
	cancelled    []string
	periodEnd    []string
	reactivated  []string
	getRequested []string
}

func (f *fakeBilling) GetSubscription(id string) (*BillingSubscription, error) {
	f.getRequested = append(f.getRequested, id)
	return f.sub, f.err
}

func (f *fakeBilling) CancelImmediately(id string) (*BillingSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.cancelled = append(f.cancelled, id)
	return f.sub, nil
}

func (f *fakeBilling) CancelAtPeriodEnd(id string) (*BillingSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.periodEnd = append(f.periodEnd, id)
	return f.sub, nil
}

func (f *fakeBilling) ClearPendingCancellation(id string) (*BillingSubscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reactivated = append(f.reactivated, id)
	return f.sub, nil
}

type fakeMirror struct {
	patched map[string]map[string]interface{}
	err     error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{patched: map[string]map[string]interface{}{}}
}

func (f *fakeMirror) PatchDocument(documentID string, set map[string]interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.patched[documentID] = set
	return nil
}

var subscriptionColumns = []string{
	"id", "user_id", "sanity_id", "stripe_subscription_id", "status", "is_active", "is_deleted",
}

func expectSubscriptionSelect(mock sqlmock.Sqlmock, id, sanityID, stripeID string, status models.SubscriptionStatus, isActive bool) {
	var sanity interface{}
	if sanityID != "" {
		sanity = sanityID
	}
	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(id, "user-1", sanity, stripeID, string(status), isActive, false))
}

func expectSubscriptionUpdate(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestApplyStatusUpdate_RejectsUnknownStatus(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	svc := NewSubscriptionService(gormDB, &fakeBilling{}, newFakeMirror())
	_, err := svc.ApplyStatusUpdate("sub-1", "definitely-not-a-status", true)

	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatusUpdate_WritesRelationalThenMirror(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "sanity-doc-1", "stripe-sub-1", models.SubscriptionPending, false)
	expectSubscriptionUpdate(mock)

	mirror := newFakeMirror()
	svc := NewSubscriptionService(gormDB, &fakeBilling{}, mirror)
	result, err := svc.ApplyStatusUpdate("sub-1", models.SubscriptionActive, true)

	assert.NoError(t, err)
	assert.True(t, result.MirrorSynced)
	assert.Empty(t, result.InvariantWarning)
	assert.Equal(t, map[string]interface{}{"status": "active", "isActive": true}, mirror.patched["sanity-doc-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatusUpdate_MirrorFailureIsNotFatal(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "sanity-doc-1", "stripe-sub-1", models.SubscriptionPending, false)
	expectSubscriptionUpdate(mock)

	mirror := newFakeMirror()
	mirror.err = errors.New("sanity is down")
	svc := NewSubscriptionService(gormDB, &fakeBilling{}, mirror)
	result, err := svc.ApplyStatusUpdate("sub-1", models.SubscriptionActive, true)

	// Relational truth wins: the operation succeeds but reports the stale mirror.
	assert.NoError(t, err)
	assert.False(t, result.MirrorSynced)
	assert.Contains(t, result.MirrorError, "sanity is down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatusUpdate_FlagsInvariantViolation(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "", models.SubscriptionActive, true)
	expectSubscriptionUpdate(mock)

	svc := NewSubscriptionService(gormDB, &fakeBilling{}, newFakeMirror())
	// cancelled with is_active=true violates the invariant but is written anyway.
	result, err := svc.ApplyStatusUpdate("sub-1", models.SubscriptionCancelled, true)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.InvariantWarning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatusUpdate_InvariantTable(t *testing.T) {
	cases := []struct {
		status models.SubscriptionStatus
		active bool
	}{
		{models.SubscriptionActive, true},
		{models.SubscriptionTrialing, true},
		{models.SubscriptionPastDue, true},
		{models.SubscriptionCancelling, true},
		{models.SubscriptionCancelled, false},
		{models.SubscriptionExpired, false},
		{models.SubscriptionPending, false},
		{models.SubscriptionPaused, false},
		{models.SubscriptionIncomplete, false},
	}

	for _, tc := range cases {
		gormDB, mock, cleanup := testutils.SetupTestDB(t)

		expectSubscriptionSelect(mock, "sub-1", "", "", models.SubscriptionPending, false)
		expectSubscriptionUpdate(mock)

		svc := NewSubscriptionService(gormDB, &fakeBilling{}, newFakeMirror())
		result, err := svc.ApplyStatusUpdate("sub-1", tc.status, tc.active)

		assert.NoError(t, err)
		// The matching pair never triggers a warning.
		assert.Empty(t, result.InvariantWarning, "status %s", tc.status)
		cleanup()
	}
}

func TestRequestCancellation_Immediate(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionActive, true)
	expectSubscriptionUpdate(mock)

	billing := &fakeBilling{}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	result, err := svc.RequestCancellation("sub-1", true)

	assert.NoError(t, err)
	assert.Equal(t, []string{"stripe-sub-1"}, billing.cancelled)
	assert.Equal(t, models.SubscriptionCancelled, result.Subscription.Status)
	assert.False(t, result.Subscription.IsActive)
	assert.NotNil(t, result.Subscription.CancellationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestCancellation_AtPeriodEndKeepsAccess(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	periodEnd := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionActive, true)
	expectSubscriptionUpdate(mock)

	billing := &fakeBilling{sub: &BillingSubscription{ID: "stripe-sub-1", Status: "active", CancelAtPeriodEnd: true, CurrentPeriodEnd: periodEnd}}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	result, err := svc.RequestCancellation("sub-1", false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"stripe-sub-1"}, billing.periodEnd)
	assert.Equal(t, models.SubscriptionCancelling, result.Subscription.Status)
	assert.True(t, result.Subscription.IsActive)
	assert.Equal(t, periodEnd, *result.Subscription.EndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestCancellation_BillingFailureAbortsBeforeAnyWrite(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionActive, true)
	// No UPDATE expectation: the provider failure must abort everything.

	billing := &fakeBilling{err: errors.New("stripe unavailable")}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	_, err := svc.RequestCancellation("sub-1", true)

	assert.ErrorIs(t, err, ErrBillingProvider)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactivate_OnlyFromCancelling(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionActive, true)

	billing := &fakeBilling{}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	_, err := svc.Reactivate("sub-1")

	assert.ErrorIs(t, err, ErrNotCancelling)
	assert.Empty(t, billing.reactivated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactivate_ClearsPendingCancellation(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionCancelling, true)
	expectSubscriptionUpdate(mock)

	billing := &fakeBilling{}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	result, err := svc.Reactivate("sub-1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"stripe-sub-1"}, billing.reactivated)
	assert.Equal(t, models.SubscriptionActive, result.Subscription.Status)
	assert.True(t, result.Subscription.IsActive)
	assert.Nil(t, result.Subscription.CancellationDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileStatus_RepairsPendingDrift(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "sanity-doc-1", "stripe-sub-1", models.SubscriptionPending, false)
	expectSubscriptionUpdate(mock)

	billing := &fakeBilling{sub: &BillingSubscription{ID: "stripe-sub-1", Status: "active"}}
	mirror := newFakeMirror()
	svc := NewSubscriptionService(gormDB, billing, mirror)
	result, err := svc.ReconcileStatus("sub-1")

	assert.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, models.SubscriptionPending, result.PreviousStatus)
	assert.Equal(t, models.SubscriptionActive, result.NewStatus)
	assert.Equal(t, map[string]interface{}{"status": "active", "isActive": true}, mirror.patched["sanity-doc-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileStatus_NoDriftNoWrite(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	expectSubscriptionSelect(mock, "sub-1", "", "stripe-sub-1", models.SubscriptionActive, true)

	billing := &fakeBilling{sub: &BillingSubscription{ID: "stripe-sub-1", Status: "active"}}
	svc := NewSubscriptionService(gormDB, billing, newFakeMirror())
	result, err := svc.ReconcileStatus("sub-1")

	assert.NoError(t, err)
	assert.False(t, result.Changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapBillingStatus_CancelAtPeriodEnd(t *testing.T) {
	status := mapBillingStatus(&BillingSubscription{Status: "active", CancelAtPeriodEnd: true})
	assert.Equal(t, models.SubscriptionCancelling, status)

	status = mapBillingStatus(&BillingSubscription{Status: "canceled"})
	assert.Equal(t, models.SubscriptionCancelled, status)

	status = mapBillingStatus(&BillingSubscription{Status: "incomplete_expired"})
	assert.Equal(t, models.SubscriptionExpired, status)
}
