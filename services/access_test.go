package services

import (
	"testing"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/testutils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var accessColumns = []string{
	"id", "user_id", "status", "is_active", "has_appointment_access",
	"appointment_accessed_at", "appointment_access_expired",
	"appointment_access_duration", "is_deleted", "created_at",
}

func freshSubscription(id string) *models.UserSubscription {
	return &models.UserSubscription{
		ID:                        id,
		UserID:                    "user-1",
		Status:                    models.SubscriptionActive,
		IsActive:                  true,
		HasAppointmentAccess:      true,
		AppointmentAccessDuration: 1200,
	}
}

func TestEvaluateAccess_NoSubscription(t *testing.T) {
	decision := EvaluateAccess(nil, time.Now())

	assert.Equal(t, AccessNoSubscription, decision.State)
	assert.Equal(t, CodeNoSubscription, decision.Reason)
}

func TestEvaluateAccess_FirstTime(t *testing.T) {
	sub := freshSubscription("sub-1")

	decision := EvaluateAccess(sub, time.Now())

	assert.Equal(t, AccessFirstTimeAvailable, decision.State)
	assert.True(t, decision.IsFirstTime)
	assert.Equal(t, 1200, decision.TimeRemaining)
}

func TestEvaluateAccess_CountdownDecreases(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := freshSubscription("sub-1")
	sub.AppointmentAccessedAt = &start

	decision := EvaluateAccess(sub, start.Add(600*time.Second))

	assert.Equal(t, AccessActiveCountdown, decision.State)
	assert.Equal(t, 600, decision.TimeRemaining)
	assert.False(t, decision.IsFirstTime)
}

func TestEvaluateAccess_ExpiresAfterWindow(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := freshSubscription("sub-1")
	sub.AppointmentAccessedAt = &start

	decision := EvaluateAccess(sub, start.Add(1201*time.Second))

	assert.Equal(t, AccessExpiredLocked, decision.State)
	assert.Equal(t, CodeAlreadyExpired, decision.Reason)
	assert.Equal(t, 0, decision.TimeRemaining)
}

func TestEvaluateAccess_ExactBoundaryIsExpired(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub := freshSubscription("sub-1")
	sub.AppointmentAccessedAt = &start

	decision := EvaluateAccess(sub, start.Add(1200*time.Second))

	assert.Equal(t, AccessExpiredLocked, decision.State)
}

func TestEvaluateAccess_ExpiredFlagIsTerminal(t *testing.T) {
	sub := freshSubscription("sub-1")
	sub.AppointmentAccessExpired = true
	// Even with no stamp the lock holds until an admin override.
	sub.AppointmentAccessedAt = nil

	decision := EvaluateAccess(sub, time.Now())

	assert.Equal(t, AccessExpiredLocked, decision.State)
	assert.Equal(t, CodeAlreadyExpired, decision.Reason)
}

func TestEvaluateAccess_DefaultDuration(t *testing.T) {
	sub := freshSubscription("sub-1")
	sub.AppointmentAccessDuration = 0

	decision := EvaluateAccess(sub, time.Now())

	assert.Equal(t, models.DefaultAppointmentAccessDuration, decision.TimeRemaining)
}

func TestGrantAccess_FirstTimeStampsWindow(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, nil, false, 1200, false, time.Now()))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewAccessService(gormDB)
	decision, err := svc.GrantAccess("user-1", time.Now())

	assert.NoError(t, err)
	assert.Equal(t, AccessActiveCountdown, decision.State)
	assert.True(t, decision.IsFirstTime)
	assert.Equal(t, 1200, decision.TimeRemaining)
	assert.Equal(t, "sub-1", decision.SubscriptionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantAccess_IdempotentWhileCounting(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	stamp := now.Add(-300 * time.Second)

	// Already stamped: no UPDATE may be issued.
	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, stamp, false, 1200, false, now))

	svc := NewAccessService(gormDB)
	decision, err := svc.GrantAccess("user-1", now)

	assert.NoError(t, err)
	assert.Equal(t, AccessActiveCountdown, decision.State)
	assert.False(t, decision.IsFirstTime)
	assert.Equal(t, 900, decision.TimeRemaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantAccess_LostStampRaceUsesWinnersStamp(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	winnerStamp := now.Add(-10 * time.Second)

	// The candidate still shows a NULL stamp, but the conditional write loses.
	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, nil, false, 1200, false, now))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// Re-read returns the winner's stamp.
	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, winnerStamp, false, 1200, false, now))

	svc := NewAccessService(gormDB)
	decision, err := svc.GrantAccess("user-1", now)

	assert.NoError(t, err)
	assert.Equal(t, AccessActiveCountdown, decision.State)
	assert.False(t, decision.IsFirstTime)
	assert.Equal(t, 1190, decision.TimeRemaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantAccess_ExpiredPersistsLock(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	now := time.Now()
	stamp := now.Add(-1300 * time.Second)

	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, stamp, false, 1200, false, now))

	// Lazy transition: the read persists the durable lock.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewAccessService(gormDB)
	decision, err := svc.GrantAccess("user-1", now)

	assert.NoError(t, err)
	assert.Equal(t, AccessExpiredLocked, decision.State)
	assert.Equal(t, CodeAlreadyExpired, decision.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGrantAccess_NoQualifyingSubscription(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns))

	svc := NewAccessService(gormDB)
	decision, err := svc.GrantAccess("user-1", time.Now())

	assert.NoError(t, err)
	assert.Equal(t, AccessNoSubscription, decision.State)
	assert.Equal(t, CodeNoSubscription, decision.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAccess_ReadNeverStamps(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	// Window never opened: a status check must not write anything.
	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, nil, false, 1200, false, time.Now()))

	svc := NewAccessService(gormDB)
	decision, err := svc.CheckAccess("user-1", time.Now())

	assert.NoError(t, err)
	assert.Equal(t, AccessFirstTimeAvailable, decision.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideAccessLedger_DurationBounds(t *testing.T) {
	gormDB, _, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	svc := NewAccessService(gormDB)

	_, err := svc.OverrideAccessLedger("sub-1", nil, false, 59)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	_, err = svc.OverrideAccessLedger("sub-1", nil, false, 7201)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestOverrideAccessLedger_ResetsExpiredWindow(t *testing.T) {
	gormDB, mock, cleanup := testutils.SetupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
		WillReturnRows(sqlmock.NewRows(accessColumns).
			AddRow("sub-1", "user-1", "active", true, true, time.Now().Add(-2*time.Hour), true, 1200, false, time.Now()))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := NewAccessService(gormDB)
	sub, err := svc.OverrideAccessLedger("sub-1", nil, false, 1200)

	assert.NoError(t, err)
	assert.Nil(t, sub.AppointmentAccessedAt)
	assert.False(t, sub.AppointmentAccessExpired)

	// The reset window grants first-time access again.
	decision := EvaluateAccess(sub, time.Now())
	assert.Equal(t, AccessFirstTimeAvailable, decision.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideAccessLedger_AcceptsBoundaryValues(t *testing.T) {
	for _, duration := range []int{60, 7200} {
		gormDB, mock, cleanup := testutils.SetupTestDB(t)

		mock.ExpectQuery(`SELECT \* FROM "user_subscriptions"`).
			WillReturnRows(sqlmock.NewRows(accessColumns).
				AddRow("sub-1", "user-1", "active", true, true, nil, false, 1200, false, time.Now()))
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "user_subscriptions" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		svc := NewAccessService(gormDB)
		sub, err := svc.OverrideAccessLedger("sub-1", nil, false, duration)

		assert.NoError(t, err)
		assert.Equal(t, duration, sub.AppointmentAccessDuration)
		assert.NoError(t, mock.ExpectationsWereMet())
		cleanup()
	}
}
