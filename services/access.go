package services

import (
	"errors"
	"time"

	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/utils"

	"gorm.io/gorm"
)

type AccessState string

const (
	AccessNoSubscription     AccessState = "NO_SUBSCRIPTION"
	AccessFirstTimeAvailable AccessState = "FIRST_TIME_AVAILABLE"
	AccessActiveCountdown    AccessState = "ACTIVE_COUNTDOWN"
	AccessExpiredLocked      AccessState = "EXPIRED_LOCKED"
)

// AccessDecision is the outcome of evaluating the appointment-access window
// for one subscription at one instant.
type AccessDecision struct {
	State          AccessState
	Reason         string
	TimeRemaining  int
	IsFirstTime    bool
	SubscriptionID string
}

// AccessService owns the appointment-access ledger: the one-shot, time-boxed
// window that gates the telehealth booking page. Expiry is computed lazily on
// read; there is no background sweep, so the durable expired flag can lag
// reality until the next evaluation touches the row.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(database *gorm.DB) *AccessService {
	return &AccessService{DB: database}
}

// EvaluateAccess is the pure decision function. It never touches storage.
func EvaluateAccess(sub *models.UserSubscription, now time.Time) AccessDecision {
	if sub == nil {
		return AccessDecision{State: AccessNoSubscription, Reason: CodeNoSubscription}
	}

	decision := AccessDecision{SubscriptionID: sub.ID}

	if sub.AppointmentAccessExpired {
		decision.State = AccessExpiredLocked
		decision.Reason = CodeAlreadyExpired
		return decision
	}

	duration := sub.AccessDuration()

	if sub.AppointmentAccessedAt == nil {
		decision.State = AccessFirstTimeAvailable
		decision.IsFirstTime = true
		decision.TimeRemaining = duration
		return decision
	}

	elapsed := int(now.Sub(*sub.AppointmentAccessedAt).Seconds())
	remaining := duration - elapsed
	if remaining <= 0 {
		decision.State = AccessExpiredLocked
		decision.Reason = CodeAlreadyExpired
		return decision
	}

	decision.State = AccessActiveCountdown
	decision.TimeRemaining = remaining
	return decision
}

// selectCandidate picks the subscription whose ledger is authoritative for
// this user: the most recently created, non-deleted, active row in an
// entitling status. A cancelling subscription only qualifies when its window
// was already opened; it never receives a new first-time grant.
func (s *AccessService) selectCandidate(userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.DB.
		Where("user_id = ? AND is_deleted = ? AND is_active = ? AND has_appointment_access = ?", userID, false, true, true).
		Where("(status IN ? OR (status = ? AND appointment_accessed_at IS NOT NULL))",
			[]models.SubscriptionStatus{models.SubscriptionActive, models.SubscriptionTrialing, models.SubscriptionPastDue},
			models.SubscriptionCancelling).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// CheckAccess evaluates the window without ever stamping it. It still persists
// the terminal lock when the countdown is found to have run out, so the
// durable flag catches up with reality on read.
func (s *AccessService) CheckAccess(userID string, now time.Time) (AccessDecision, error) {
	sub, err := s.selectCandidate(userID)
	if err != nil {
		return AccessDecision{}, err
	}

	decision := EvaluateAccess(sub, now)
	if decision.State == AccessExpiredLocked && sub != nil && !sub.AppointmentAccessExpired {
		s.persistExpiry(sub.ID)
	}
	return decision, nil
}

// GrantAccess opens the window on first call and is idempotent afterwards.
// The stamp write is conditional on the column still being NULL so two racing
// first calls persist exactly one stamp; the loser recomputes from the
// winner's value.
func (s *AccessService) GrantAccess(userID string, now time.Time) (AccessDecision, error) {
	sub, err := s.selectCandidate(userID)
	if err != nil {
		return AccessDecision{}, err
	}

	decision := EvaluateAccess(sub, now)

	switch decision.State {
	case AccessNoSubscription:
		return decision, nil

	case AccessExpiredLocked:
		if !sub.AppointmentAccessExpired {
			s.persistExpiry(sub.ID)
		}
		return decision, nil

	case AccessActiveCountdown:
		// Already stamped; the grant is idempotent.
		return decision, nil
	}

	res := s.DB.Model(&models.UserSubscription{}).
		Where("id = ? AND appointment_accessed_at IS NULL", sub.ID).
		Update("appointment_accessed_at", now)
	if res.Error != nil {
		return AccessDecision{}, res.Error
	}

	if res.RowsAffected == 0 {
		// Lost the race: a concurrent call stamped first. Re-read and compute
		// the remaining time from that stamp.
		var fresh models.UserSubscription
		if err := s.DB.First(&fresh, "id = ?", sub.ID).Error; err != nil {
			return AccessDecision{}, err
		}
		decision = EvaluateAccess(&fresh, now)
		if decision.State == AccessExpiredLocked && !fresh.AppointmentAccessExpired {
			s.persistExpiry(fresh.ID)
		}
		return decision, nil
	}

	utils.LogSuccessWithUser(userID, "Appointment access window opened")
	return AccessDecision{
		State:          AccessActiveCountdown,
		TimeRemaining:  sub.AccessDuration(),
		IsFirstTime:    true,
		SubscriptionID: sub.ID,
	}, nil
}

// persistExpiry durably flips the terminal lock. Guarded so a stale caller
// cannot re-run the transition once it is recorded.
func (s *AccessService) persistExpiry(subscriptionID string) {
	err := s.DB.Model(&models.UserSubscription{}).
		Where("id = ? AND appointment_access_expired = ?", subscriptionID, false).
		Update("appointment_access_expired", true).Error
	if err != nil {
		utils.LogError(err, "Could not persist appointment access expiry")
	}
}

// OverrideAccessLedger is the admin-only reset of the ledger fields. It is the
// single sanctioned path out of the terminal locked state.
func (s *AccessService) OverrideAccessLedger(subscriptionID string, accessedAt *time.Time, expired bool, duration int) (*models.UserSubscription, error) {
	if duration < models.MinAppointmentAccessDuration || duration > models.MaxAppointmentAccessDuration {
		return nil, ErrInvalidDuration
	}

	var sub models.UserSubscription
	if err := s.DB.First(&sub, "id = ? AND is_deleted = ?", subscriptionID, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	err := s.DB.Model(&sub).Updates(map[string]interface{}{
		"appointment_accessed_at":     accessedAt,
		"appointment_access_expired":  expired,
		"appointment_access_duration": duration,
	}).Error
	if err != nil {
		return nil, err
	}

	sub.AppointmentAccessedAt = accessedAt
	sub.AppointmentAccessExpired = expired
	sub.AppointmentAccessDuration = duration
	return &sub, nil
}
