package services

import (
	"github.com/mudassar003/forher-sub003/models"
	"github.com/mudassar003/forher-sub003/utils"

	"gorm.io/gorm"
)

// CascadeService turns a CMS-side hard delete into soft-deletes of the
// dependent relational rows. Nothing is ever hard-deleted here.
type CascadeService struct {
	DB *gorm.DB
}

func NewCascadeService(database *gorm.DB) *CascadeService {
	return &CascadeService{DB: database}
}

// documentTables maps Sanity document types to relational tables. Document
// types this system does not mirror are expected; deletes for them are a
// no-op, not an error.
var documentTables = map[string]string{
	"userSubscription": "user_subscriptions",
	"userAppointment":  "user_appointments",
	"order":            "orders",
}

// DeleteOutcome describes what a CMS delete did on the relational side.
type DeleteOutcome struct {
	Acted          bool   `json:"acted"`
	Table          string `json:"table,omitempty"`
	Deleted        int64  `json:"deleted"`
	CascadeDeleted int64  `json:"cascadeDeleted"`
	CascadeError   string `json:"cascadeError,omitempty"`
}

// OnExternalDelete soft-deletes the rows mirrored by the deleted document and
// runs the dependent cascades. The primary soft-delete is the success
// criterion; cascade failures are logged and reported but never fail the
// parent.
func (s *CascadeService) OnExternalDelete(documentType, documentID string) (*DeleteOutcome, error) {
	table, ok := documentTables[documentType]
	if !ok {
		return &DeleteOutcome{Acted: false}, nil
	}

	outcome := &DeleteOutcome{Acted: true, Table: table}

	switch documentType {
	case "userSubscription":
		// Need the relational ids before the soft-delete to scope the cascade.
		var ids []string
		if err := s.DB.Model(&models.UserSubscription{}).
			Where("sanity_id = ? AND is_deleted = ?", documentID, false).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}

		res := s.DB.Model(&models.UserSubscription{}).
			Where("sanity_id = ? AND is_deleted = ?", documentID, false).
			Update("is_deleted", true)
		if res.Error != nil {
			return nil, res.Error
		}
		outcome.Deleted = res.RowsAffected

		if len(ids) > 0 {
			// Only subscription-granted appointments follow the subscription;
			// independently booked ones stay untouched.
			cascade := s.DB.Model(&models.UserAppointment{}).
				Where("subscription_id IN ? AND is_from_subscription = ? AND is_deleted = ?", ids, true, false).
				Update("is_deleted", true)
			if cascade.Error != nil {
				outcome.CascadeError = cascade.Error.Error()
				utils.LogError(cascade.Error, "Appointment cascade soft-delete failed")
			} else {
				outcome.CascadeDeleted = cascade.RowsAffected
			}
		}

	case "userAppointment":
		res := s.DB.Model(&models.UserAppointment{}).
			Where("sanity_id = ? AND is_deleted = ?", documentID, false).
			Update("is_deleted", true)
		if res.Error != nil {
			return nil, res.Error
		}
		outcome.Deleted = res.RowsAffected

	case "order":
		var ids []string
		if err := s.DB.Model(&models.Order{}).
			Where("sanity_id = ? AND is_deleted = ?", documentID, false).
			Pluck("id", &ids).Error; err != nil {
			return nil, err
		}

		res := s.DB.Model(&models.Order{}).
			Where("sanity_id = ? AND is_deleted = ?", documentID, false).
			Update("is_deleted", true)
		if res.Error != nil {
			return nil, res.Error
		}
		outcome.Deleted = res.RowsAffected

		if len(ids) > 0 {
			cascade := s.DB.Model(&models.OrderItem{}).
				Where("order_id IN ? AND is_deleted = ?", ids, false).
				Update("is_deleted", true)
			if cascade.Error != nil {
				outcome.CascadeError = cascade.Error.Error()
				utils.LogError(cascade.Error, "Order item cascade soft-delete failed")
			} else {
				outcome.CascadeDeleted = cascade.RowsAffected
			}
		}
	}

	return outcome, nil
}
