package models

import (
	"time"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// QualiphyExamNotRequired is the exam-provider sentinel that currently grants
// telehealth page access.
const QualiphyExamNotRequired = "N/A"

type UserAppointment struct {
	ID                 string            `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID             string            `json:"userId" gorm:"type:uuid;not null;index"`
	SubscriptionID     *string           `json:"subscriptionId" gorm:"type:uuid;index"`
	IsFromSubscription bool              `json:"isFromSubscription"`
	SanityID           *string           `json:"sanityId" gorm:"index"`
	PaymentStatus      string            `json:"paymentStatus"`
	Status             AppointmentStatus `json:"status" gorm:"type:varchar(20);default:'scheduled'"`
	QualiphyExamStatus string            `json:"qualiphyExamStatus"`
	IsDeleted          bool              `json:"isDeleted"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}
