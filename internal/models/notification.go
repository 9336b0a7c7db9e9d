package models

import "time"

// NotificationStatus is the delivery state of an SMS notification record.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is one SMS dispatch attempt (maps to the sms_notifications
// table). Created before the delivery attempt and updated in place after it
// resolves; never deleted.
type Notification struct {
	ID             string             `json:"id" db:"id"`
	TourID         string             `json:"tourId" db:"tour_id"`
	RecipientPhone string             `json:"recipientPhone" db:"recipient_phone"`
	Message        string             `json:"message" db:"message"`
	Status         NotificationStatus `json:"status" db:"status"`
	Reason         string             `json:"reason,omitempty" db:"reason"` // failure explanation, if any
	CreatedAt      time.Time          `json:"createdAt" db:"created_at"`
	SentAt         *time.Time         `json:"sentAt,omitempty" db:"sent_at"`
}
