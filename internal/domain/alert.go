package domain

import (
	"fmt"
	"time"
)

// Alert kinds.
const (
	AlertLowCount         = "low_count"
	AlertRefillNeeded     = "refill_needed"
	AlertScheduleReminder = "schedule_reminder"
	AlertMedicineTime     = "medicine_time"
	AlertOutOfStock       = "out_of_stock"
	AlertSyncSuccess      = "sync_success"
)

// Alert is an in-app notification. MedicineID is a soft reference: the
// medicine must exist when the alert is created, but the snapshot names are
// never rewritten afterwards, so renaming a medicine leaves old alerts
// carrying the old name. Box-level alerts (sync_success) have no MedicineID.
type Alert struct {
	AlertID      string    `json:"id" dynamodbav:"alert_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	MedicineID   string    `json:"medicine_id,omitempty" dynamodbav:"medicine_id"`
	MedicineName string    `json:"medicine_name,omitempty" dynamodbav:"medicine_name"`
	BoxName      string    `json:"box_name,omitempty" dynamodbav:"box_name"`
	Type         string    `json:"type" dynamodbav:"alert_type"`
	Message      string    `json:"message" dynamodbav:"message"`
	DedupeKey    string    `json:"-" dynamodbav:"dedupe_key,omitempty"`
	IsRead       bool      `json:"is_read" dynamodbav:"is_read"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

// DoseDedupeKey builds the composite key that scopes schedule-driven alerts
// to one per medicine, per kind, per calendar day, per schedule token.
func DoseDedupeKey(medicineID, kind string, day time.Time, token string) string {
	return fmt.Sprintf("%s|%s|%s|%s", medicineID, kind, day.Format("2006-01-02"), token)
}
