package domain

import "time"

type Medicine struct {
	MedicineID   string    `json:"id" dynamodbav:"medicine_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	TimesPerDay  int       `json:"times_per_day" dynamodbav:"times_per_day"`
	TotalCount   int       `json:"total_count" dynamodbav:"total_count"`
	CurrentCount int       `json:"current_count" dynamodbav:"current_count"`
	Reminder     string    `json:"reminder,omitempty" dynamodbav:"reminder"` // optional custom reminder text
	Schedule     Schedule  `json:"schedule" dynamodbav:"schedule"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateMedicineRequest struct {
	Name         string `json:"name" validate:"required"`
	TimesPerDay  int    `json:"times_per_day" validate:"required,min=1"`
	TotalCount   int    `json:"total_count" validate:"min=0"`
	CurrentCount int    `json:"current_count" validate:"min=0"`
	Reminder     string `json:"reminder"`
	// ScheduleTime is the comma-separated list of HH:MM tokens, e.g. "08:00,20:30".
	ScheduleTime string `json:"schedule_time" validate:"required"`
}

type UpdateMedicineRequest struct {
	Name         *string `json:"name"`
	TimesPerDay  *int    `json:"times_per_day" validate:"omitempty,min=1"`
	TotalCount   *int    `json:"total_count" validate:"omitempty,min=0"`
	CurrentCount *int    `json:"current_count" validate:"omitempty,min=0"`
	Reminder     *string `json:"reminder"`
	ScheduleTime *string `json:"schedule_time"`
}
