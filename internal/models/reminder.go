package models

import (
	"time"

	"tontin/internal/recurrence"
)

// ReminderType classifies what a reminder is about.
type ReminderType string

const (
	ReminderTypePayment ReminderType = "payment"
	ReminderTypeBill    ReminderType = "bill"
	ReminderTypeGeneral ReminderType = "general"
)

// Reminder is a scheduled notice, optionally recurring, belonging to a
// user and optionally scoped to a group. Completing a recurring reminder
// spawns a fresh row for the next occurrence; the completed row is never
// advanced in place.
type Reminder struct {
	Base
	UserID      uint         `gorm:"not null;index" json:"user_id"`
	GroupID     *uint        `gorm:"index" json:"group_id,omitempty"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Type        ReminderType `gorm:"not null;default:general" json:"type"`
	DueAt       time.Time    `gorm:"not null;index" json:"due_at"`
	Amount      *int64       `json:"amount,omitempty"`

	IsRecurring bool       `gorm:"default:false" json:"is_recurring"`
	Frequency   string     `json:"frequency,omitempty"`
	Interval    int        `gorm:"default:1" json:"interval,omitempty"`
	DayOfMonth  *int       `json:"day_of_month,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`

	IsCompleted        bool       `gorm:"default:false;index" json:"is_completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	NotificationSent   bool       `gorm:"default:false" json:"notification_sent"`
	NotificationSentAt *time.Time `json:"notification_sent_at,omitempty"`

	User  User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// Rule assembles the reminder's recurrence fields into a recurrence.Rule.
// Returns false when the reminder is not recurring.
func (r *Reminder) Rule() (recurrence.Rule, bool) {
	if !r.IsRecurring || r.Frequency == "" {
		return recurrence.Rule{}, false
	}
	return recurrence.Rule{
		Frequency:  recurrence.Frequency(r.Frequency),
		Interval:   r.Interval,
		DayOfMonth: r.DayOfMonth,
		EndDate:    r.EndDate,
	}, true
}

// IsOverdue reports whether the reminder is past due and not completed.
func (r *Reminder) IsOverdue(now time.Time) bool {
	return !r.IsCompleted && r.DueAt.Before(now)
}
