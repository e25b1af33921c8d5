package models

import "time"

// Event is a calendar entry, optionally linked to a transaction or a
// reminder. Links are cleared, not cascaded, when the target goes away.
type Event struct {
	Base
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	StartAt     time.Time  `gorm:"not null;index" json:"start_at"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	AllDay      bool       `gorm:"default:false" json:"all_day"`
	Color       string     `gorm:"size:7;default:#3B82F6" json:"color"`

	TransactionID *uint `json:"transaction_id,omitempty"`
	ReminderID    *uint `json:"reminder_id,omitempty"`

	User        User         `gorm:"foreignKey:UserID" json:"-"`
	Transaction *Transaction `gorm:"foreignKey:TransactionID" json:"transaction,omitempty"`
	Reminder    *Reminder    `gorm:"foreignKey:ReminderID" json:"reminder,omitempty"`
}
