// Package notify carries structured notification payloads out of the core.
// The core never sends email or push itself; it publishes payloads that a
// delivery worker turns into actual messages.
package notify

import (
	"context"
	"time"
)

// BudgetAlert is emitted when a category's monthly spending crosses its
// alert threshold or exceeds its budget. Amounts are in minor units.
type BudgetAlert struct {
	UserID       uint      `json:"user_id"`
	UserEmail    string    `json:"user_email"`
	CategoryID   uint      `json:"category_id"`
	CategoryName string    `json:"category_name"`
	CategoryIcon string    `json:"category_icon,omitempty"`
	Budget       int64     `json:"budget"`
	Spent        int64     `json:"spent"`
	Percentage   float64   `json:"percentage"`
	OverBudget   bool      `json:"over_budget"`
	Timestamp    time.Time `json:"timestamp"`
}

// ReminderDue is emitted for reminders due today (urgent) or tomorrow
// (pre-alert).
type ReminderDue struct {
	UserID      uint      `json:"user_id"`
	UserEmail   string    `json:"user_email"`
	ReminderID  uint      `json:"reminder_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueAt       time.Time `json:"due_at"`
	Amount      *int64    `json:"amount,omitempty"`
	Urgent      bool      `json:"urgent"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher delivers notification payloads to the delivery collaborator.
type Publisher interface {
	PublishBudgetAlert(ctx context.Context, alert BudgetAlert) error
	PublishReminderDue(ctx context.Context, due ReminderDue) error
	Close() error
}
