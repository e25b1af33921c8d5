package models

import (
	"time"

	"gorm.io/gorm"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Transaction represents a financial transaction. Amount is in minor
// currency units and always positive; the sign is carried by Type. A
// transaction with a GroupID is shared ledger state for that group, one
// without is personal. Deletion is soft so split history survives.
type Transaction struct {
	Base
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	GroupID     *uint           `gorm:"index" json:"group_id,omitempty"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	User     User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Group    *Group         `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Category Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Splits   []ExpenseSplit `gorm:"foreignKey:TransactionID" json:"splits,omitempty"`
}

// IsPersonal reports whether the transaction belongs to no group.
func (t *Transaction) IsPersonal() bool {
	return t.GroupID == nil
}

// SignedAmount returns the amount with the sign implied by the type.
func (t *Transaction) SignedAmount() int64 {
	if t.Type == TransactionTypeExpense {
		return -t.Amount
	}
	return t.Amount
}

// Splittable reports whether splits may be created for this transaction:
// only group expenses are shared.
func (t *Transaction) Splittable() bool {
	return t.Type == TransactionTypeExpense && t.GroupID != nil
}

// ExpenseSplit is one member's obligated share of a group expense. Splits
// are unique per (transaction, user) and their amounts sum exactly to the
// transaction amount.
type ExpenseSplit struct {
	Base
	TransactionID uint       `gorm:"not null;uniqueIndex:idx_split_tx_user" json:"transaction_id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_split_tx_user;index" json:"user_id"`
	Amount        int64      `gorm:"type:bigint;not null" json:"amount"`
	IsPaid        bool       `gorm:"default:false" json:"is_paid"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`

	Transaction Transaction `gorm:"foreignKey:TransactionID" json:"-"`
	User        User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
