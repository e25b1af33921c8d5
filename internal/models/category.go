package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeBoth    CategoryType = "both"
)

// DefaultAlertThreshold is the budget percentage at which alerts fire
// when a category does not set its own threshold.
const DefaultAlertThreshold = 80

// Category represents a transaction category. A category is either a
// system category shared by everyone (UserID nil) or a custom category
// owned by a single user. Name is unique within its owner scope.
type Category struct {
	Base
	UserID         *uint        `gorm:"index" json:"user_id,omitempty"`
	Name           string       `gorm:"not null" json:"name"`
	Type           CategoryType `gorm:"not null;default:expense" json:"type"`
	Description    string       `json:"description"`
	Icon           string       `json:"icon"`
	Color          string       `gorm:"size:7" json:"color"`
	IsSystem       bool         `gorm:"default:false;index" json:"is_system"`
	Budget         *int64       `json:"budget,omitempty"`
	AlertThreshold int          `gorm:"default:80" json:"alert_threshold"`

	Transactions []Transaction `gorm:"foreignKey:CategoryID" json:"transactions,omitempty"`
}

// AllowsTransactionType reports whether a transaction of the given type may
// be filed under this category. Categories typed "both" accept either.
func (c *Category) AllowsTransactionType(t TransactionType) bool {
	switch c.Type {
	case CategoryTypeBoth:
		return true
	case CategoryTypeIncome:
		return t == TransactionTypeIncome
	case CategoryTypeExpense:
		return t == TransactionTypeExpense
	}
	return false
}

// ValidateOwnership checks the system/custom ownership invariant: system
// categories have no owner, custom categories must have one.
func (c *Category) ValidateOwnership() bool {
	if c.IsSystem {
		return c.UserID == nil
	}
	return c.UserID != nil
}
