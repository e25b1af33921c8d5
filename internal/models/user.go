package models

import "time"

// User represents the user model in the database. Accounts are never
// hard-deleted; IsActive is flipped off instead to preserve transaction
// and split history.
type User struct {
	Base
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	Password         string     `gorm:"not null" json:"-"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Currency         string     `gorm:"size:3;default:EUR" json:"currency"`
	Avatar           string     `json:"avatar,omitempty"`
	IsActive         bool       `gorm:"default:true" json:"is_active"`
	IsVerified       bool       `gorm:"default:false" json:"is_verified"`
	RefreshTokenHash string     `gorm:"size:64" json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`

	Categories   []Category    `gorm:"foreignKey:UserID" json:"categories,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:UserID" json:"transactions,omitempty"`
	Reminders    []Reminder    `gorm:"foreignKey:UserID" json:"reminders,omitempty"`
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// TokenPurpose distinguishes what a verification token may be redeemed for.
type TokenPurpose string

const (
	TokenPurposeEmailVerify   TokenPurpose = "email_verify"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// VerificationToken is a single-use token mailed to a user to verify their
// email address or reset their password. Delivery is handled outside this
// service; the token lifecycle (issued -> used | expired) lives here.
type VerificationToken struct {
	Base
	UserID    uint         `gorm:"not null;index" json:"user_id"`
	Token     string       `gorm:"uniqueIndex;not null" json:"-"`
	Purpose   TokenPurpose `gorm:"not null" json:"purpose"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	IsUsed    bool         `gorm:"default:false" json:"is_used"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Valid reports whether the token can still be redeemed at the given time.
func (t *VerificationToken) Valid(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}
