package models

import "time"

// Group is a shared context in which several users track finances
// together. The owner is always an active admin member. Groups are
// deactivated rather than deleted so balances stay auditable.
type Group struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	OwnerID     uint   `gorm:"not null;index" json:"owner_id"`
	Image       string `json:"image,omitempty"`
	Currency    string `gorm:"size:3;default:EUR" json:"currency"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	Owner        User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members      []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Transactions []Transaction `gorm:"foreignKey:GroupID" json:"transactions,omitempty"`
}

// MemberRole represents a member's role within a group.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// MemberStatus represents the lifecycle state of a membership.
// A membership is never deleted; "left" is terminal.
type MemberStatus string

const (
	MemberStatusPending MemberStatus = "pending"
	MemberStatusActive  MemberStatus = "active"
	MemberStatusLeft    MemberStatus = "left"
)

// GroupMember is the (group, user) relation carrying role and status.
// A user appears at most once per group across its whole lifetime.
type GroupMember struct {
	Base
	GroupID     uint         `gorm:"not null;uniqueIndex:idx_member_group_user" json:"group_id"`
	UserID      uint         `gorm:"not null;uniqueIndex:idx_member_group_user;index" json:"user_id"`
	Role        MemberRole   `gorm:"not null;default:member" json:"role"`
	Status      MemberStatus `gorm:"not null;default:pending;index" json:"status"`
	InvitedByID *uint        `json:"invited_by_id,omitempty"`
	JoinedAt    *time.Time   `json:"joined_at,omitempty"`

	Group     Group `gorm:"foreignKey:GroupID" json:"-"`
	User      User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	InvitedBy *User `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

// IsAdmin reports whether the member holds the admin role.
func (m *GroupMember) IsAdmin() bool {
	return m.Role == MemberRoleAdmin
}

// IsActiveMember reports whether the membership is currently active.
func (m *GroupMember) IsActiveMember() bool {
	return m.Status == MemberStatusActive
}

// InvitationStatus represents the lifecycle state of a group invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusExpired  InvitationStatus = "expired"
)

// GroupInvitation invites an email address into a group via a unique
// token. Accepting creates (or reactivates) the membership.
type GroupInvitation struct {
	Base
	GroupID     uint             `gorm:"not null;index" json:"group_id"`
	Email       string           `gorm:"not null;index" json:"email"`
	InvitedByID uint             `gorm:"not null" json:"invited_by_id"`
	Token       string           `gorm:"uniqueIndex;not null" json:"-"`
	Status      InvitationStatus `gorm:"not null;default:pending;index" json:"status"`
	ExpiresAt   time.Time        `gorm:"not null" json:"expires_at"`

	Group     Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	InvitedBy User  `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

// Valid reports whether the invitation can still be accepted at the given time.
func (i *GroupInvitation) Valid(now time.Time) bool {
	return i.Status == InvitationStatusPending && now.Before(i.ExpiresAt)
}
