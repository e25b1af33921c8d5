package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/pagination"
	"tontin/internal/token"
)

const invitationTTL = 7 * 24 * time.Hour

// groupService handles group, membership and invitation business logic.
type groupService struct {
	db *gorm.DB
}

// NewGroupService creates a new GroupServicer.
func NewGroupService(db *gorm.DB) GroupServicer {
	return &groupService{db: db}
}

// CreateGroup creates a group and its owner's admin membership atomically.
func (s *groupService) CreateGroup(ownerID uint, name, description, currency, image string) (*models.Group, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "group name is required")
	}
	if currency == "" {
		currency = "EUR"
	}

	group := &models.Group{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Currency:    strings.ToUpper(currency),
		Image:       image,
		IsActive:    true,
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member := &models.GroupMember{
			GroupID:  group.ID,
			UserID:   ownerID,
			Role:     models.MemberRoleAdmin,
			Status:   models.MemberStatusActive,
			JoinedAt: &now,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetUserGroups lists the active groups the user is an active member of.
func (s *groupService) GetUserGroups(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error) {
	page.Defaults()

	query := s.db.Model(&models.Group{}).
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.status = ?", userID, models.MemberStatusActive).
		Where("groups.is_active = ?", true)

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var groups []models.Group
	if err := query.Order("groups.created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&groups).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(groups, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGroupByID returns a group the user is an active member of.
func (s *groupService) GetGroupByID(userID, groupID uint) (*models.Group, error) {
	member, err := s.IsGroupMember(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrGroupNotFound
	}

	var group models.Group
	if err := s.db.Preload("Owner").First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &group, nil
}

// UpdateGroup updates group metadata. Admin only. Currency is fixed at
// creation since balances are stored in it.
func (s *groupService) UpdateGroup(userID, groupID uint, name, description, image string) (*models.Group, error) {
	admin, err := s.IsGroupAdmin(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperrors.ErrNotGroupAdmin
	}

	var group models.Group
	if err := s.db.First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGroupNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if image != "" {
		updates["image"] = image
	}
	if len(updates) == 0 {
		return &group, nil
	}

	if err := s.db.Model(&group).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &group, nil
}

// DeactivateGroup disables a group. Only the owner may do this, and only
// when no other member is still active.
func (s *groupService) DeactivateGroup(userID, groupID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if group.OwnerID != userID {
			return apperrors.ErrNotGroupOwner
		}

		var activeOthers int64
		if err := tx.Model(&models.GroupMember{}).
			Where("group_id = ? AND status = ? AND user_id <> ?", groupID, models.MemberStatusActive, userID).
			Count(&activeOthers).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if activeOthers > 0 {
			return apperrors.ErrGroupNotEmpty
		}

		if err := tx.Model(&group).Update("is_active", false).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// IsGroupMember reports whether the user is an active member of an
// active group.
func (s *groupService) IsGroupMember(userID, groupID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("group_members.group_id = ? AND group_members.user_id = ? AND group_members.status = ?",
			groupID, userID, models.MemberStatusActive).
		Where("groups.is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// IsGroupAdmin reports whether the user is an active admin of an
// active group.
func (s *groupService) IsGroupAdmin(userID, groupID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.GroupMember{}).
		Joins("JOIN groups ON groups.id = group_members.group_id").
		Where("group_members.group_id = ? AND group_members.user_id = ? AND group_members.status = ? AND group_members.role = ?",
			groupID, userID, models.MemberStatusActive, models.MemberRoleAdmin).
		Where("groups.is_active = ?", true).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// GetMembers lists a group's memberships, active first. Any active member
// may read the roster.
func (s *groupService) GetMembers(userID, groupID uint) ([]models.GroupMember, error) {
	member, err := s.IsGroupMember(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotAGroupMember
	}

	var members []models.GroupMember
	if err := s.db.Preload("User").
		Where("group_id = ?", groupID).
		Order("status ASC, created_at ASC").
		Find(&members).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return members, nil
}

// activeMember fetches an active membership row inside a transaction,
// locked for update.
func activeMember(tx *gorm.DB, groupID, userID uint) (*models.GroupMember, error) {
	var member models.GroupMember
	if err := forUpdate(tx).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, models.MemberStatusActive).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &member, nil
}

// countActiveAdmins counts a group's active admins inside a transaction.
func countActiveAdmins(tx *gorm.DB, groupID uint) (int64, error) {
	var count int64
	err := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND status = ? AND role = ?", groupID, models.MemberStatusActive, models.MemberRoleAdmin).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count, nil
}

// PromoteMember grants the admin role. Caller must be an active admin.
func (s *groupService) PromoteMember(actorID, groupID, memberUserID uint) (*models.GroupMember, error) {
	var result *models.GroupMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		actor, err := activeMember(tx, groupID, actorID)
		if err != nil {
			return apperrors.ErrNotGroupAdmin
		}
		if !actor.IsAdmin() {
			return apperrors.ErrNotGroupAdmin
		}

		member, err := activeMember(tx, groupID, memberUserID)
		if err != nil {
			return err
		}
		if member.IsAdmin() {
			result = member
			return nil
		}

		if err := tx.Model(member).Update("role", models.MemberRoleAdmin).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member.Role = models.MemberRoleAdmin
		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DemoteMember revokes the admin role. Refused when it would leave the
// group with no active admin.
func (s *groupService) DemoteMember(actorID, groupID, memberUserID uint) (*models.GroupMember, error) {
	var result *models.GroupMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		actor, err := activeMember(tx, groupID, actorID)
		if err != nil {
			return apperrors.ErrNotGroupAdmin
		}
		if !actor.IsAdmin() {
			return apperrors.ErrNotGroupAdmin
		}

		member, err := activeMember(tx, groupID, memberUserID)
		if err != nil {
			return err
		}
		if !member.IsAdmin() {
			result = member
			return nil
		}

		admins, err := countActiveAdmins(tx, groupID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperrors.ErrLastAdmin
		}

		if err := tx.Model(member).Update("role", models.MemberRoleMember).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		member.Role = models.MemberRoleMember
		result = member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveMember marks a membership as left. Admins may remove anyone but
// the owner; refused when it would remove the last active admin.
func (s *groupService) RemoveMember(actorID, groupID, memberUserID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		actor, err := activeMember(tx, groupID, actorID)
		if err != nil {
			return apperrors.ErrNotGroupAdmin
		}
		if !actor.IsAdmin() {
			return apperrors.ErrNotGroupAdmin
		}
		if memberUserID == group.OwnerID {
			return apperrors.ErrOwnerRemoval
		}

		return markLeft(tx, groupID, memberUserID)
	})
}

// LeaveGroup marks the caller's own membership as left. The owner cannot
// leave; neither can the last active admin.
func (s *groupService) LeaveGroup(userID, groupID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := forUpdate(tx).First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrGroupNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if userID == group.OwnerID {
			return apperrors.ErrOwnerRemoval
		}

		return markLeft(tx, groupID, userID)
	})
}

// markLeft transitions an active membership to left, enforcing the
// last-admin invariant.
func markLeft(tx *gorm.DB, groupID, userID uint) error {
	member, err := activeMember(tx, groupID, userID)
	if err != nil {
		return err
	}

	if member.IsAdmin() {
		admins, err := countActiveAdmins(tx, groupID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return apperrors.ErrLastAdmin
		}
	}

	if err := tx.Model(member).Update("status", models.MemberStatusLeft).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// InviteToGroup creates a pending invitation for an email address.
// Admin only. An existing active member cannot be invited again.
func (s *groupService) InviteToGroup(actorID, groupID uint, email string) (*models.GroupInvitation, error) {
	if email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "email is required")
	}
	email = strings.ToLower(email)

	admin, err := s.IsGroupAdmin(actorID, groupID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperrors.ErrNotGroupAdmin
	}

	var existing int64
	err = s.db.Model(&models.GroupMember{}).
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ? AND group_members.status = ? AND users.email = ?",
			groupID, models.MemberStatusActive, email).
		Count(&existing).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateMember
	}

	invitation := &models.GroupInvitation{
		GroupID:     groupID,
		Email:       email,
		InvitedByID: actorID,
		Token:       token.New(),
		Status:      models.InvitationStatusPending,
		ExpiresAt:   time.Now().Add(invitationTTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// One pending invitation per (group, email); earlier ones expire.
		if err := tx.Model(&models.GroupInvitation{}).
			Where("group_id = ? AND email = ? AND status = ?", groupID, email, models.InvitationStatusPending).
			Update("status", models.InvitationStatusExpired).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Create(invitation).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invitation, nil
}

// GetInvitationByToken looks up an invitation for preview before accepting.
func (s *groupService) GetInvitationByToken(tokenStr string) (*models.GroupInvitation, error) {
	var invitation models.GroupInvitation
	if err := s.db.Preload("Group").Preload("InvitedBy").
		Where("token = ?", tokenStr).
		First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvitationNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &invitation, nil
}

// AcceptInvitation redeems an invitation for the calling user. The user's
// email must match the invited address. A membership row is created, or
// reactivated when the user was a member before and left.
func (s *groupService) AcceptInvitation(userID uint, tokenStr string) (*models.GroupMember, error) {
	var result *models.GroupMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var invitation models.GroupInvitation
		if err := forUpdate(tx).Where("token = ?", tokenStr).First(&invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInvitationNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !invitation.Valid(time.Now()) {
			return apperrors.ErrInvitationInvalid
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !strings.EqualFold(user.Email, invitation.Email) {
			return apperrors.ErrInvitationMismatch
		}

		var group models.Group
		if err := tx.First(&group, invitation.GroupID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !group.IsActive {
			return apperrors.ErrInvitationInvalid
		}

		now := time.Now()
		var member models.GroupMember
		err := tx.Where("group_id = ? AND user_id = ?", invitation.GroupID, userID).
			First(&member).Error
		switch {
		case err == nil:
			if member.IsActiveMember() {
				return apperrors.ErrDuplicateMember
			}
			if err := tx.Model(&member).Updates(map[string]interface{}{
				"status":        models.MemberStatusActive,
				"role":          models.MemberRoleMember,
				"invited_by_id": invitation.InvitedByID,
				"joined_at":     now,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			member.Status = models.MemberStatusActive
			member.Role = models.MemberRoleMember
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.GroupMember{
				GroupID:     invitation.GroupID,
				UserID:      userID,
				Role:        models.MemberRoleMember,
				Status:      models.MemberStatusActive,
				InvitedByID: &invitation.InvitedByID,
				JoinedAt:    &now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		default:
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Model(&invitation).Update("status", models.InvitationStatusAccepted).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		result = &member
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeclineInvitation marks a pending invitation declined.
func (s *groupService) DeclineInvitation(tokenStr string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var invitation models.GroupInvitation
		if err := forUpdate(tx).Where("token = ?", tokenStr).First(&invitation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInvitationNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !invitation.Valid(time.Now()) {
			return apperrors.ErrInvitationInvalid
		}
		if err := tx.Model(&invitation).Update("status", models.InvitationStatusDeclined).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetGroupBalance aggregates a group's income and expense totals.
func (s *groupService) GetGroupBalance(userID, groupID uint) (*GroupBalance, error) {
	member, err := s.IsGroupMember(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotAGroupMember
	}

	balance := &GroupBalance{}
	sum := func(dest *int64, t models.TransactionType) error {
		return s.db.Model(&models.Transaction{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("group_id = ? AND type = ?", groupID, t).
			Row().Scan(dest)
	}
	if err := sum(&balance.Income, models.TransactionTypeIncome); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := sum(&balance.Expense, models.TransactionTypeExpense); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	balance.Balance = balance.Income - balance.Expense
	return balance, nil
}

// GetMemberBalances computes each active member's net position: expenses
// they fronted for the group minus the shares allocated to them. The sum
// across members of (paid - owed) is zero when every expense is fully
// split. No debt simplification is attempted.
func (s *groupService) GetMemberBalances(userID, groupID uint) ([]MemberBalance, error) {
	members, err := s.GetMembers(userID, groupID)
	if err != nil {
		return nil, err
	}

	balances := make([]MemberBalance, 0, len(members))
	for _, m := range members {
		if !m.IsActiveMember() {
			continue
		}

		var paid int64
		err := s.db.Model(&models.Transaction{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("group_id = ? AND user_id = ? AND type = ?", groupID, m.UserID, models.TransactionTypeExpense).
			Row().Scan(&paid)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var owed int64
		err = s.db.Model(&models.ExpenseSplit{}).
			Select("COALESCE(SUM(expense_splits.amount), 0)").
			Joins("JOIN transactions ON transactions.id = expense_splits.transaction_id").
			Where("transactions.group_id = ? AND transactions.deleted_at IS NULL", groupID).
			Where("expense_splits.user_id = ?", m.UserID).
			Row().Scan(&owed)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		balances = append(balances, MemberBalance{
			UserID:    m.UserID,
			Email:     m.User.Email,
			FullName:  m.User.FullName(),
			TotalPaid: paid,
			TotalOwed: owed,
			Balance:   paid - owed,
		})
	}
	return balances, nil
}
