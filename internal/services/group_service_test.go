package services

import (
	"testing"
	"time"

	"tontin/internal/models"
	"tontin/internal/pagination"
	"tontin/internal/testutil"
)

func TestCreateGroup(t *testing.T) {
	t.Run("owner_becomes_active_admin", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)

		group, err := svc.CreateGroup(owner.ID, "Flatmates", "", "EUR", "")
		testutil.AssertNoError(t, err)

		var member models.GroupMember
		testutil.AssertNoError(t, db.Where("group_id = ? AND user_id = ?", group.ID, owner.ID).First(&member).Error)
		if !member.IsAdmin() {
			t.Error("owner should be an admin")
		}
		if !member.IsActiveMember() {
			t.Error("owner should be active")
		}
		if member.JoinedAt == nil {
			t.Error("owner's join time should be set")
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)

		_, err := svc.CreateGroup(owner.ID, "", "", "EUR", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserGroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGroupService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	mine := testutil.CreateTestGroup(t, db, user.ID)
	theirs := testutil.CreateTestGroup(t, db, other.ID)
	testutil.AddTestMember(t, db, theirs.ID, user.ID)
	testutil.CreateTestGroup(t, db, other.ID) // not a member of this one

	result, err := svc.GetUserGroups(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)

	if result.TotalItems != 2 {
		t.Fatalf("expected 2 groups, got %d", result.TotalItems)
	}
	ids := map[uint]bool{}
	for _, g := range result.Data {
		ids[g.ID] = true
	}
	if !ids[mine.ID] || !ids[theirs.ID] {
		t.Error("expected both the owned group and the joined group")
	}
}

func TestDeactivateGroup(t *testing.T) {
	t.Run("owner_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		admin := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestAdmin(t, db, group.ID, admin.ID)

		err := svc.DeactivateGroup(admin.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_OWNER")
	})

	t.Run("blocked_while_other_members_active", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)

		err := svc.DeactivateGroup(owner.ID, group.ID)
		testutil.AssertAppError(t, err, "GROUP_NOT_EMPTY")
	})

	t.Run("success_when_alone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		testutil.AssertNoError(t, svc.DeactivateGroup(owner.ID, group.ID))

		var stored models.Group
		testutil.AssertNoError(t, db.First(&stored, group.ID).Error)
		if stored.IsActive {
			t.Error("group should be inactive")
		}
	})
}

func TestPromoteDemoteMember(t *testing.T) {
	t.Run("promote_then_demote", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)

		promoted, err := svc.PromoteMember(owner.ID, group.ID, member.ID)
		testutil.AssertNoError(t, err)
		if !promoted.IsAdmin() {
			t.Error("member should be admin after promotion")
		}

		// With two admins, demoting one is allowed.
		demoted, err := svc.DemoteMember(owner.ID, group.ID, member.ID)
		testutil.AssertNoError(t, err)
		if demoted.IsAdmin() {
			t.Error("member should no longer be admin after demotion")
		}
	})

	t.Run("last_admin_cannot_be_demoted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		_, err := svc.DemoteMember(owner.ID, group.ID, owner.ID)
		testutil.AssertAppError(t, err, "LAST_ADMIN")
	})

	t.Run("non_admin_cannot_promote", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		a := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, a.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)

		_, err := svc.PromoteMember(a.ID, group.ID, b.ID)
		testutil.AssertAppError(t, err, "NOT_GROUP_ADMIN")
	})
}

func TestRemoveAndLeave(t *testing.T) {
	t.Run("owner_cannot_be_removed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		admin := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestAdmin(t, db, group.ID, admin.ID)

		err := svc.RemoveMember(admin.ID, group.ID, owner.ID)
		testutil.AssertAppError(t, err, "OWNER_REMOVAL")
	})

	t.Run("owner_cannot_leave", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)

		err := svc.LeaveGroup(owner.ID, group.ID)
		testutil.AssertAppError(t, err, "OWNER_REMOVAL")
	})

	t.Run("remove_marks_left", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)

		testutil.AssertNoError(t, svc.RemoveMember(owner.ID, group.ID, member.ID))

		var stored models.GroupMember
		testutil.AssertNoError(t, db.Where("group_id = ? AND user_id = ?", group.ID, member.ID).First(&stored).Error)
		if stored.Status != models.MemberStatusLeft {
			t.Errorf("expected status left, got %s", stored.Status)
		}

		isMember, err := svc.IsGroupMember(member.ID, group.ID)
		testutil.AssertNoError(t, err)
		if isMember {
			t.Error("removed member should no longer count as a member")
		}
	})

	t.Run("leaving_admin_needs_replacement", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		admin := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestAdmin(t, db, group.ID, admin.ID)

		// Two admins: the non-owner admin may leave.
		testutil.AssertNoError(t, svc.LeaveGroup(admin.ID, group.ID))
	})
}

func TestInvitationLifecycle(t *testing.T) {
	t.Run("invite_accept", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUserWithEmail(t, db, "invitee@example.com")
		group := testutil.CreateTestGroup(t, db, owner.ID)

		invitation, err := svc.InviteToGroup(owner.ID, group.ID, "Invitee@Example.com")
		testutil.AssertNoError(t, err)
		if invitation.Email != "invitee@example.com" {
			t.Errorf("expected lowercased email, got %q", invitation.Email)
		}

		member, err := svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertNoError(t, err)
		if !member.IsActiveMember() {
			t.Error("accepted invitee should be active")
		}
		if member.IsAdmin() {
			t.Error("accepted invitee should join as a regular member")
		}

		var stored models.GroupInvitation
		testutil.AssertNoError(t, db.First(&stored, invitation.ID).Error)
		if stored.Status != models.InvitationStatusAccepted {
			t.Errorf("expected accepted invitation, got %s", stored.Status)
		}
	})

	t.Run("accept_requires_matching_email", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		invitation, err := svc.InviteToGroup(owner.ID, group.ID, "someone-else@example.com")
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptInvitation(other.ID, invitation.Token)
		testutil.AssertAppError(t, err, "INVITATION_MISMATCH")
	})

	t.Run("expired_invitation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUserWithEmail(t, db, "late@example.com")
		group := testutil.CreateTestGroup(t, db, owner.ID)

		invitation, err := svc.InviteToGroup(owner.ID, group.ID, "late@example.com")
		testutil.AssertNoError(t, err)

		db.Model(&models.GroupInvitation{}).Where("id = ?", invitation.ID).
			Update("expires_at", time.Now().Add(-time.Hour))

		_, err = svc.AcceptInvitation(invitee.ID, invitation.Token)
		testutil.AssertAppError(t, err, "INVITATION_INVALID")
	})

	t.Run("reinvite_expires_previous_invitation", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		invitee := testutil.CreateTestUserWithEmail(t, db, "twice@example.com")
		group := testutil.CreateTestGroup(t, db, owner.ID)

		first, err := svc.InviteToGroup(owner.ID, group.ID, "twice@example.com")
		testutil.AssertNoError(t, err)
		second, err := svc.InviteToGroup(owner.ID, group.ID, "twice@example.com")
		testutil.AssertNoError(t, err)

		_, err = svc.AcceptInvitation(invitee.ID, first.Token)
		testutil.AssertAppError(t, err, "INVITATION_INVALID")

		_, err = svc.AcceptInvitation(invitee.ID, second.Token)
		testutil.AssertNoError(t, err)
	})

	t.Run("accept_reactivates_left_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		returning := testutil.CreateTestUserWithEmail(t, db, "returning@example.com")
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, returning.ID)

		testutil.AssertNoError(t, svc.LeaveGroup(returning.ID, group.ID))

		invitation, err := svc.InviteToGroup(owner.ID, group.ID, "returning@example.com")
		testutil.AssertNoError(t, err)

		member, err := svc.AcceptInvitation(returning.ID, invitation.Token)
		testutil.AssertNoError(t, err)
		if !member.IsActiveMember() {
			t.Error("membership should be reactivated")
		}

		// Still one membership row per (group, user).
		var count int64
		db.Model(&models.GroupMember{}).Where("group_id = ? AND user_id = ?", group.ID, returning.ID).Count(&count)
		if count != 1 {
			t.Errorf("expected a single membership row, got %d", count)
		}
	})

	t.Run("invite_existing_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUserWithEmail(t, db, "already@example.com")
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)

		_, err := svc.InviteToGroup(owner.ID, group.ID, "already@example.com")
		testutil.AssertAppError(t, err, "DUPLICATE_MEMBER")
	})

	t.Run("decline", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGroupService(db)
		owner := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		invitation, err := svc.InviteToGroup(owner.ID, group.ID, "declined@example.com")
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, svc.DeclineInvitation(invitation.Token))

		var stored models.GroupInvitation
		testutil.AssertNoError(t, db.First(&stored, invitation.ID).Error)
		if stored.Status != models.InvitationStatusDeclined {
			t.Errorf("expected declined, got %s", stored.Status)
		}
	})
}

func TestGroupBalances(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	groupSvc := NewGroupService(db)
	splitSvc := NewSplitService(db, groupSvc)

	a := testutil.CreateTestUser(t, db)
	b := testutil.CreateTestUser(t, db)
	c := testutil.CreateTestUser(t, db)
	group := testutil.CreateTestGroup(t, db, a.ID)
	testutil.AddTestMember(t, db, group.ID, b.ID)
	testutil.AddTestMember(t, db, group.ID, c.ID)
	category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)

	// A fronts 30000, split equally three ways.
	tx := testutil.CreateTestGroupExpense(t, db, a.ID, group.ID, category.ID, 30000)
	_, err := splitSvc.CreateSplits(a.ID, tx.ID, SplitModeEqual, nil)
	testutil.AssertNoError(t, err)

	t.Run("group_balance", func(t *testing.T) {
		balance, err := groupSvc.GetGroupBalance(a.ID, group.ID)
		testutil.AssertNoError(t, err)
		if balance.Expense != 30000 {
			t.Errorf("expected group expense 30000, got %d", balance.Expense)
		}
	})

	t.Run("member_balances", func(t *testing.T) {
		balances, err := groupSvc.GetMemberBalances(a.ID, group.ID)
		testutil.AssertNoError(t, err)
		if len(balances) != 3 {
			t.Fatalf("expected 3 member balances, got %d", len(balances))
		}

		byUser := map[uint]MemberBalance{}
		var sum int64
		for _, mb := range balances {
			byUser[mb.UserID] = mb
			sum += mb.Balance
		}

		if got := byUser[a.ID].Balance; got != 20000 {
			t.Errorf("payer balance: expected +20000, got %d", got)
		}
		if got := byUser[b.ID].Balance; got != -10000 {
			t.Errorf("member balance: expected -10000, got %d", got)
		}
		if got := byUser[c.ID].Balance; got != -10000 {
			t.Errorf("member balance: expected -10000, got %d", got)
		}
		if sum != 0 {
			t.Errorf("balances should sum to zero, got %d", sum)
		}
	})

	t.Run("non_member_denied", func(t *testing.T) {
		outsider := testutil.CreateTestUser(t, db)
		_, err := groupSvc.GetMemberBalances(outsider.ID, group.ID)
		testutil.AssertAppError(t, err, "NOT_A_GROUP_MEMBER")
	})
}
