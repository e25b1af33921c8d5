package services

import (
	"testing"

	"tontin/internal/models"
	"tontin/internal/testutil"
)

func TestCreateSplits(t *testing.T) {
	t.Run("equal_across_active_members", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		c := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		testutil.AddTestMember(t, db, group.ID, c.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 30000)

		splits, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		if len(splits) != 3 {
			t.Fatalf("expected 3 splits, got %d", len(splits))
		}
		var sum int64
		for _, sp := range splits {
			if sp.Amount != 10000 {
				t.Errorf("expected 10000 per member, got %d", sp.Amount)
			}
			sum += sp.Amount
		}
		if sum != tx.Amount {
			t.Errorf("splits sum to %d, want %d", sum, tx.Amount)
		}
	})

	t.Run("remainder_distributed_deterministically", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		c := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		testutil.AddTestMember(t, db, group.ID, c.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 100)

		first, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)
		second, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		var sum int64
		for i := range first {
			if first[i].UserID != second[i].UserID || first[i].Amount != second[i].Amount {
				t.Errorf("split %d differs between runs: %+v vs %+v", i, first[i], second[i])
			}
			sum += second[i].Amount
		}
		if sum != 100 {
			t.Errorf("splits sum to %d, want 100", sum)
		}

		// Replacement, not accumulation.
		var count int64
		db.Model(&models.ExpenseSplit{}).Where("transaction_id = ?", tx.ID).Count(&count)
		if count != 3 {
			t.Errorf("expected 3 split rows after re-split, got %d", count)
		}
	})

	t.Run("explicit_shares", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 10000)

		shares := []SplitShare{
			{UserID: owner.ID, Amount: 7000},
			{UserID: b.ID, Amount: 3000},
		}
		splits, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeExplicit, shares)
		testutil.AssertNoError(t, err)
		if len(splits) != 2 {
			t.Fatalf("expected 2 splits, got %d", len(splits))
		}
	})

	t.Run("explicit_sum_mismatch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 10000)

		shares := []SplitShare{
			{UserID: owner.ID, Amount: 7000},
			{UserID: b.ID, Amount: 2000},
		}
		_, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeExplicit, shares)
		testutil.AssertAppError(t, err, "SPLIT_SUM_MISMATCH")
	})

	t.Run("explicit_share_for_non_member", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 10000)

		shares := []SplitShare{
			{UserID: owner.ID, Amount: 5000},
			{UserID: outsider.ID, Amount: 5000},
		}
		_, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeExplicit, shares)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("personal_transaction_not_splittable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)
		tx := testutil.CreateTestTransaction(t, db, user.ID, category.ID, 5000)

		_, err := svc.CreateSplits(user.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertAppError(t, err, "INVALID_SPLIT_TARGET")
	})

	t.Run("non_member_cannot_split", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 10000)

		_, err := svc.CreateSplits(outsider.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertAppError(t, err, "NOT_A_GROUP_MEMBER")
	})
}

func TestSetSplitPaid(t *testing.T) {
	t.Run("share_owner_can_settle", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 10000)

		splits, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		var bShare models.ExpenseSplit
		for _, sp := range splits {
			if sp.UserID == b.ID {
				bShare = sp
			}
		}

		paid, err := svc.SetSplitPaid(b.ID, bShare.ID, true)
		testutil.AssertNoError(t, err)
		if !paid.IsPaid || paid.PaidAt == nil {
			t.Error("share should be marked paid with a timestamp")
		}

		// And back to unpaid.
		unpaid, err := svc.SetSplitPaid(b.ID, bShare.ID, false)
		testutil.AssertNoError(t, err)
		if unpaid.IsPaid || unpaid.PaidAt != nil {
			t.Error("share should be unpaid with no timestamp")
		}
	})

	t.Run("unrelated_member_denied", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		c := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		testutil.AddTestMember(t, db, group.ID, c.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 9000)

		splits, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		var bShare models.ExpenseSplit
		for _, sp := range splits {
			if sp.UserID == b.ID {
				bShare = sp
			}
		}

		// c is neither the share owner, the payer, nor an admin.
		_, err = svc.SetSplitPaid(c.ID, bShare.ID, true)
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})

	t.Run("payer_can_settle_any_share", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		svc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		b := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, b.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 8000)

		splits, err := svc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		var bShare models.ExpenseSplit
		for _, sp := range splits {
			if sp.UserID == b.ID {
				bShare = sp
			}
		}

		_, err = svc.SetSplitPaid(owner.ID, bShare.ID, true)
		testutil.AssertNoError(t, err)
	})
}
