package services

import (
	"testing"
	"time"

	"tontin/internal/models"
	"tontin/internal/pagination"
	"tontin/internal/testutil"
)

// prevMonth returns a timestamp safely inside the month before t,
// anchored mid-month so day normalization cannot spill over.
func prevMonth(t time.Time) time.Time {
	start := time.Date(t.Year(), t.Month(), 1, 12, 0, 0, 0, time.UTC)
	return start.AddDate(0, -1, 14)
}

func TestCreateTransactionService(t *testing.T) {
	t.Run("personal_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)

		tx, err := svc.CreateTransaction(user.ID, nil, category.ID, models.TransactionTypeExpense, 2500, "Lunch", time.Now())
		testutil.AssertNoError(t, err)

		if tx.ID == 0 {
			t.Fatal("expected non-zero transaction ID")
		}
		if !tx.IsPersonal() {
			t.Error("transaction without a group should be personal")
		}
		if tx.Category.ID != category.ID {
			t.Error("category should be preloaded")
		}
	})

	t.Run("zero_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateTransaction(user.ID, nil, category.ID, models.TransactionTypeExpense, 0, "", time.Now())
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("income_into_expense_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)

		_, err := svc.CreateTransaction(user.ID, nil, category.ID, models.TransactionTypeIncome, 1000, "", time.Now())
		testutil.AssertAppError(t, err, "INCOMPATIBLE_CATEGORY")
	})

	t.Run("both_category_accepts_either_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeBoth)

		_, err := svc.CreateTransaction(user.ID, nil, category.ID, models.TransactionTypeIncome, 1000, "", time.Now())
		testutil.AssertNoError(t, err)
		_, err = svc.CreateTransaction(user.ID, nil, category.ID, models.TransactionTypeExpense, 1000, "", time.Now())
		testutil.AssertNoError(t, err)
	})

	t.Run("group_requires_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)

		_, err := svc.CreateTransaction(outsider.ID, &group.ID, category.ID, models.TransactionTypeExpense, 1000, "", time.Now())
		testutil.AssertAppError(t, err, "NOT_A_GROUP_MEMBER")

		_, err = svc.CreateTransaction(owner.ID, &group.ID, category.ID, models.TransactionTypeExpense, 1000, "", time.Now())
		testutil.AssertNoError(t, err)
	})

	t.Run("foreign_category_invisible", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		intruder := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, owner.ID)

		_, err := svc.CreateTransaction(intruder.ID, nil, category.ID, models.TransactionTypeExpense, 1000, "", time.Now())
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestGetTransactionByID(t *testing.T) {
	t.Run("own_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)
		tx := testutil.CreateTestTransaction(t, db, user.ID, category.ID, 1000)

		got, err := svc.GetTransactionByID(user.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if got.ID != tx.ID {
			t.Errorf("expected transaction %d, got %d", tx.ID, got.ID)
		}
	})

	t.Run("group_member_can_see_shared_transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 3000)

		_, err := svc.GetTransactionByID(member.ID, tx.ID)
		testutil.AssertNoError(t, err)
	})

	t.Run("strangers_personal_transaction_hidden", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		stranger := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, owner.ID)
		tx := testutil.CreateTestTransaction(t, db, owner.ID, category.ID, 1000)

		_, err := svc.GetTransactionByID(stranger.ID, tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestUpdateTransactionService(t *testing.T) {
	t.Run("updates_description_and_category", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)
		newCategory := testutil.CreateTestCategory(t, db, user.ID)
		tx := testutil.CreateTestTransaction(t, db, user.ID, category.ID, 1000)

		desc := "updated"
		updated, err := svc.UpdateTransaction(user.ID, tx.ID, &desc, nil, &newCategory.ID)
		testutil.AssertNoError(t, err)
		if updated.Description != "updated" {
			t.Errorf("expected updated description, got %q", updated.Description)
		}
		if updated.CategoryID != newCategory.ID {
			t.Errorf("expected category %d, got %d", newCategory.ID, updated.CategoryID)
		}
	})

	t.Run("new_category_must_accept_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, user.ID)
		incomeCategory := testutil.CreateTestIncomeCategory(t, db, user.ID)
		tx := testutil.CreateTestTransaction(t, db, user.ID, category.ID, 1000)

		_, err := svc.UpdateTransaction(user.ID, tx.ID, nil, nil, &incomeCategory.ID)
		testutil.AssertAppError(t, err, "INCOMPATIBLE_CATEGORY")
	})

	t.Run("only_owner_may_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, owner.ID)
		tx := testutil.CreateTestTransaction(t, db, owner.ID, category.ID, 1000)

		desc := "hijack"
		_, err := svc.UpdateTransaction(other.ID, tx.ID, &desc, nil, nil)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestDeleteTransactionService(t *testing.T) {
	t.Run("soft_delete_keeps_split_history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		groupSvc := NewGroupService(db)
		txSvc := NewTransactionService(db, groupSvc)
		splitSvc := NewSplitService(db, groupSvc)

		owner := testutil.CreateTestUser(t, db)
		member := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)
		testutil.AddTestMember(t, db, group.ID, member.ID)
		category := testutil.CreateTestSystemCategory(t, db, models.CategoryTypeExpense)
		tx := testutil.CreateTestGroupExpense(t, db, owner.ID, group.ID, category.ID, 3000)

		_, err := splitSvc.CreateSplits(owner.ID, tx.ID, SplitModeEqual, nil)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, txSvc.DeleteTransaction(owner.ID, tx.ID))

		_, err = txSvc.GetTransactionByID(owner.ID, tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")

		// The split rows survive as history.
		var splits int64
		db.Model(&models.ExpenseSplit{}).Where("transaction_id = ?", tx.ID).Count(&splits)
		if splits != 2 {
			t.Errorf("expected split history to survive, found %d rows", splits)
		}

		// Soft delete: the row survives for audit purposes.
		var raw int64
		db.Unscoped().Model(&models.Transaction{}).Where("id = ?", tx.ID).Count(&raw)
		if raw != 1 {
			t.Error("expected transaction row to remain with deleted_at set")
		}

		// Balances stop counting the deleted expense and its splits.
		balances, err := groupSvc.GetMemberBalances(owner.ID, group.ID)
		testutil.AssertNoError(t, err)
		for _, b := range balances {
			if b.TotalPaid != 0 || b.TotalOwed != 0 {
				t.Errorf("expected zero balances after delete, got paid=%d owed=%d for user %d",
					b.TotalPaid, b.TotalOwed, b.UserID)
			}
		}
	})

	t.Run("only_owner_may_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewTransactionService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		category := testutil.CreateTestCategory(t, db, owner.ID)
		tx := testutil.CreateTestTransaction(t, db, owner.ID, category.ID, 1000)

		err := svc.DeleteTransaction(other.ID, tx.ID)
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})
}

func TestGetUserTransactionsFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db, NewGroupService(db))
	user := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestCategory(t, db, user.ID)
	income := testutil.CreateTestIncomeCategory(t, db, user.ID)

	testutil.CreateTestTransaction(t, db, user.ID, expense.ID, 500)
	testutil.CreateTestTransaction(t, db, user.ID, expense.ID, 5000)
	testutil.CreateTestIncome(t, db, user.ID, income.ID, 90000)

	t.Run("type_filter", func(t *testing.T) {
		incomeType := models.TransactionTypeIncome
		result, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, TransactionFilter{Type: &incomeType})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 1 {
			t.Errorf("expected 1 income transaction, got %d", result.TotalItems)
		}
	})

	t.Run("amount_range", func(t *testing.T) {
		minAmount := int64(1000)
		result, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, TransactionFilter{MinAmount: &minAmount})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 2 {
			t.Errorf("expected 2 transactions of at least 1000, got %d", result.TotalItems)
		}
	})

	t.Run("no_filter_lists_all", func(t *testing.T) {
		result, err := svc.GetUserTransactions(user.ID, pagination.PageRequest{}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if result.TotalItems != 3 {
			t.Errorf("expected 3 transactions, got %d", result.TotalItems)
		}
	})
}

func TestGetDashboard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db, NewGroupService(db))
	user := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestCategory(t, db, user.ID)
	income := testutil.CreateTestIncomeCategory(t, db, user.ID)

	now := time.Now().UTC()
	testutil.CreateTestIncome(t, db, user.ID, income.ID, 100000)
	testutil.CreateTestTransactionAt(t, db, user.ID, expense.ID, 30000, now)
	// Previous month: counts toward lifetime totals, not monthly ones.
	testutil.CreateTestTransactionAt(t, db, user.ID, expense.ID, 5000, prevMonth(now))

	dashboard, err := svc.GetDashboard(user.ID)
	testutil.AssertNoError(t, err)

	if dashboard.TotalIncome != 100000 {
		t.Errorf("expected total income 100000, got %d", dashboard.TotalIncome)
	}
	if dashboard.TotalExpense != 35000 {
		t.Errorf("expected total expense 35000, got %d", dashboard.TotalExpense)
	}
	if dashboard.TotalBalance != 65000 {
		t.Errorf("expected balance 65000, got %d", dashboard.TotalBalance)
	}
	if dashboard.MonthlyExpense != 30000 {
		t.Errorf("expected monthly expense 30000, got %d", dashboard.MonthlyExpense)
	}
	if len(dashboard.RecentTransactions) != 3 {
		t.Errorf("expected 3 recent transactions, got %d", len(dashboard.RecentTransactions))
	}
	if len(dashboard.ExpenseByCategory) != 1 {
		t.Fatalf("expected 1 expense category row, got %d", len(dashboard.ExpenseByCategory))
	}
	if dashboard.ExpenseByCategory[0].Total != 30000 {
		t.Errorf("expected category total 30000 for the current month, got %d", dashboard.ExpenseByCategory[0].Total)
	}
}

func TestGetMonthlySummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db, NewGroupService(db))
	user := testutil.CreateTestUser(t, db)
	expense := testutil.CreateTestCategory(t, db, user.ID)
	income := testutil.CreateTestIncomeCategory(t, db, user.ID)

	now := time.Now().UTC()
	testutil.CreateTestTransactionAt(t, db, user.ID, expense.ID, 4000, now)
	testutil.CreateTestTransactionAt(t, db, user.ID, expense.ID, 6000, now)

	testutil.CreateTestTransactionAt(t, db, user.ID, expense.ID, 2000, prevMonth(now))
	testutil.CreateTestIncome(t, db, user.ID, income.ID, 50000)

	summary, err := svc.GetMonthlySummary(user.ID, 3)
	testutil.AssertNoError(t, err)

	if len(summary) != 3 {
		t.Fatalf("expected 3 months, got %d", len(summary))
	}

	// Oldest first; the last entry is the current month.
	current := summary[len(summary)-1]
	if current.Expense != 10000 {
		t.Errorf("expected current month expense 10000, got %d", current.Expense)
	}
	if current.Income != 50000 {
		t.Errorf("expected current month income 50000, got %d", current.Income)
	}
	if current.Balance != 40000 {
		t.Errorf("expected current month balance 40000, got %d", current.Balance)
	}

	previous := summary[len(summary)-2]
	if previous.Expense != 2000 {
		t.Errorf("expected previous month expense 2000, got %d", previous.Expense)
	}
}
