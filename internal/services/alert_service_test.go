package services

import (
	"context"
	"testing"

	"tontin/internal/notify"
	"tontin/internal/testutil"
)

// capturePublisher records published alerts instead of delivering them.
type capturePublisher struct {
	alerts []notify.BudgetAlert
}

func (p *capturePublisher) PublishBudgetAlert(_ context.Context, alert notify.BudgetAlert) error {
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *capturePublisher) PublishReminderDue(_ context.Context, _ notify.ReminderDue) error {
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestCheckUserBudgets(t *testing.T) {
	t.Run("publishes_alerts_past_threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		warning := testutil.CreateTestCategoryWithBudget(t, db, user.ID, 10000)
		testutil.CreateTestTransaction(t, db, user.ID, warning.ID, 8500)

		over := testutil.CreateTestCategoryWithBudget(t, db, user.ID, 5000)
		testutil.CreateTestTransaction(t, db, user.ID, over.ID, 6000)

		quiet := testutil.CreateTestCategoryWithBudget(t, db, user.ID, 10000)
		testutil.CreateTestTransaction(t, db, user.ID, quiet.ID, 1000)

		publisher := &capturePublisher{}
		svc := NewAlertService(db, NewCategoryService(db), publisher)

		sent, err := svc.CheckUserBudgets(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if sent != 2 {
			t.Fatalf("expected 2 alerts, got %d", sent)
		}

		byCategory := map[uint]notify.BudgetAlert{}
		for _, alert := range publisher.alerts {
			byCategory[alert.CategoryID] = alert
		}
		if alert := byCategory[warning.ID]; alert.OverBudget {
			t.Error("spend at 85 percent should not be flagged over budget")
		}
		if alert := byCategory[over.ID]; !alert.OverBudget {
			t.Error("spend past the budget should be flagged over budget")
		}
		if alert := byCategory[over.ID]; alert.UserEmail != user.Email {
			t.Errorf("expected alert for %s, got %s", user.Email, alert.UserEmail)
		}
	})

	t.Run("repeat_alerts_suppressed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		category := testutil.CreateTestCategoryWithBudget(t, db, user.ID, 10000)
		testutil.CreateTestTransaction(t, db, user.ID, category.ID, 9500)

		publisher := &capturePublisher{}
		svc := NewAlertService(db, NewCategoryService(db), publisher)

		sent, err := svc.CheckUserBudgets(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if sent != 1 {
			t.Fatalf("expected 1 alert on first pass, got %d", sent)
		}

		sent, err = svc.CheckUserBudgets(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if sent != 0 {
			t.Errorf("expected repeat alert to be suppressed, got %d", sent)
		}
	})

	t.Run("escalation_to_over_budget_not_suppressed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		category := testutil.CreateTestCategoryWithBudget(t, db, user.ID, 10000)
		testutil.CreateTestTransaction(t, db, user.ID, category.ID, 8500)

		publisher := &capturePublisher{}
		svc := NewAlertService(db, NewCategoryService(db), publisher)

		sent, err := svc.CheckUserBudgets(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if sent != 1 {
			t.Fatalf("expected warning alert, got %d", sent)
		}

		testutil.CreateTestTransaction(t, db, user.ID, category.ID, 3000)

		sent, err = svc.CheckUserBudgets(context.Background(), user.ID)
		testutil.AssertNoError(t, err)
		if sent != 1 {
			t.Fatalf("expected over-budget escalation alert, got %d", sent)
		}
		if last := publisher.alerts[len(publisher.alerts)-1]; !last.OverBudget {
			t.Error("escalation alert should be flagged over budget")
		}
	})
}

func TestCheckAllBudgets(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	active := testutil.CreateTestUser(t, db)
	category := testutil.CreateTestCategoryWithBudget(t, db, active.ID, 10000)
	testutil.CreateTestTransaction(t, db, active.ID, category.ID, 9000)

	inactive := testutil.CreateTestUser(t, db)
	inactiveCategory := testutil.CreateTestCategoryWithBudget(t, db, inactive.ID, 10000)
	testutil.CreateTestTransaction(t, db, inactive.ID, inactiveCategory.ID, 9000)
	if err := db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	publisher := &capturePublisher{}
	svc := NewAlertService(db, NewCategoryService(db), publisher)

	total, err := svc.CheckAllBudgets(context.Background())
	testutil.AssertNoError(t, err)
	if total != 1 {
		t.Fatalf("expected 1 alert across all users, got %d", total)
	}
	if publisher.alerts[0].UserID != active.ID {
		t.Errorf("alert should belong to the active user")
	}
}
