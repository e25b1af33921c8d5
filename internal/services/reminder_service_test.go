package services

import (
	"testing"
	"time"

	"tontin/internal/models"
	"tontin/internal/testutil"
)

func TestCreateReminder(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		amount := int64(4500)
		reminder, err := svc.CreateReminder(user.ID, nil, "Rent", "", models.ReminderTypeBill, time.Now().Add(48*time.Hour), &amount, nil)
		testutil.AssertNoError(t, err)

		if reminder.IsRecurring {
			t.Error("reminder should not be recurring")
		}
		if reminder.Amount == nil || *reminder.Amount != 4500 {
			t.Errorf("expected amount 4500, got %v", reminder.Amount)
		}
	})

	t.Run("recurring", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		day := 1
		reminder, err := svc.CreateReminder(user.ID, nil, "Rent", "", models.ReminderTypeBill,
			time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC), nil,
			&RecurringInput{Frequency: "monthly", DayOfMonth: &day})
		testutil.AssertNoError(t, err)

		if !reminder.IsRecurring {
			t.Fatal("reminder should be recurring")
		}
		if reminder.Interval != 1 {
			t.Errorf("interval should default to 1, got %d", reminder.Interval)
		}
	})

	t.Run("invalid_frequency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		_, err := svc.CreateReminder(user.ID, nil, "Rent", "", models.ReminderTypeBill,
			time.Now().Add(time.Hour), nil, &RecurringInput{Frequency: "fortnightly"})
		testutil.AssertAppError(t, err, "INVALID_RECURRENCE")
	})

	t.Run("end_date_before_due_date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		due := time.Now().Add(48 * time.Hour)
		end := due.Add(-24 * time.Hour)
		_, err := svc.CreateReminder(user.ID, nil, "Rent", "", models.ReminderTypeBill,
			due, nil, &RecurringInput{Frequency: "weekly", EndDate: &end})
		testutil.AssertAppError(t, err, "INVALID_RECURRENCE")
	})

	t.Run("group_requires_membership", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		owner := testutil.CreateTestUser(t, db)
		outsider := testutil.CreateTestUser(t, db)
		group := testutil.CreateTestGroup(t, db, owner.ID)

		_, err := svc.CreateReminder(outsider.ID, &group.ID, "Utilities", "", models.ReminderTypeBill,
			time.Now().Add(time.Hour), nil, nil)
		testutil.AssertAppError(t, err, "NOT_A_GROUP_MEMBER")
	})
}

func TestCompleteReminder(t *testing.T) {
	t.Run("non_recurring_spawns_nothing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		reminder := testutil.CreateTestReminder(t, db, user.ID, time.Now())

		completed, next, err := svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertNoError(t, err)
		if !completed.IsCompleted || completed.CompletedAt == nil {
			t.Error("reminder should be completed with a timestamp")
		}
		if next != nil {
			t.Error("non-recurring reminder should not spawn a successor")
		}
	})

	t.Run("recurring_spawns_next_occurrence", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		due := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
		reminder := testutil.CreateTestRecurringReminder(t, db, user.ID, due, "monthly", 1)

		completed, next, err := svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertNoError(t, err)
		if !completed.IsCompleted {
			t.Error("original reminder should be completed")
		}
		if next == nil {
			t.Fatal("recurring reminder should spawn a successor")
		}
		if next.ID == completed.ID {
			t.Error("successor must be a fresh row")
		}
		wantDue := time.Date(2025, time.August, 1, 9, 0, 0, 0, time.UTC)
		if !next.DueAt.Equal(wantDue) {
			t.Errorf("expected next due %v, got %v", wantDue, next.DueAt)
		}
		if next.IsCompleted {
			t.Error("successor should start incomplete")
		}
		if next.NotificationSent {
			t.Error("successor should start unnotified")
		}
	})

	t.Run("end_date_stops_the_series", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)

		due := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
		end := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
		reminder := testutil.CreateTestRecurringReminder(t, db, user.ID, due, "monthly", 1)
		db.Model(&models.Reminder{}).Where("id = ?", reminder.ID).Update("end_date", end)

		_, next, err := svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertNoError(t, err)
		if next != nil {
			t.Error("series past its end date should not spawn a successor")
		}
	})

	t.Run("already_completed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		reminder := testutil.CreateTestReminder(t, db, user.ID, time.Now())

		_, _, err := svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertNoError(t, err)

		_, _, err = svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertAppError(t, err, "ALREADY_COMPLETED")
	})
}

func TestUpdateReminder(t *testing.T) {
	t.Run("completed_reminder_immutable", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		reminder := testutil.CreateTestReminder(t, db, user.ID, time.Now())

		_, _, err := svc.CompleteReminder(user.ID, reminder.ID)
		testutil.AssertNoError(t, err)

		title := "New title"
		_, err = svc.UpdateReminder(user.ID, reminder.ID, &title, nil, nil, nil)
		testutil.AssertAppError(t, err, "ALREADY_COMPLETED")
	})

	t.Run("moving_due_date_resets_notification", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewReminderService(db, NewGroupService(db))
		user := testutil.CreateTestUser(t, db)
		reminder := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(time.Hour))

		testutil.AssertNoError(t, svc.MarkNotificationSent(reminder.ID))

		newDue := time.Now().Add(72 * time.Hour)
		updated, err := svc.UpdateReminder(user.ID, reminder.ID, nil, nil, &newDue, nil)
		testutil.AssertNoError(t, err)

		if updated.NotificationSent {
			t.Error("moving the due date should reset the notification flag")
		}
	})
}

func TestUpcomingAndOverdue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReminderService(db, NewGroupService(db))
	user := testutil.CreateTestUser(t, db)

	overdue := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(-48*time.Hour))
	soon := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(48*time.Hour))
	testutil.CreateTestReminder(t, db, user.ID, time.Now().AddDate(0, 0, 30)) // far future

	t.Run("upcoming_within_window", func(t *testing.T) {
		upcoming, err := svc.GetUpcoming(user.ID, 7)
		testutil.AssertNoError(t, err)
		if len(upcoming) != 1 || upcoming[0].ID != soon.ID {
			t.Errorf("expected only the reminder due in 2 days, got %d reminders", len(upcoming))
		}
	})

	t.Run("overdue", func(t *testing.T) {
		late, err := svc.GetOverdue(user.ID)
		testutil.AssertNoError(t, err)
		if len(late) != 1 || late[0].ID != overdue.ID {
			t.Errorf("expected only the past-due reminder, got %d reminders", len(late))
		}
	})
}

func TestPendingNotifications(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewReminderService(db, NewGroupService(db))
	user := testutil.CreateTestUser(t, db)

	due := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(6*time.Hour))
	testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(200*time.Hour))

	pending, err := svc.PendingNotifications(time.Now(), 24*time.Hour)
	testutil.AssertNoError(t, err)
	if len(pending) != 1 || pending[0].ID != due.ID {
		t.Fatalf("expected only the reminder inside the lookahead window, got %d", len(pending))
	}
	if pending[0].User.ID != user.ID {
		t.Error("pending notification should carry the preloaded user")
	}

	testutil.AssertNoError(t, svc.MarkNotificationSent(due.ID))

	// Idempotent: marking again reports not found.
	err = svc.MarkNotificationSent(due.ID)
	testutil.AssertAppError(t, err, "REMINDER_NOT_FOUND")

	pending, err = svc.PendingNotifications(time.Now(), 24*time.Hour)
	testutil.AssertNoError(t, err)
	if len(pending) != 0 {
		t.Errorf("notified reminder should no longer be pending, got %d", len(pending))
	}
}
