package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"tontin/internal/notify"
	"tontin/internal/services"
	"tontin/internal/testutil"
)

// capturePublisher records payloads and can be told to fail.
type capturePublisher struct {
	due  []notify.ReminderDue
	fail bool
}

func (p *capturePublisher) PublishBudgetAlert(_ context.Context, _ notify.BudgetAlert) error {
	return nil
}

func (p *capturePublisher) PublishReminderDue(_ context.Context, due notify.ReminderDue) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.due = append(p.due, due)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestSendDueReminders(t *testing.T) {
	t.Run("publishes_and_marks_sent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)

		overdue := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(-2*time.Hour))
		upcoming := testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(12*time.Hour))
		testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(96*time.Hour))

		publisher := &capturePublisher{}
		reminders := services.NewReminderService(db, services.NewGroupService(db))
		sched := New(nil, reminders, publisher, time.Hour, time.Hour, 24*time.Hour)

		if err := sched.SendDueReminders(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(publisher.due) != 2 {
			t.Fatalf("expected 2 notifications, got %d", len(publisher.due))
		}

		urgent := map[uint]bool{}
		for _, due := range publisher.due {
			if due.UserEmail != user.Email {
				t.Errorf("expected notification for %s, got %s", user.Email, due.UserEmail)
			}
			urgent[due.ReminderID] = due.Urgent
		}
		if !urgent[overdue.ID] {
			t.Error("overdue reminder should be urgent")
		}
		if urgent[upcoming.ID] {
			t.Error("upcoming reminder should not be urgent")
		}

		// A second pass must not resend.
		if err := sched.SendDueReminders(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(publisher.due) != 2 {
			t.Errorf("expected no resends, got %d notifications", len(publisher.due))
		}
	})

	t.Run("failed_publish_retries_next_pass", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestReminder(t, db, user.ID, time.Now().Add(time.Hour))

		publisher := &capturePublisher{fail: true}
		reminders := services.NewReminderService(db, services.NewGroupService(db))
		sched := New(nil, reminders, publisher, time.Hour, time.Hour, 24*time.Hour)

		if err := sched.SendDueReminders(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(publisher.due) != 0 {
			t.Fatalf("expected no notifications while broker is down, got %d", len(publisher.due))
		}

		publisher.fail = false
		if err := sched.SendDueReminders(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(publisher.due) != 1 {
			t.Errorf("expected notification after broker recovery, got %d", len(publisher.due))
		}
	})
}
