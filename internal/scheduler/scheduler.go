// Package scheduler runs the periodic background jobs: budget threshold
// checks and due-reminder notifications. Each pass is idempotent, so an
// overlapping or restarted run never double-sends.
package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tontin/internal/logger"
	"tontin/internal/notify"
	"tontin/internal/services"
)

// Scheduler drives the periodic jobs.
type Scheduler struct {
	alerts    services.AlertServicer
	reminders services.ReminderServicer
	publisher notify.Publisher

	budgetInterval   time.Duration
	reminderInterval time.Duration
	lookahead        time.Duration
}

// New creates a Scheduler.
func New(alerts services.AlertServicer, reminders services.ReminderServicer, publisher notify.Publisher, budgetInterval, reminderInterval, lookahead time.Duration) *Scheduler {
	return &Scheduler{
		alerts:           alerts,
		reminders:        reminders,
		publisher:        publisher,
		budgetInterval:   budgetInterval,
		reminderInterval: reminderInterval,
		lookahead:        lookahead,
	}
}

// Run executes both job loops until the context is cancelled. Each loop
// does one pass immediately on startup.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(ctx, "budget_check", s.budgetInterval, s.CheckBudgets)
	})
	g.Go(func() error {
		return s.loop(ctx, "reminder_check", s.reminderInterval, s.SendDueReminders)
	})

	return g.Wait()
}

// loop runs a job immediately and then on every tick. Job errors are
// logged, not fatal; only context cancellation stops the loop.
func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		start := time.Now()
		if err := job(ctx); err != nil {
			logger.Get().Errorw("scheduled job failed", "job", name, "error", err)
			return
		}
		logger.Get().Infow("scheduled job finished",
			"job", name, "duration_ms", time.Since(start).Milliseconds())
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}

// CheckBudgets evaluates every user's category budgets for the current
// month and publishes alerts for crossed thresholds.
func (s *Scheduler) CheckBudgets(ctx context.Context) error {
	sent, err := s.alerts.CheckAllBudgets(ctx)
	if err != nil {
		return err
	}
	if sent > 0 {
		logger.Get().Infow("budget alerts published", "count", sent)
	}
	return nil
}

// SendDueReminders publishes a notification for every incomplete reminder
// due within the lookahead window and marks it sent. Marking happens only
// after a successful publish, so a failed pass retries on the next tick.
func (s *Scheduler) SendDueReminders(ctx context.Context) error {
	now := time.Now()
	pending, err := s.reminders.PendingNotifications(now, s.lookahead)
	if err != nil {
		return err
	}

	for _, reminder := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		due := notify.ReminderDue{
			UserID:      reminder.UserID,
			UserEmail:   reminder.User.Email,
			ReminderID:  reminder.ID,
			Title:       reminder.Title,
			Description: reminder.Description,
			DueAt:       reminder.DueAt,
			Amount:      reminder.Amount,
			Urgent:      reminder.DueAt.Before(now),
			Timestamp:   time.Now(),
		}
		if err := s.publisher.PublishReminderDue(ctx, due); err != nil {
			logger.Get().Errorw("reminder notification publish failed",
				"reminder_id", reminder.ID, "error", err)
			continue
		}
		if err := s.reminders.MarkNotificationSent(reminder.ID); err != nil {
			logger.Get().Errorw("failed to mark reminder notification sent",
				"reminder_id", reminder.ID, "error", err)
		}
	}
	return nil
}
