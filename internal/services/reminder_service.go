package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/pagination"
	"tontin/internal/recurrence"
)

// reminderService handles reminder business logic.
type reminderService struct {
	db     *gorm.DB
	groups GroupServicer
}

// NewReminderService creates a new ReminderServicer.
func NewReminderService(db *gorm.DB, groups GroupServicer) ReminderServicer {
	return &reminderService{db: db, groups: groups}
}

// CreateReminder creates a reminder, validating the recurrence rule when
// one is supplied.
func (s *reminderService) CreateReminder(userID uint, groupID *uint, title, description string, reminderType models.ReminderType, dueAt time.Time, amount *int64, recurring *RecurringInput) (*models.Reminder, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if dueAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "due date is required")
	}
	if amount != nil && *amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}

	if groupID != nil {
		member, err := s.groups.IsGroupMember(userID, *groupID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperrors.ErrNotAGroupMember
		}
	}

	reminder := &models.Reminder{
		UserID:      userID,
		GroupID:     groupID,
		Title:       title,
		Description: description,
		Type:        reminderType,
		DueAt:       dueAt,
		Amount:      amount,
	}

	if recurring != nil {
		interval := recurring.Interval
		if interval == 0 {
			interval = 1
		}
		rule := recurrence.Rule{
			Frequency:  recurrence.Frequency(recurring.Frequency),
			Interval:   interval,
			DayOfMonth: recurring.DayOfMonth,
			EndDate:    recurring.EndDate,
		}
		if !rule.Valid() {
			return nil, apperrors.ErrInvalidRecurrence
		}
		if rule.EndDate != nil && !rule.EndDate.After(dueAt) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidRecurrence, "end date must be after the first due date")
		}
		reminder.IsRecurring = true
		reminder.Frequency = string(rule.Frequency)
		reminder.Interval = rule.Interval
		reminder.DayOfMonth = rule.DayOfMonth
		reminder.EndDate = rule.EndDate
	}

	if err := s.db.Create(reminder).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return reminder, nil
}

// GetUserReminders lists the user's reminders, soonest due first.
func (s *reminderService) GetUserReminders(userID uint, page pagination.PageRequest, completed *bool) (*pagination.PageResponse[models.Reminder], error) {
	page.Defaults()

	query := s.db.Model(&models.Reminder{}).Where("user_id = ?", userID)
	if completed != nil {
		query = query.Where("is_completed = ?", *completed)
	}

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var reminders []models.Reminder
	if err := query.Order("due_at ASC, id ASC").
		Scopes(pagination.Paginate(page)).
		Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(reminders, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetReminderByID returns one of the user's reminders.
func (s *reminderService) GetReminderByID(userID, reminderID uint) (*models.Reminder, error) {
	var reminder models.Reminder
	if err := s.db.Where("id = ? AND user_id = ?", reminderID, userID).
		First(&reminder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReminderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &reminder, nil
}

// UpdateReminder edits mutable fields of an incomplete reminder.
func (s *reminderService) UpdateReminder(userID, reminderID uint, title, description *string, dueAt *time.Time, amount *int64) (*models.Reminder, error) {
	reminder, err := s.GetReminderByID(userID, reminderID)
	if err != nil {
		return nil, err
	}
	if reminder.IsCompleted {
		return nil, apperrors.ErrAlreadyCompleted
	}

	updates := map[string]interface{}{}
	if title != nil && *title != "" {
		updates["title"] = *title
	}
	if description != nil {
		updates["description"] = *description
	}
	if dueAt != nil && !dueAt.IsZero() {
		if reminder.EndDate != nil && !reminder.EndDate.After(*dueAt) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidRecurrence, "due date must come before the recurrence end date")
		}
		updates["due_at"] = *dueAt
		// Moving the due date resets the pending notification.
		updates["notification_sent"] = false
		updates["notification_sent_at"] = nil
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
		}
		updates["amount"] = *amount
	}
	if len(updates) == 0 {
		return reminder, nil
	}

	if err := s.db.Model(reminder).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var fresh models.Reminder
	if err := s.db.First(&fresh, reminderID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fresh, nil
}

// DeleteReminder removes one of the user's reminders.
func (s *reminderService) DeleteReminder(userID, reminderID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", reminderID, userID).Delete(&models.Reminder{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrReminderNotFound
	}
	return nil
}

// CompleteReminder marks a reminder done. For a recurring reminder the
// next occurrence is created as a fresh row, unless the recurrence has
// run past its end date. Returns the completed reminder and the spawned
// one (nil when none).
func (s *reminderService) CompleteReminder(userID, reminderID uint) (*models.Reminder, *models.Reminder, error) {
	var completed, next *models.Reminder
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var reminder models.Reminder
		if err := forUpdate(tx).Where("id = ? AND user_id = ?", reminderID, userID).
			First(&reminder).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrReminderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if reminder.IsCompleted {
			return apperrors.ErrAlreadyCompleted
		}

		now := time.Now()
		if err := tx.Model(&reminder).Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": now,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		reminder.IsCompleted = true
		reminder.CompletedAt = &now
		completed = &reminder

		rule, ok := reminder.Rule()
		if !ok {
			return nil
		}
		nextDue, ok := rule.Next(reminder.DueAt)
		if !ok {
			return nil
		}

		spawned := models.Reminder{
			UserID:      reminder.UserID,
			GroupID:     reminder.GroupID,
			Title:       reminder.Title,
			Description: reminder.Description,
			Type:        reminder.Type,
			DueAt:       nextDue,
			Amount:      reminder.Amount,
			IsRecurring: true,
			Frequency:   reminder.Frequency,
			Interval:    reminder.Interval,
			DayOfMonth:  reminder.DayOfMonth,
			EndDate:     reminder.EndDate,
		}
		if err := tx.Create(&spawned).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		next = &spawned
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return completed, next, nil
}

// GetUpcoming lists incomplete reminders due within the next n days.
func (s *reminderService) GetUpcoming(userID uint, days int) ([]models.Reminder, error) {
	if days <= 0 {
		days = 7
	}
	now := time.Now()
	until := now.AddDate(0, 0, days)

	var reminders []models.Reminder
	if err := s.db.Where("user_id = ? AND is_completed = ? AND due_at >= ? AND due_at < ?",
		userID, false, now, until).
		Order("due_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return reminders, nil
}

// GetOverdue lists incomplete reminders whose due date has passed.
func (s *reminderService) GetOverdue(userID uint) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := s.db.Where("user_id = ? AND is_completed = ? AND due_at < ?",
		userID, false, time.Now()).
		Order("due_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return reminders, nil
}

// PendingNotifications lists reminders across all users that are due within
// the window and have not been notified yet. Used by the scheduler.
func (s *reminderService) PendingNotifications(now time.Time, ahead time.Duration) ([]models.Reminder, error) {
	var reminders []models.Reminder
	if err := s.db.Preload("User").
		Where("is_completed = ? AND notification_sent = ? AND due_at < ?",
			false, false, now.Add(ahead)).
		Order("due_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return reminders, nil
}

// MarkNotificationSent records that a due notification went out, so the
// scheduler does not send it twice.
func (s *reminderService) MarkNotificationSent(reminderID uint) error {
	res := s.db.Model(&models.Reminder{}).
		Where("id = ? AND notification_sent = ?", reminderID, false).
		Updates(map[string]interface{}{
			"notification_sent":    true,
			"notification_sent_at": time.Now(),
		})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrReminderNotFound
	}
	return nil
}
