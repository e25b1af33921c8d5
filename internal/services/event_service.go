package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
)

// eventService handles calendar event business logic.
type eventService struct {
	db *gorm.DB
}

// NewEventService creates a new EventServicer.
func NewEventService(db *gorm.DB) EventServicer {
	return &eventService{db: db}
}

// CreateEvent adds a calendar entry, optionally linked to one of the
// user's transactions or reminders.
func (s *eventService) CreateEvent(userID uint, title, description string, startAt time.Time, endAt *time.Time, allDay bool, color string, transactionID, reminderID *uint) (*models.Event, error) {
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "title is required")
	}
	if startAt.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start time is required")
	}
	if endAt != nil && !endAt.After(startAt) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end time must be after start time")
	}

	if transactionID != nil {
		var count int64
		if err := s.db.Model(&models.Transaction{}).
			Where("id = ? AND user_id = ?", *transactionID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrTransactionNotFound
		}
	}
	if reminderID != nil {
		var count int64
		if err := s.db.Model(&models.Reminder{}).
			Where("id = ? AND user_id = ?", *reminderID, userID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrReminderNotFound
		}
	}

	event := &models.Event{
		UserID:        userID,
		Title:         title,
		Description:   description,
		StartAt:       startAt,
		EndAt:         endAt,
		AllDay:        allDay,
		Color:         color,
		TransactionID: transactionID,
		ReminderID:    reminderID,
	}
	if err := s.db.Create(event).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return event, nil
}

// GetEventsInRange lists the user's events overlapping [from, to).
func (s *eventService) GetEventsInRange(userID uint, from, to time.Time) ([]models.Event, error) {
	if !to.After(from) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "range end must be after range start")
	}

	var events []models.Event
	if err := s.db.Where("user_id = ?", userID).
		Where("start_at < ? AND (end_at IS NULL AND start_at >= ? OR end_at > ?)", to, from, from).
		Order("start_at ASC").
		Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return events, nil
}

// GetEventByID returns one of the user's events.
func (s *eventService) GetEventByID(userID, eventID uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.Where("id = ? AND user_id = ?", eventID, userID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &event, nil
}

// UpdateEvent edits event fields that were supplied.
func (s *eventService) UpdateEvent(userID, eventID uint, title, description *string, startAt, endAt *time.Time, allDay *bool, color *string) (*models.Event, error) {
	event, err := s.GetEventByID(userID, eventID)
	if err != nil {
		return nil, err
	}

	newStart := event.StartAt
	if startAt != nil && !startAt.IsZero() {
		newStart = *startAt
	}
	newEnd := event.EndAt
	if endAt != nil {
		newEnd = endAt
	}
	if newEnd != nil && !newEnd.After(newStart) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "end time must be after start time")
	}

	updates := map[string]interface{}{}
	if title != nil && *title != "" {
		updates["title"] = *title
	}
	if description != nil {
		updates["description"] = *description
	}
	if startAt != nil && !startAt.IsZero() {
		updates["start_at"] = *startAt
	}
	if endAt != nil {
		updates["end_at"] = *endAt
	}
	if allDay != nil {
		updates["all_day"] = *allDay
	}
	if color != nil && *color != "" {
		updates["color"] = *color
	}
	if len(updates) == 0 {
		return event, nil
	}

	if err := s.db.Model(event).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var fresh models.Event
	if err := s.db.First(&fresh, eventID).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fresh, nil
}

// DeleteEvent removes one of the user's events.
func (s *eventService) DeleteEvent(userID, eventID uint) error {
	res := s.db.Where("id = ? AND user_id = ?", eventID, userID).Delete(&models.Event{})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}
