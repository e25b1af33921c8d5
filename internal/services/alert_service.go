package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/logger"
	"tontin/internal/models"
	"tontin/internal/notify"
)

// alertService evaluates budget thresholds and publishes alerts. Repeat
// alerts for the same category and severity are suppressed for a day.
type alertService struct {
	db         *gorm.DB
	categories CategoryServicer
	publisher  notify.Publisher
	deduper    *notify.Deduper
}

// NewAlertService creates a new AlertServicer.
func NewAlertService(db *gorm.DB, categories CategoryServicer, publisher notify.Publisher) AlertServicer {
	return &alertService{
		db:         db,
		categories: categories,
		publisher:  publisher,
		deduper:    notify.NewDeduper(24 * time.Hour),
	}
}

// CheckUserBudgets evaluates every budgeted category visible to the user
// for the current month and publishes an alert for each one at or past
// its threshold. Returns the number of alerts published.
func (s *alertService) CheckUserBudgets(ctx context.Context, userID uint) (int, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := s.db.Where("(is_system = ? OR user_id = ?) AND budget IS NOT NULL", true, userID).
		Find(&categories).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	sent := 0
	for _, category := range categories {
		status, err := s.categories.GetBudgetStatus(userID, category.ID, now.Year(), now.Month())
		if err != nil {
			logger.Get().Errorw("budget status check failed",
				"user_id", userID, "category_id", category.ID, "error", err)
			continue
		}
		if status == nil || !status.IsAlert {
			continue
		}

		key := notify.BudgetAlertKey(userID, category.ID, status.IsOverBudget)
		if !s.deduper.ShouldSend(key) {
			continue
		}

		alert := notify.BudgetAlert{
			UserID:       userID,
			UserEmail:    user.Email,
			CategoryID:   category.ID,
			CategoryName: category.Name,
			CategoryIcon: category.Icon,
			Budget:       status.Budget,
			Spent:        status.Spent,
			Percentage:   status.Percentage,
			OverBudget:   status.IsOverBudget,
			Timestamp:    time.Now(),
		}
		if err := s.publisher.PublishBudgetAlert(ctx, alert); err != nil {
			logger.Get().Errorw("budget alert publish failed",
				"user_id", userID, "category_id", category.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

// CheckAllBudgets runs the budget check for every active user. Used by
// the scheduler.
func (s *alertService) CheckAllBudgets(ctx context.Context) (int, error) {
	var userIDs []uint
	if err := s.db.Model(&models.User{}).
		Where("is_active = ?", true).
		Pluck("id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := 0
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		sent, err := s.CheckUserBudgets(ctx, id)
		if err != nil {
			logger.Get().Errorw("budget check failed for user", "user_id", id, "error", err)
			continue
		}
		total += sent
	}
	return total, nil
}
