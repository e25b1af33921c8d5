package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/pagination"
)

// categoryService handles category and budget business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// systemCategorySeed is the default category set created on first run.
var systemCategorySeed = []models.Category{
	{Name: "Salary", Type: models.CategoryTypeIncome, Icon: "briefcase", Color: "#2ECC71"},
	{Name: "Freelance", Type: models.CategoryTypeIncome, Icon: "laptop", Color: "#27AE60"},
	{Name: "Investments", Type: models.CategoryTypeIncome, Icon: "trending-up", Color: "#16A085"},
	{Name: "Gifts", Type: models.CategoryTypeBoth, Icon: "gift", Color: "#9B59B6"},
	{Name: "Food", Type: models.CategoryTypeExpense, Icon: "utensils", Color: "#E74C3C"},
	{Name: "Groceries", Type: models.CategoryTypeExpense, Icon: "shopping-cart", Color: "#E67E22"},
	{Name: "Transport", Type: models.CategoryTypeExpense, Icon: "bus", Color: "#F39C12"},
	{Name: "Housing", Type: models.CategoryTypeExpense, Icon: "home", Color: "#3498DB"},
	{Name: "Utilities", Type: models.CategoryTypeExpense, Icon: "zap", Color: "#2980B9"},
	{Name: "Health", Type: models.CategoryTypeExpense, Icon: "heart", Color: "#E91E63"},
	{Name: "Entertainment", Type: models.CategoryTypeExpense, Icon: "film", Color: "#8E44AD"},
	{Name: "Shopping", Type: models.CategoryTypeExpense, Icon: "shopping-bag", Color: "#D35400"},
	{Name: "Education", Type: models.CategoryTypeExpense, Icon: "book", Color: "#1ABC9C"},
	{Name: "Other", Type: models.CategoryTypeBoth, Icon: "circle", Color: "#95A5A6"},
}

// SeedSystemCategories inserts any missing default categories. It is safe
// to call on every startup; existing rows are left untouched.
func (s *categoryService) SeedSystemCategories() (int, error) {
	created := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range systemCategorySeed {
			var count int64
			if err := tx.Model(&models.Category{}).
				Where("name = ? AND is_system = ?", seed.Name, true).
				Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				continue
			}
			cat := seed
			cat.IsSystem = true
			cat.AlertThreshold = models.DefaultAlertThreshold
			if err := tx.Create(&cat).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// CreateCategory creates a custom category owned by the user.
func (s *categoryService) CreateCategory(userID uint, name string, categoryType models.CategoryType, description, icon, color string, budget *int64, alertThreshold *int) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if budget != nil && *budget <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget must be positive")
	}

	threshold := models.DefaultAlertThreshold
	if alertThreshold != nil {
		if *alertThreshold < 1 || *alertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
		}
		threshold = *alertThreshold
	}

	// Name must be unique among the user's own categories and the system set.
	var count int64
	if err := s.db.Model(&models.Category{}).
		Where("name = ? AND (user_id = ? OR is_system = ?)", name, userID, true).
		Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.WithMessage(apperrors.ErrConflict, "a category with this name already exists")
	}

	category := &models.Category{
		UserID:         &userID,
		Name:           name,
		Type:           categoryType,
		Description:    description,
		Icon:           icon,
		Color:          color,
		Budget:         budget,
		AlertThreshold: threshold,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// GetCategoriesForUser lists the system categories plus the user's own,
// optionally filtered by type. A type filter also matches "both".
func (s *categoryService) GetCategoriesForUser(userID uint, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	query := s.db.Model(&models.Category{}).
		Where("is_system = ? OR user_id = ?", true, userID)
	if categoryType != nil {
		query = query.Where("type = ? OR type = ?", *categoryType, models.CategoryTypeBoth)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var categories []models.Category
	if err := query.Order("is_system DESC, name ASC").
		Scopes(pagination.Paginate(page)).
		Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(categories, page.Page, page.PageSize, total)
	return &result, nil
}

// GetCategoryByID returns a category visible to the user.
func (s *categoryService) GetCategoryByID(userID, categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ? AND (is_system = ? OR user_id = ?)", categoryID, true, userID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory updates a user-owned category. System categories are
// immutable except for per-user budgets, which live on custom copies.
func (s *categoryService) UpdateCategory(userID, categoryID uint, name, description, icon, color string, budget *int64, alertThreshold *int) (*models.Category, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.IsSystem {
		return nil, apperrors.ErrSystemCategory
	}

	updates := map[string]interface{}{}
	if name != "" && name != category.Name {
		var count int64
		if err := s.db.Model(&models.Category{}).
			Where("name = ? AND (user_id = ? OR is_system = ?) AND id <> ?", name, userID, true, categoryID).
			Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return nil, apperrors.WithMessage(apperrors.ErrConflict, "a category with this name already exists")
		}
		updates["name"] = name
	}
	if description != "" {
		updates["description"] = description
	}
	if icon != "" {
		updates["icon"] = icon
	}
	if color != "" {
		updates["color"] = color
	}
	if budget != nil {
		if *budget <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget must be positive")
		}
		updates["budget"] = *budget
	}
	if alertThreshold != nil {
		if *alertThreshold < 1 || *alertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
		}
		updates["alert_threshold"] = *alertThreshold
	}
	if len(updates) == 0 {
		return category, nil
	}

	if err := s.db.Model(category).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return category, nil
}

// DeleteCategory removes a user-owned category with no transactions.
func (s *categoryService) DeleteCategory(userID, categoryID uint) error {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return err
	}
	if category.IsSystem {
		return apperrors.ErrSystemCategory
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Transaction{}).
			Where("category_id = ?", categoryID).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrCategoryInUse
		}
		if err := tx.Delete(&models.Category{}, categoryID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetBudgetStatus computes the user's spend against a category budget for
// a calendar month. Nil is returned when the category carries no budget.
func (s *categoryService) GetBudgetStatus(userID, categoryID uint, year int, month time.Month) (*BudgetStatus, error) {
	category, err := s.GetCategoryByID(userID, categoryID)
	if err != nil {
		return nil, err
	}
	if category.Budget == nil || *category.Budget <= 0 {
		return nil, nil
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var spent int64
	row := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND category_id = ? AND type = ?", userID, categoryID, models.TransactionTypeExpense).
		Where("date >= ? AND date < ?", start, end).
		Row()
	if err := row.Scan(&spent); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return computeBudgetStatus(*category.Budget, spent, category.AlertThreshold), nil
}

// computeBudgetStatus derives the alert state from a budget and the amount
// spent. Remaining goes negative on overspend, mirroring the sign of the
// shortfall.
func computeBudgetStatus(budget, spent int64, alertThreshold int) *BudgetStatus {
	if alertThreshold <= 0 {
		alertThreshold = models.DefaultAlertThreshold
	}

	percentage := float64(spent) / float64(budget) * 100

	return &BudgetStatus{
		Budget:         budget,
		Spent:          spent,
		Remaining:      budget - spent,
		Percentage:     percentage,
		IsOverBudget:   spent > budget,
		IsAlert:        percentage >= float64(alertThreshold),
		AlertThreshold: alertThreshold,
	}
}
