package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db     *gorm.DB
	groups GroupServicer
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, groups GroupServicer) TransactionServicer {
	return &transactionService{db: db, groups: groups}
}

// CreateTransaction records an income or expense. Group transactions
// require an active membership, and the category must accept the type.
func (s *transactionService) CreateTransaction(userID uint, groupID *uint, categoryID uint, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be positive")
	}
	if transactionType != models.TransactionTypeIncome && transactionType != models.TransactionTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid transaction type")
	}
	if date.IsZero() {
		date = time.Now()
	}

	var category models.Category
	if err := s.db.Where("id = ? AND (is_system = ? OR user_id = ?)", categoryID, true, userID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !category.AllowsTransactionType(transactionType) {
		return nil, apperrors.ErrIncompatibleCategory
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

	transaction := &models.Transaction{
		UserID:      userID,
		GroupID:     groupID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: description,
		Date:        date,
	}
	if err := s.db.Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.db.Preload("Category").First(transaction, transaction.ID)
	return transaction, nil
}

// applyFilter narrows a transaction query with the optional filter fields.
func applyFilter(query *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date < ?", *filter.ToDate)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	if filter.Search != "" {
		query = query.Where("description LIKE ?", "%"+filter.Search+"%")
	}
	return query
}

// GetUserTransactions lists the user's own transactions, newest first.
// Pass filter.GroupID to narrow to one group, or leave it nil for all.
func (s *transactionService) GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	query := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	if filter.GroupID != nil {
		query = query.Where("group_id = ?", *filter.GroupID)
	}
	query = applyFilter(query, filter)

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := query.Preload("Category").
		Order("date DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetGroupTransactions lists a group's shared ledger. Any active member
// may read it.
func (s *transactionService) GetGroupTransactions(userID, groupID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	member, err := s.groups.IsGroupMember(userID, groupID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotAGroupMember
	}

	page.Defaults()

	query := applyFilter(s.db.Model(&models.Transaction{}).Where("group_id = ?", groupID), filter)

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := query.Preload("Category").Preload("User").Preload("Splits").
		Order("date DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID returns a transaction the user may see: their own,
// or any transaction in a group they belong to.
func (s *transactionService) GetTransactionByID(userID, transactionID uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Category").Preload("Splits").Preload("Splits.User").
		First(&transaction, transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if transaction.UserID != userID {
		if transaction.GroupID == nil {
			return nil, apperrors.ErrTransactionNotFound
		}
		member, err := s.groups.IsGroupMember(userID, *transaction.GroupID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, apperrors.ErrTransactionNotFound
		}
	}
	return &transaction, nil
}

// UpdateTransaction edits mutable fields of the caller's own transaction.
// Amount, type and group are immutable once splits may depend on them;
// delete and recreate instead.
func (s *transactionService) UpdateTransaction(userID, transactionID uint, description *string, date *time.Time, categoryID *uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{}
	if description != nil {
		updates["description"] = *description
	}
	if date != nil && !date.IsZero() {
		updates["date"] = *date
	}
	if categoryID != nil && *categoryID != transaction.CategoryID {
		var category models.Category
		if err := s.db.Where("id = ? AND (is_system = ? OR user_id = ?)", *categoryID, true, userID).
			First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !category.AllowsTransactionType(transaction.Type) {
			return nil, apperrors.ErrIncompatibleCategory
		}
		updates["category_id"] = *categoryID
	}
	if len(updates) == 0 {
		return &transaction, nil
	}

	if err := s.db.Model(&transaction).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.db.Preload("Category").First(&transaction, transaction.ID)
	return &transaction, nil
}

// DeleteTransaction soft-deletes the caller's own transaction. Its splits
// stay in place as history; balance queries join through the transaction
// and so stop counting them.
func (s *transactionService) DeleteTransaction(userID, transactionID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var transaction models.Transaction
		if err := forUpdate(tx).Where("id = ? AND user_id = ?", transactionID, userID).
			First(&transaction).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Delete(&transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetDashboard aggregates the user's personal finances: lifetime and
// current-month totals, recent activity and per-category breakdowns for
// the current month.
func (s *transactionService) GetDashboard(userID uint) (*Dashboard, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	dashboard := &Dashboard{}

	sum := func(dest *int64, t models.TransactionType, from, to *time.Time) error {
		query := s.db.Model(&models.Transaction{}).
			Select("COALESCE(SUM(amount), 0)").
			Where("user_id = ? AND type = ?", userID, t)
		if from != nil {
			query = query.Where("date >= ?", *from)
		}
		if to != nil {
			query = query.Where("date < ?", *to)
		}
		return query.Row().Scan(dest)
	}

	if err := sum(&dashboard.TotalIncome, models.TransactionTypeIncome, nil, nil); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := sum(&dashboard.TotalExpense, models.TransactionTypeExpense, nil, nil); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := sum(&dashboard.MonthlyIncome, models.TransactionTypeIncome, &monthStart, &monthEnd); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := sum(&dashboard.MonthlyExpense, models.TransactionTypeExpense, &monthStart, &monthEnd); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	dashboard.TotalBalance = dashboard.TotalIncome - dashboard.TotalExpense

	if err := s.db.Preload("Category").
		Where("user_id = ?", userID).
		Order("date DESC, id DESC").
		Limit(10).
		Find(&dashboard.RecentTransactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var err error
	dashboard.ExpenseByCategory, err = s.categoryBreakdown(userID, models.TransactionTypeExpense, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	dashboard.IncomeByCategory, err = s.categoryBreakdown(userID, models.TransactionTypeIncome, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}

	return dashboard, nil
}

func (s *transactionService) categoryBreakdown(userID uint, t models.TransactionType, from, to time.Time) ([]CategoryBreakdown, error) {
	var rows []CategoryBreakdown
	err := s.db.Model(&models.Transaction{}).
		Select("transactions.category_id, categories.name AS category_name, categories.icon AS category_icon, categories.color AS category_color, SUM(transactions.amount) AS total, COUNT(*) AS count").
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.user_id = ? AND transactions.type = ?", userID, t).
		Where("transactions.date >= ? AND transactions.date < ?", from, to).
		Where("transactions.deleted_at IS NULL").
		Group("transactions.category_id, categories.name, categories.icon, categories.color").
		Order("total DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var grandTotal int64
	for _, r := range rows {
		grandTotal += r.Total
	}
	if grandTotal > 0 {
		for i := range rows {
			rows[i].Percentage = float64(rows[i].Total) / float64(grandTotal) * 100
		}
	}
	return rows, nil
}

// GetMonthlySummary returns per-month income and expense totals for the
// last n months, oldest first. Months without activity still appear.
func (s *transactionService) GetMonthlySummary(userID uint, months int) ([]MonthSummary, error) {
	if months <= 0 {
		months = 6
	}
	if months > 24 {
		months = 24
	}

	now := time.Now().UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	summaries := make([]MonthSummary, 0, months)

	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		summary := MonthSummary{Year: start.Year(), Month: int(start.Month())}

		type agg struct {
			Type  models.TransactionType
			Total int64
			Count int64
		}
		var rows []agg
		err := s.db.Model(&models.Transaction{}).
			Select("type, SUM(amount) AS total, COUNT(*) AS count").
			Where("user_id = ? AND date >= ? AND date < ?", userID, start, end).
			Group("type").
			Scan(&rows).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, r := range rows {
			switch r.Type {
			case models.TransactionTypeIncome:
				summary.Income = r.Total
			case models.TransactionTypeExpense:
				summary.Expense = r.Total
			}
			summary.Count += r.Count
		}
		summary.Balance = summary.Income - summary.Expense
		summaries = append(summaries, summary)
	}

	return summaries, nil
}
