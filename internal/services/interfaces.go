package services

import (
	"context"
	"time"

	"tontin/internal/models"
	"tontin/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName, currency string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	UpdateProfile(userID uint, firstName, lastName, currency, avatar string) (*models.User, error)
	DeactivateUser(userID uint) error
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)

	IssueVerificationToken(userID uint, purpose models.TokenPurpose) (*models.VerificationToken, error)
	VerifyEmail(token string) (*models.User, error)
	ResetPassword(token, newPassword string) error
}

// BudgetStatus is the computed spent/remaining/alert state for a
// category's monthly budget. Amounts are in minor units.
type BudgetStatus struct {
	Budget         int64   `json:"budget"`
	Spent          int64   `json:"spent"`
	Remaining      int64   `json:"remaining"`
	Percentage     float64 `json:"percentage"`
	IsOverBudget   bool    `json:"is_over_budget"`
	IsAlert        bool    `json:"is_alert"`
	AlertThreshold int     `json:"alert_threshold"`
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(userID uint, name string, categoryType models.CategoryType, description, icon, color string, budget *int64, alertThreshold *int) (*models.Category, error)
	GetCategoriesForUser(userID uint, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(userID, categoryID uint) (*models.Category, error)
	UpdateCategory(userID, categoryID uint, name, description, icon, color string, budget *int64, alertThreshold *int) (*models.Category, error)
	DeleteCategory(userID, categoryID uint) error
	GetBudgetStatus(userID, categoryID uint, year int, month time.Month) (*BudgetStatus, error)
	SeedSystemCategories() (int, error)
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *uint
	GroupID    *uint
	MinAmount  *int64
	MaxAmount  *int64
	Search     string
}

// CategoryBreakdown is one row of a per-category aggregate.
type CategoryBreakdown struct {
	CategoryID    uint    `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryIcon  string  `json:"category_icon"`
	CategoryColor string  `json:"category_color"`
	Total         int64   `json:"total"`
	Count         int64   `json:"count"`
	Percentage    float64 `json:"percentage"`
}

// Dashboard aggregates a user's personal finances.
type Dashboard struct {
	TotalBalance       int64                `json:"total_balance"`
	TotalIncome        int64                `json:"total_income"`
	TotalExpense       int64                `json:"total_expense"`
	MonthlyIncome      int64                `json:"monthly_income"`
	MonthlyExpense     int64                `json:"monthly_expense"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
	ExpenseByCategory  []CategoryBreakdown  `json:"expense_by_category"`
	IncomeByCategory   []CategoryBreakdown  `json:"income_by_category"`
}

// MonthSummary is one month of income/expense totals.
type MonthSummary struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
	Count   int64 `json:"count"`
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID uint, groupID *uint, categoryID uint, transactionType models.TransactionType, amount int64, description string, date time.Time) (*models.Transaction, error)
	GetUserTransactions(userID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetGroupTransactions(userID, groupID uint, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID uint) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID uint, description *string, date *time.Time, categoryID *uint) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID uint) error
	GetDashboard(userID uint) (*Dashboard, error)
	GetMonthlySummary(userID uint, months int) ([]MonthSummary, error)
}

// GroupBalance is a group's aggregate income/expense position.
type GroupBalance struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// MemberBalance is one member's net position within a group: what they
// fronted minus what they owe. Positive means the group owes them.
type MemberBalance struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	TotalPaid int64  `json:"total_paid"`
	TotalOwed int64  `json:"total_owed"`
	Balance   int64  `json:"balance"`
}

// GroupServicer defines the contract for group and membership business logic.
type GroupServicer interface {
	CreateGroup(ownerID uint, name, description, currency, image string) (*models.Group, error)
	GetUserGroups(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Group], error)
	GetGroupByID(userID, groupID uint) (*models.Group, error)
	UpdateGroup(userID, groupID uint, name, description, image string) (*models.Group, error)
	DeactivateGroup(userID, groupID uint) error

	IsGroupMember(userID, groupID uint) (bool, error)
	IsGroupAdmin(userID, groupID uint) (bool, error)

	GetMembers(userID, groupID uint) ([]models.GroupMember, error)
	PromoteMember(actorID, groupID, memberUserID uint) (*models.GroupMember, error)
	DemoteMember(actorID, groupID, memberUserID uint) (*models.GroupMember, error)
	RemoveMember(actorID, groupID, memberUserID uint) error
	LeaveGroup(userID, groupID uint) error

	InviteToGroup(actorID, groupID uint, email string) (*models.GroupInvitation, error)
	GetInvitationByToken(tokenStr string) (*models.GroupInvitation, error)
	AcceptInvitation(userID uint, tokenStr string) (*models.GroupMember, error)
	DeclineInvitation(tokenStr string) error

	GetGroupBalance(userID, groupID uint) (*GroupBalance, error)
	GetMemberBalances(userID, groupID uint) ([]MemberBalance, error)
}

// SplitMode selects how a group expense is partitioned.
type SplitMode string

const (
	SplitModeEqual    SplitMode = "equal"
	SplitModeExplicit SplitMode = "explicit"
)

// SplitShare is one explicit share supplied by the caller.
type SplitShare struct {
	UserID uint  `json:"user_id"`
	Amount int64 `json:"amount"`
}

// SplitServicer defines the contract for expense-split business logic.
type SplitServicer interface {
	CreateSplits(userID, transactionID uint, mode SplitMode, shares []SplitShare) ([]models.ExpenseSplit, error)
	GetSplits(userID, transactionID uint) ([]models.ExpenseSplit, error)
	SetSplitPaid(userID, splitID uint, paid bool) (*models.ExpenseSplit, error)
}

// ReminderServicer defines the contract for reminder business logic.
type ReminderServicer interface {
	CreateReminder(userID uint, groupID *uint, title, description string, reminderType models.ReminderType, dueAt time.Time, amount *int64, recurring *RecurringInput) (*models.Reminder, error)
	GetUserReminders(userID uint, page pagination.PageRequest, completed *bool) (*pagination.PageResponse[models.Reminder], error)
	GetReminderByID(userID, reminderID uint) (*models.Reminder, error)
	UpdateReminder(userID, reminderID uint, title, description *string, dueAt *time.Time, amount *int64) (*models.Reminder, error)
	DeleteReminder(userID, reminderID uint) error
	CompleteReminder(userID, reminderID uint) (*models.Reminder, *models.Reminder, error)
	GetUpcoming(userID uint, days int) ([]models.Reminder, error)
	GetOverdue(userID uint) ([]models.Reminder, error)
	PendingNotifications(now time.Time, ahead time.Duration) ([]models.Reminder, error)
	MarkNotificationSent(reminderID uint) error
}

// RecurringInput carries the recurrence fields of a create-reminder request.
type RecurringInput struct {
	Frequency  string     `json:"frequency"`
	Interval   int        `json:"interval"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

// EventServicer defines the contract for calendar events.
type EventServicer interface {
	CreateEvent(userID uint, title, description string, startAt time.Time, endAt *time.Time, allDay bool, color string, transactionID, reminderID *uint) (*models.Event, error)
	GetEventsInRange(userID uint, from, to time.Time) ([]models.Event, error)
	GetEventByID(userID, eventID uint) (*models.Event, error)
	UpdateEvent(userID, eventID uint, title, description *string, startAt, endAt *time.Time, allDay *bool, color *string) (*models.Event, error)
	DeleteEvent(userID, eventID uint) error
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}

// AlertServicer defines the contract for budget alert evaluation.
type AlertServicer interface {
	CheckUserBudgets(ctx context.Context, userID uint) (int, error)
	CheckAllBudgets(ctx context.Context) (int, error)
}
