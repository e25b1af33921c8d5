package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"tontin/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Currency: "EUR",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a custom expense category owned by the user.
func CreateTestCategory(t *testing.T, db *gorm.DB, userID uint) *models.Category {
	t.Helper()
	return createCategory(t, db, &userID, models.CategoryTypeExpense, nil)
}

// CreateTestIncomeCategory creates a custom income category owned by the user.
func CreateTestIncomeCategory(t *testing.T, db *gorm.DB, userID uint) *models.Category {
	t.Helper()
	return createCategory(t, db, &userID, models.CategoryTypeIncome, nil)
}

// CreateTestCategoryWithBudget creates an expense category carrying a
// monthly budget in minor units.
func CreateTestCategoryWithBudget(t *testing.T, db *gorm.DB, userID uint, budget int64) *models.Category {
	t.Helper()
	return createCategory(t, db, &userID, models.CategoryTypeExpense, &budget)
}

// CreateTestSystemCategory creates a shared system category.
func CreateTestSystemCategory(t *testing.T, db *gorm.DB, categoryType models.CategoryType) *models.Category {
	t.Helper()
	return createCategory(t, db, nil, categoryType, nil)
}

func createCategory(t *testing.T, db *gorm.DB, userID *uint, categoryType models.CategoryType, budget *int64) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:         userID,
		Name:           fmt.Sprintf("Test Category %d", nextID()),
		Type:           categoryType,
		IsSystem:       userID == nil,
		Budget:         budget,
		AlertThreshold: models.DefaultAlertThreshold,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates an expense transaction in minor units.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, nil, categoryID, models.TransactionTypeExpense, amount, time.Now())
}

// CreateTestTransactionAt creates an expense transaction dated at the given time.
func CreateTestTransactionAt(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64, date time.Time) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, nil, categoryID, models.TransactionTypeExpense, amount, date)
}

// CreateTestIncome creates an income transaction in minor units.
func CreateTestIncome(t *testing.T, db *gorm.DB, userID, categoryID uint, amount int64) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, nil, categoryID, models.TransactionTypeIncome, amount, time.Now())
}

// CreateTestGroupExpense creates an expense transaction in a group.
func CreateTestGroupExpense(t *testing.T, db *gorm.DB, userID, groupID, categoryID uint, amount int64) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, &groupID, categoryID, models.TransactionTypeExpense, amount, time.Now())
}

func createTransaction(t *testing.T, db *gorm.DB, userID uint, groupID *uint, categoryID uint, transactionType models.TransactionType, amount int64, date time.Time) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID:      userID,
		GroupID:     groupID,
		CategoryID:  categoryID,
		Type:        transactionType,
		Amount:      amount,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
	}
	if err := db.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// CreateTestGroup creates an active group with the owner as admin member.
func CreateTestGroup(t *testing.T, db *gorm.DB, ownerID uint) *models.Group {
	t.Helper()

	group := &models.Group{
		Name:     fmt.Sprintf("Test Group %d", nextID()),
		OwnerID:  ownerID,
		Currency: "EUR",
		IsActive: true,
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}

	now := time.Now()
	member := &models.GroupMember{
		GroupID:  group.ID,
		UserID:   ownerID,
		Role:     models.MemberRoleAdmin,
		Status:   models.MemberStatusActive,
		JoinedAt: &now,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create owner membership: %v", err)
	}
	return group
}

// AddTestMember adds an active member to a group.
func AddTestMember(t *testing.T, db *gorm.DB, groupID, userID uint) *models.GroupMember {
	t.Helper()
	return addMember(t, db, groupID, userID, models.MemberRoleMember)
}

// AddTestAdmin adds an active admin member to a group.
func AddTestAdmin(t *testing.T, db *gorm.DB, groupID, userID uint) *models.GroupMember {
	t.Helper()
	return addMember(t, db, groupID, userID, models.MemberRoleAdmin)
}

func addMember(t *testing.T, db *gorm.DB, groupID, userID uint, role models.MemberRole) *models.GroupMember {
	t.Helper()

	now := time.Now()
	member := &models.GroupMember{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		Status:   models.MemberStatusActive,
		JoinedAt: &now,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed to create test member: %v", err)
	}
	return member
}

// CreateTestReminder creates an incomplete, non-recurring reminder.
func CreateTestReminder(t *testing.T, db *gorm.DB, userID uint, dueAt time.Time) *models.Reminder {
	t.Helper()

	reminder := &models.Reminder{
		UserID: userID,
		Title:  fmt.Sprintf("Test Reminder %d", nextID()),
		Type:   models.ReminderTypeGeneral,
		DueAt:  dueAt,
	}
	if err := db.Create(reminder).Error; err != nil {
		t.Fatalf("failed to create test reminder: %v", err)
	}
	return reminder
}

// CreateTestRecurringReminder creates an incomplete recurring reminder.
func CreateTestRecurringReminder(t *testing.T, db *gorm.DB, userID uint, dueAt time.Time, frequency string, interval int) *models.Reminder {
	t.Helper()

	reminder := &models.Reminder{
		UserID:      userID,
		Title:       fmt.Sprintf("Test Reminder %d", nextID()),
		Type:        models.ReminderTypePayment,
		DueAt:       dueAt,
		IsRecurring: true,
		Frequency:   frequency,
		Interval:    interval,
	}
	if err := db.Create(reminder).Error; err != nil {
		t.Fatalf("failed to create test recurring reminder: %v", err)
	}
	return reminder
}
