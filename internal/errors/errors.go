// Package errors provides custom error types for the Tontin API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrConflict       = &AppError{Code: "CONFLICT", Message: "Operation conflicts with current state", StatusCode: http.StatusConflict}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrTokenNotFound  = &AppError{Code: "TOKEN_NOT_FOUND", Message: "Verification token not found", StatusCode: http.StatusNotFound}
	ErrTokenInvalid   = &AppError{Code: "TOKEN_INVALID", Message: "Verification token is expired or already used", StatusCode: http.StatusBadRequest}
)

// Category errors.
var (
	ErrCategoryNotFound     = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse        = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions", StatusCode: http.StatusConflict}
	ErrSystemCategory       = &AppError{Code: "SYSTEM_CATEGORY", Message: "System categories cannot be modified or deleted", StatusCode: http.StatusForbidden}
	ErrIncompatibleCategory = &AppError{Code: "INCOMPATIBLE_CATEGORY", Message: "Category type is not compatible with the transaction type", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Group & membership errors.
var (
	ErrGroupNotFound      = &AppError{Code: "GROUP_NOT_FOUND", Message: "Group not found", StatusCode: http.StatusNotFound}
	ErrNotAGroupMember    = &AppError{Code: "NOT_A_GROUP_MEMBER", Message: "User is not an active member of this group", StatusCode: http.StatusBadRequest}
	ErrNotGroupAdmin      = &AppError{Code: "NOT_GROUP_ADMIN", Message: "Only group administrators may perform this action", StatusCode: http.StatusForbidden}
	ErrNotGroupOwner      = &AppError{Code: "NOT_GROUP_OWNER", Message: "Only the group owner may perform this action", StatusCode: http.StatusForbidden}
	ErrMemberNotFound     = &AppError{Code: "MEMBER_NOT_FOUND", Message: "Group member not found", StatusCode: http.StatusNotFound}
	ErrDuplicateMember    = &AppError{Code: "DUPLICATE_MEMBER", Message: "User is already a member of this group", StatusCode: http.StatusConflict}
	ErrLastAdmin          = &AppError{Code: "LAST_ADMIN", Message: "A group must keep at least one active administrator", StatusCode: http.StatusConflict}
	ErrOwnerRemoval       = &AppError{Code: "OWNER_REMOVAL", Message: "The group owner cannot be removed", StatusCode: http.StatusConflict}
	ErrGroupNotEmpty      = &AppError{Code: "GROUP_NOT_EMPTY", Message: "The group still has other active members", StatusCode: http.StatusConflict}
	ErrInvitationNotFound = &AppError{Code: "INVITATION_NOT_FOUND", Message: "Invitation not found", StatusCode: http.StatusNotFound}
	ErrInvitationInvalid  = &AppError{Code: "INVITATION_INVALID", Message: "Invitation is expired or no longer pending", StatusCode: http.StatusBadRequest}
	ErrInvitationMismatch = &AppError{Code: "INVITATION_MISMATCH", Message: "Invitation was issued for a different email address", StatusCode: http.StatusForbidden}
)

// Split errors.
var (
	ErrSplitNotFound      = &AppError{Code: "SPLIT_NOT_FOUND", Message: "Expense split not found", StatusCode: http.StatusNotFound}
	ErrInvalidSplitTarget = &AppError{Code: "INVALID_SPLIT_TARGET", Message: "Only group expenses can be split", StatusCode: http.StatusBadRequest}
	ErrSplitSumMismatch   = &AppError{Code: "SPLIT_SUM_MISMATCH", Message: "Split shares must sum exactly to the transaction amount", StatusCode: http.StatusBadRequest}
)

// Reminder errors.
var (
	ErrReminderNotFound  = &AppError{Code: "REMINDER_NOT_FOUND", Message: "Reminder not found", StatusCode: http.StatusNotFound}
	ErrAlreadyCompleted  = &AppError{Code: "ALREADY_COMPLETED", Message: "Reminder is already completed", StatusCode: http.StatusConflict}
	ErrInvalidRecurrence = &AppError{Code: "INVALID_RECURRENCE", Message: "Invalid recurrence rule", StatusCode: http.StatusBadRequest}
)

// Event errors.
var (
	ErrEventNotFound = &AppError{Code: "EVENT_NOT_FOUND", Message: "Event not found", StatusCode: http.StatusNotFound}
)
