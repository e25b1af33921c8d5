package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tontin/internal/errors"
	"tontin/internal/models"
	"tontin/internal/pagination"
	"tontin/internal/services"
)

// ReminderHandler handles reminder requests.
type ReminderHandler struct {
	reminderService services.ReminderServicer
	auditService    services.AuditServicer
}

// NewReminderHandler creates a new ReminderHandler.
func NewReminderHandler(reminderService services.ReminderServicer, auditService services.AuditServicer) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService, auditService: auditService}
}

// RecurringRequest represents the recurrence part of a reminder payload.
type RecurringRequest struct {
	Frequency  string     `json:"frequency" binding:"required,frequency"`
	Interval   int        `json:"interval" binding:"omitempty,min=1"`
	DayOfMonth *int       `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	EndDate    *time.Time `json:"end_date"`
}

// CreateReminderRequest represents the request payload for creating a reminder.
type CreateReminderRequest struct {
	GroupID     *uint               `json:"group_id"`
	Title       string              `json:"title" binding:"required,min=1,max=200"`
	Description string              `json:"description" binding:"max=500"`
	Type        models.ReminderType `json:"type" binding:"omitempty,reminder_type"`
	DueAt       time.Time           `json:"due_at" binding:"required"`
	Amount      *int64              `json:"amount" binding:"omitempty,gt=0"`
	Recurring   *RecurringRequest   `json:"recurring"`
}

// UpdateReminderRequest represents the request payload for updating a reminder.
type UpdateReminderRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=500"`
	DueAt       *time.Time `json:"due_at"`
	Amount      *int64     `json:"amount" binding:"omitempty,gt=0"`
}

// CreateReminder handles the creation of a new reminder
// @Summary     Create a reminder
// @Description Create a reminder, optionally recurring
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateReminderRequest true "Reminder details"
// @Success     201 {object} models.Reminder "Reminder created"
// @Failure     400 {object} ErrorResponse "Invalid input or recurrence rule"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a group member"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders [post]
func (h *ReminderHandler) CreateReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	reminderType := req.Type
	if reminderType == "" {
		reminderType = models.ReminderTypeGeneral
	}

	var recurring *services.RecurringInput
	if req.Recurring != nil {
		recurring = &services.RecurringInput{
			Frequency:  req.Recurring.Frequency,
			Interval:   req.Recurring.Interval,
			DayOfMonth: req.Recurring.DayOfMonth,
			EndDate:    req.Recurring.EndDate,
		}
	}

	reminder, err := h.reminderService.CreateReminder(
		userID, req.GroupID, req.Title, req.Description, reminderType, req.DueAt, req.Amount, recurring,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_REMINDER", "reminder", reminder.ID, c.ClientIP(),
		map[string]interface{}{"title": req.Title, "recurring": req.Recurring != nil})

	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}

// GetReminders handles listing the user's reminders
// @Summary     Get reminders
// @Description Get a paginated list of the user's reminders, soonest due first
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       completed query bool false "Filter by completion state"
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Reminder] "Paginated reminders"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders [get]
func (h *ReminderHandler) GetReminders(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var completed *bool
	if v := c.Query("completed"); v != "" {
		switch v {
		case "true":
			b := true
			completed = &b
		case "false":
			b := false
			completed = &b
		default:
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid completed"))
			return
		}
	}

	result, err := h.reminderService.GetUserReminders(userID, page, completed)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUpcoming handles listing upcoming reminders
// @Summary     Get upcoming reminders
// @Description Get incomplete reminders due within the next n days
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Lookahead window in days (default 7)"
// @Success     200 {array} models.Reminder "Upcoming reminders"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/upcoming [get]
func (h *ReminderHandler) GetUpcoming(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days := 7
	if v := c.Query("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid days"))
			return
		}
		days = d
	}

	reminders, err := h.reminderService.GetUpcoming(userID, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// GetOverdue handles listing overdue reminders
// @Summary     Get overdue reminders
// @Description Get incomplete reminders whose due date has passed
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.Reminder "Overdue reminders"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/overdue [get]
func (h *ReminderHandler) GetOverdue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminders, err := h.reminderService.GetOverdue(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// GetReminderByID handles the retrieval of one reminder
// @Summary     Get reminder by ID
// @Description Get one of the user's reminders
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Reminder ID"
// @Success     200 {object} models.Reminder "Reminder"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [get]
func (h *ReminderHandler) GetReminderByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminder, err := h.reminderService.GetReminderByID(userID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// UpdateReminder handles updating a reminder
// @Summary     Update a reminder
// @Description Edit the mutable fields of an incomplete reminder
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                   true "Reminder ID"
// @Param       request body UpdateReminderRequest true "Reminder fields"
// @Success     200 {object} models.Reminder "Updated reminder"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     409 {object} ErrorResponse "Already completed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [put]
func (h *ReminderHandler) UpdateReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	reminder, err := h.reminderService.UpdateReminder(userID, reminderID, req.Title, req.Description, req.DueAt, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_REMINDER", "reminder", reminderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// CompleteReminder handles completing a reminder
// @Summary     Complete a reminder
// @Description Mark a reminder done; a recurring reminder spawns its next occurrence
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Reminder ID"
// @Success     200 {object} models.Reminder "Completed reminder and next occurrence"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     409 {object} ErrorResponse "Already completed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id}/complete [post]
func (h *ReminderHandler) CompleteReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	completed, next, err := h.reminderService.CompleteReminder(userID, reminderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "COMPLETE_REMINDER", "reminder", reminderID, c.ClientIP(),
		map[string]interface{}{"spawned_next": next != nil})

	c.JSON(http.StatusOK, gin.H{
		"reminder": completed,
		"next":     next,
	})
}

// DeleteReminder handles deleting a reminder
// @Summary     Delete a reminder
// @Description Delete one of the user's reminders
// @Tags        reminders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Reminder ID"
// @Success     200 {object} map[string]string "Reminder deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reminder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reminders/{id} [delete]
func (h *ReminderHandler) DeleteReminder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	reminderID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.reminderService.DeleteReminder(userID, reminderID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_REMINDER", "reminder", reminderID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "reminder deleted"})
}
