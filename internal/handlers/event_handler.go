package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "tontin/internal/errors"
	"tontin/internal/services"
)

// EventHandler handles calendar event requests.
type EventHandler struct {
	eventService services.EventServicer
	auditService services.AuditServicer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService services.EventServicer, auditService services.AuditServicer) *EventHandler {
	return &EventHandler{eventService: eventService, auditService: auditService}
}

// CreateEventRequest represents the request payload for creating an event.
type CreateEventRequest struct {
	Title         string     `json:"title" binding:"required,min=1,max=200"`
	Description   string     `json:"description" binding:"max=500"`
	StartAt       time.Time  `json:"start_at" binding:"required"`
	EndAt         *time.Time `json:"end_at"`
	AllDay        bool       `json:"all_day"`
	Color         string     `json:"color" binding:"omitempty,hex_color"`
	TransactionID *uint      `json:"transaction_id"`
	ReminderID    *uint      `json:"reminder_id"`
}

// UpdateEventRequest represents the request payload for updating an event.
type UpdateEventRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=500"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	AllDay      *bool      `json:"all_day"`
	Color       *string    `json:"color" binding:"omitempty,hex_color"`
}

// CreateEvent handles the creation of a new event
// @Summary     Create an event
// @Description Create a calendar event, optionally linked to a transaction or reminder
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateEventRequest true "Event details"
// @Success     201 {object} models.Event "Event created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Linked resource not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.eventService.CreateEvent(
		userID, req.Title, req.Description, req.StartAt, req.EndAt, req.AllDay, req.Color,
		req.TransactionID, req.ReminderID,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_EVENT", "event", event.ID, c.ClientIP(),
		map[string]interface{}{"title": req.Title})

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// GetEvents handles listing events in a time range
// @Summary     Get events
// @Description Get the user's events overlapping a time range. Defaults to the current month.
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Range start (RFC3339)"
// @Param       to   query string false "Range end (RFC3339, exclusive)"
// @Success     200 {array} models.Event "Events"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events [get]
func (h *EventHandler) GetEvents(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from date"))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to date"))
			return
		}
		to = t
	}

	events, err := h.eventService.GetEventsInRange(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEventByID handles the retrieval of one event
// @Summary     Get event by ID
// @Description Get one of the user's events
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Event ID"
// @Success     200 {object} models.Event "Event"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [get]
func (h *EventHandler) GetEventByID(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	event, err := h.eventService.GetEventByID(userID, eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// UpdateEvent handles updating an event
// @Summary     Update an event
// @Description Edit the fields of one of the user's events
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                true "Event ID"
// @Param       request body UpdateEventRequest true "Event fields"
// @Success     200 {object} models.Event "Updated event"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, err := h.eventService.UpdateEvent(
		userID, eventID, req.Title, req.Description, req.StartAt, req.EndAt, req.AllDay, req.Color,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_EVENT", "event", eventID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent handles deleting an event
// @Summary     Delete an event
// @Description Delete one of the user's events
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Event ID"
// @Success     200 {object} map[string]string "Event deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.eventService.DeleteEvent(userID, eventID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_EVENT", "event", eventID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}
