package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/authz"
	"treasury/internal/models"
	"treasury/internal/pagination"
	"treasury/internal/services"
)

// EventHandler handles fund events, their budget items and actuals.
type EventHandler struct {
	eventService services.EventServicer
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService services.EventServicer) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// BudgetItemRequest represents a projected cost line.
type BudgetItemRequest struct {
	Category        string `json:"category" binding:"required,max=100"`
	Description     string `json:"description" binding:"max=500"`
	ProjectedAmount int64  `json:"projected_amount" binding:"gte=0"`
	Notes           string `json:"notes" binding:"max=1000"`
}

func (r BudgetItemRequest) input() services.BudgetItemInput {
	return services.BudgetItemInput{
		Category:        r.Category,
		Description:     r.Description,
		ProjectedAmount: r.ProjectedAmount,
		Notes:           r.Notes,
	}
}

// ActualRequest represents a realized income or expense line.
type ActualRequest struct {
	LineType    models.LineType `json:"line_type" binding:"required,line_type"`
	Description string          `json:"description" binding:"required,max=500"`
	Amount      int64           `json:"amount" binding:"gte=0"`
	ReceiptURL  *string         `json:"receipt_url" binding:"omitempty,url"`
	Notes       string          `json:"notes" binding:"max=1000"`
}

func (r ActualRequest) input() services.ActualInput {
	return services.ActualInput{
		LineType:    r.LineType,
		Description: r.Description,
		Amount:      r.Amount,
		ReceiptURL:  r.ReceiptURL,
		Notes:       r.Notes,
	}
}

// CreateEventRequest represents the request payload for creating an event.
type CreateEventRequest struct {
	FundID      string              `json:"fund_id" binding:"required,uuid"`
	ChurchID    *string             `json:"church_id" binding:"omitempty,uuid"`
	Name        string              `json:"name" binding:"required,max=200"`
	Description string              `json:"description" binding:"max=2000"`
	EventDate   string              `json:"event_date" binding:"required"`
	BudgetItems []BudgetItemRequest `json:"budget_items" binding:"dive"`
}

// UpdateEventRequest represents the request payload for updating an event.
type UpdateEventRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	EventDate   *string `json:"event_date"`
}

// TransitionRequest carries the optional comment of a status change.
type TransitionRequest struct {
	Comment string `json:"comment" binding:"max=1000"`
}

// RejectRequest carries the reason an event is sent back for revision.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// actorAndEvent resolves the caller and the :id path parameter. It writes
// the error response itself and reports false when either is missing.
func (h *EventHandler) actorAndEvent(c *gin.Context) (authz.Actor, string, bool) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return authz.Actor{}, "", false
	}
	eventID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return authz.Actor{}, "", false
	}
	return actor, eventID, true
}

// CreateEvent handles event creation
// @Summary     Create an event
// @Description Create a draft event for a fund with optional budget items
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateEventRequest true "Event details"
// @Success     201 {object} models.FundEvent "Event created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Fund or church not found"
// @Router      /events [post]
func (h *EventHandler) CreateEvent(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	eventDate, err := parseDate(req.EventDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	items := make([]services.BudgetItemInput, len(req.BudgetItems))
	for i, item := range req.BudgetItems {
		items[i] = item.input()
	}

	event, err := h.eventService.CreateEvent(c.Request.Context(), actor, services.CreateEventInput{
		FundID:      req.FundID,
		ChurchID:    req.ChurchID,
		Name:        req.Name,
		Description: req.Description,
		EventDate:   eventDate,
		BudgetItems: items,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListEvents handles event listing
// @Summary     List events
// @Description List the events visible to the caller, latest event date first
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       status    query string false "Filter by status"
// @Param       fund_id   query string false "Filter by fund"
// @Param       church_id query string false "Filter by church"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FundEvent]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	var query struct {
		Status *models.EventStatus `form:"status" binding:"omitempty,event_status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	filter := services.EventFilter{Status: query.Status}
	if filter.FundID, err = optionalUUID(c, "fund_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ChurchID, err = optionalUUID(c, "church_id"); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.eventService.ListEvents(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetEvent handles retrieval of an event with its budget, actuals and history
// @Summary     Get an event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {object} services.EventDetail
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Event not found"
// @Router      /events/{id} [get]
func (h *EventHandler) GetEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	detail, err := h.eventService.GetEvent(c.Request.Context(), actor, eventID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": detail})
}

// UpdateEvent handles event updates
// @Summary     Update an event
// @Description Change name, description or date of a draft or pending revision event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Event ID"
// @Param       request body UpdateEventRequest true "Changes"
// @Success     200 {object} models.FundEvent
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Event is not editable"
// @Router      /events/{id} [put]
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	eventDate, err := optionalDate(req.EventDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	event, err := h.eventService.UpdateEvent(c.Request.Context(), actor, eventID, services.UpdateEventInput{
		Name:        req.Name,
		Description: req.Description,
		EventDate:   eventDate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// DeleteEvent handles deletion of a draft event
// @Summary     Delete a draft event
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Event ID"
// @Success     200 {object} map[string]string "Event deleted"
// @Failure     409 {object} ErrorResponse "Event is not a draft"
// @Router      /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	if err := h.eventService.DeleteDraft(c.Request.Context(), actor, eventID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

// AddBudgetItem handles adding a budget item
// @Summary     Add a budget item
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Event ID"
// @Param       request body BudgetItemRequest true "Budget item"
// @Success     201 {object} models.EventBudgetItem
// @Failure     409 {object} ErrorResponse "Event is not editable"
// @Router      /events/{id}/budget-items [post]
func (h *EventHandler) AddBudgetItem(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	var req BudgetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	item, err := h.eventService.AddBudgetItem(c.Request.Context(), actor, eventID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget_item": item})
}

// UpdateBudgetItem handles budget item updates
// @Summary     Update a budget item
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Event ID"
// @Param       itemId  path string            true "Budget item ID"
// @Param       request body BudgetItemRequest true "Budget item"
// @Success     200 {object} models.EventBudgetItem
// @Failure     404 {object} ErrorResponse "Budget item not found"
// @Router      /events/{id}/budget-items/{itemId} [put]
func (h *EventHandler) UpdateBudgetItem(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	itemID, err := parsePathID(c, "itemId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BudgetItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	item, err := h.eventService.UpdateBudgetItem(c.Request.Context(), actor, eventID, itemID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget_item": item})
}

// DeleteBudgetItem handles budget item removal
// @Summary     Delete a budget item
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id     path string true "Event ID"
// @Param       itemId path string true "Budget item ID"
// @Success     200 {object} map[string]string "Budget item deleted"
// @Failure     404 {object} ErrorResponse "Budget item not found"
// @Router      /events/{id}/budget-items/{itemId} [delete]
func (h *EventHandler) DeleteBudgetItem(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	itemID, err := parsePathID(c, "itemId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.eventService.DeleteBudgetItem(c.Request.Context(), actor, eventID, itemID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget item deleted successfully"})
}

// AddActual handles recording a realized income or expense
// @Summary     Add an actual
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string        true "Event ID"
// @Param       request body ActualRequest true "Actual"
// @Success     201 {object} models.EventActual
// @Failure     409 {object} ErrorResponse "Event is not editable"
// @Router      /events/{id}/actuals [post]
func (h *EventHandler) AddActual(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	var req ActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	actual, err := h.eventService.AddActual(c.Request.Context(), actor, eventID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"actual": actual})
}

// UpdateActual handles actual updates
// @Summary     Update an actual
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id       path string        true "Event ID"
// @Param       actualId path string        true "Actual ID"
// @Param       request  body ActualRequest true "Actual"
// @Success     200 {object} models.EventActual
// @Failure     404 {object} ErrorResponse "Actual not found"
// @Router      /events/{id}/actuals/{actualId} [put]
func (h *EventHandler) UpdateActual(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	actualID, err := parsePathID(c, "actualId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ActualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	actual, err := h.eventService.UpdateActual(c.Request.Context(), actor, eventID, actualID, req.input())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"actual": actual})
}

// DeleteActual handles actual removal
// @Summary     Delete an actual
// @Tags        events
// @Produce     json
// @Security    BearerAuth
// @Param       id       path string true "Event ID"
// @Param       actualId path string true "Actual ID"
// @Success     200 {object} map[string]string "Actual deleted"
// @Failure     404 {object} ErrorResponse "Actual not found"
// @Router      /events/{id}/actuals/{actualId} [delete]
func (h *EventHandler) DeleteActual(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	actualID, err := parsePathID(c, "actualId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.eventService.DeleteActual(c.Request.Context(), actor, eventID, actualID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Actual deleted successfully"})
}

// SubmitEvent handles submission for approval
// @Summary     Submit an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true  "Event ID"
// @Param       request body TransitionRequest false "Comment"
// @Success     200 {object} models.FundEvent
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /events/{id}/submit [post]
func (h *EventHandler) SubmitEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	req, ok := bindOptionalJSON[TransitionRequest](c)
	if !ok {
		return
	}

	event, err := h.eventService.Submit(c.Request.Context(), actor, eventID, req.Comment)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// ApproveEvent handles approval
// @Summary     Approve an event
// @Description Post the event's actual income and expenses to its fund and mark it approved, atomically
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true  "Event ID"
// @Param       request body TransitionRequest false "Comment"
// @Success     200 {object} services.ApprovalSummary
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /events/{id}/approve [post]
func (h *EventHandler) ApproveEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	req, ok := bindOptionalJSON[TransitionRequest](c)
	if !ok {
		return
	}

	summary, err := h.eventService.Approve(c.Request.Context(), actor, eventID, req.Comment)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"approval": summary})
}

// RejectEvent handles sending an event back for revision
// @Summary     Reject an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string        true "Event ID"
// @Param       request body RejectRequest true "Reason"
// @Success     200 {object} models.FundEvent
// @Failure     400 {object} ErrorResponse "Reason missing"
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /events/{id}/reject [post]
func (h *EventHandler) RejectEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	event, err := h.eventService.Reject(c.Request.Context(), actor, eventID, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}

// CancelEvent handles cancellation
// @Summary     Cancel an event
// @Tags        events
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true  "Event ID"
// @Param       request body TransitionRequest false "Reason"
// @Success     200 {object} models.FundEvent
// @Failure     409 {object} ErrorResponse "Invalid state transition"
// @Router      /events/{id}/cancel [post]
func (h *EventHandler) CancelEvent(c *gin.Context) {
	actor, eventID, ok := h.actorAndEvent(c)
	if !ok {
		return
	}
	req, ok := bindOptionalJSON[TransitionRequest](c)
	if !ok {
		return
	}

	event, err := h.eventService.Cancel(c.Request.Context(), actor, eventID, req.Comment)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": event})
}
