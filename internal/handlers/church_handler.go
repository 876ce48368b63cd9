package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/pagination"
	"treasury/internal/services"
)

// ChurchHandler handles church reference data.
type ChurchHandler struct {
	churchService services.ChurchServicer
}

// NewChurchHandler creates a new ChurchHandler.
func NewChurchHandler(churchService services.ChurchServicer) *ChurchHandler {
	return &ChurchHandler{churchService: churchService}
}

// CreateChurchRequest represents the request payload for registering a church.
type CreateChurchRequest struct {
	Name       string `json:"name" binding:"required,max=200"`
	City       string `json:"city" binding:"required,max=100"`
	PastorName string `json:"pastor_name" binding:"max=200"`
	Phone      string `json:"phone" binding:"max=50"`
}

// CreateChurch handles church registration
// @Summary     Register a church
// @Tags        churches
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateChurchRequest true "Church details"
// @Success     201 {object} models.Church
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     409 {object} ErrorResponse "Name already in use"
// @Router      /churches [post]
func (h *ChurchHandler) CreateChurch(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateChurchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	church, err := h.churchService.CreateChurch(c.Request.Context(), actor, services.ChurchInput{
		Name:       req.Name,
		City:       req.City,
		PastorName: req.PastorName,
		Phone:      req.Phone,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"church": church})
}

// ListChurches handles church listing
// @Summary     List churches
// @Tags        churches
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Church]
// @Router      /churches [get]
func (h *ChurchHandler) ListChurches(c *gin.Context) {
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

	result, err := h.churchService.ListChurches(c.Request.Context(), actor, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetChurch handles retrieval of a church
// @Summary     Get a church
// @Tags        churches
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Church ID"
// @Success     200 {object} models.Church
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Church not found"
// @Router      /churches/{id} [get]
func (h *ChurchHandler) GetChurch(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	churchID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	church, err := h.churchService.GetChurch(c.Request.Context(), actor, churchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"church": church})
}
