package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/models"
	"treasury/internal/services"
)

// ProfileHandler handles profiles, role changes and fund director assignments.
type ProfileHandler struct {
	profileService services.ProfileServicer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService services.ProfileServicer) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// UpdateRoleRequest represents a role change. ChurchID is required for
// church-level roles.
type UpdateRoleRequest struct {
	Role     models.Role `json:"role" binding:"required,role"`
	ChurchID *string     `json:"church_id" binding:"omitempty,uuid"`
}

// CreateAssignmentRequest assigns a fund director to a fund, a church or both.
type CreateAssignmentRequest struct {
	ProfileID string  `json:"profile_id" binding:"required,uuid"`
	FundID    *string `json:"fund_id" binding:"omitempty,uuid"`
	ChurchID  *string `json:"church_id" binding:"omitempty,uuid"`
	Notes     string  `json:"notes" binding:"max=1000"`
}

// GetMe handles retrieval of the caller's own profile
// @Summary     Get current profile
// @Tags        profiles
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.Profile
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /profiles/me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), actor, actor.ProfileID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// GetProfile handles retrieval of a profile
// @Summary     Get a profile
// @Tags        profiles
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Profile ID"
// @Success     200 {object} models.Profile
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Profile not found"
// @Router      /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	profileID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), actor, profileID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateRole handles a role change
// @Summary     Change a profile's role
// @Description The caller must outrank both the current and the new role
// @Tags        profiles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Profile ID"
// @Param       request body UpdateRoleRequest true "New role"
// @Success     200 {object} models.Profile
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Failure     404 {object} ErrorResponse "Profile not found"
// @Router      /profiles/{id}/role [put]
func (h *ProfileHandler) UpdateRole(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	profileID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	profile, err := h.profileService.UpdateRole(c.Request.Context(), actor, profileID, req.Role, req.ChurchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// ListAssignments handles fund director assignment listing
// @Summary     List fund director assignments
// @Tags        assignments
// @Produce     json
// @Security    BearerAuth
// @Param       profile_id query string false "Filter by profile"
// @Success     200 {array} models.FundDirectorAssignment
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /assignments [get]
func (h *ProfileHandler) ListAssignments(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	profileID, err := optionalUUID(c, "profile_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	assignments, err := h.profileService.ListAssignments(c.Request.Context(), actor, profileID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

// CreateAssignment handles assigning a fund director
// @Summary     Assign a fund director
// @Tags        assignments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAssignmentRequest true "Assignment"
// @Success     201 {object} models.FundDirectorAssignment
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /assignments [post]
func (h *ProfileHandler) CreateAssignment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	assignment, err := h.profileService.CreateAssignment(c.Request.Context(), actor, services.AssignmentInput{
		ProfileID: req.ProfileID,
		FundID:    req.FundID,
		ChurchID:  req.ChurchID,
		Notes:     req.Notes,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

// DeleteAssignment handles removing a fund director assignment
// @Summary     Remove a fund director assignment
// @Tags        assignments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Assignment ID"
// @Success     200 {object} map[string]string "Assignment deleted"
// @Failure     404 {object} ErrorResponse "Assignment not found"
// @Router      /assignments/{id} [delete]
func (h *ProfileHandler) DeleteAssignment(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	assignmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.profileService.DeleteAssignment(c.Request.Context(), actor, assignmentID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Assignment deleted successfully"})
}
