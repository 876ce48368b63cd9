package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"treasury/internal/pagination"
	"treasury/internal/services"
)

// AdminHandler serves the role permission table and the audit log.
type AdminHandler struct {
	permissionService services.PermissionServicer
	auditService      services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(permissionService services.PermissionServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{permissionService: permissionService, auditService: auditService}
}

// ListPermissions handles listing the role permission table
// @Summary     List role permissions
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {array} models.RolePermission
// @Router      /permissions [get]
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	if _, err := getActor(c); err != nil {
		respondWithError(c, err)
		return
	}

	perms, err := h.permissionService.List(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": perms})
}

// ListAuditLogs handles audit log listing
// @Summary     List audit logs
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       actor_id      query string false "Filter by actor"
// @Param       action        query string false "Filter by action"
// @Param       resource_type query string false "Filter by resource type"
// @Param       resource_id   query string false "Filter by resource"
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog]
// @Failure     403 {object} ErrorResponse "Permission denied"
// @Router      /audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
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

	var filter services.AuditFilter
	if filter.ActorID, err = optionalUUID(c, "actor_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ResourceID, err = optionalUUID(c, "resource_id"); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("action"); v != "" {
		filter.Action = &v
	}
	if v := c.Query("resource_type"); v != "" {
		filter.ResourceType = &v
	}

	result, err := h.auditService.ListAuditLogs(c.Request.Context(), actor, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
