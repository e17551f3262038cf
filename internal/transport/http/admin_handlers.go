package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/edunexus/server/internal/store"
)

// AdminHandlers provides HTTP handlers for administrative endpoints.
type AdminHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(st store.Store, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		store: st,
		log:   logger,
	}
}

// UpdateRoleRequest represents the role change request body.
type UpdateRoleRequest struct {
	Role store.Role `json:"role" binding:"required"`
}

// ListUsers handles listing all registered users.
// GET /api/admin/users
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, userResponse(u))
	}

	c.JSON(http.StatusOK, response)
}

// UpdateUserRole handles changing a user's role.
// PUT /api/admin/users/:id/role
func (h *AdminHandlers) UpdateUserRole(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
		return
	}

	// Admins cannot demote themselves. Keeps at least one working
	// admin credential if the request was a mistake.
	if uid, ok := currentUserID(c); ok && uid == id && req.Role != store.RoleAdmin {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot change own role"})
		return
	}

	if err := h.store.UpdateUserRole(c.Request.Context(), id, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to update user role")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", id).Str("role", string(req.Role)).Msg("user role updated")
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

// DeleteUser handles removing a user account.
// DELETE /api/admin/users/:id
func (h *AdminHandlers) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	if uid, ok := currentUserID(c); ok && uid == id {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot delete own account"})
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("user_id", id).Msg("user deleted")
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// GetStats handles the platform statistics endpoint.
// GET /api/admin/stats
func (h *AdminHandlers) GetStats(c *gin.Context) {
	stats, err := h.store.GetStats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
