package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/freightport/backend/internal/application/identity"
	"github.com/freightport/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler serves /admin/users
type UserHandler struct {
	BaseHandler
	users *identity.UserService
}

func NewUserHandler(users *identity.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateStaff godoc
// @ID           createStaffUser
// @Summary      Create a staff account
// @Description  Creates an ADMIN or OPERATOR account
// @Tags         admin-users
// @Accept       json
// @Produce      json
// @Param        request body CreateStaffRequest true "Staff account"
// @Success      201 {object} APIResponse[identity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users [post]
func (h *UserHandler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.users.CreateStaff(c.Request.Context(), actor(c), identity.CreateStaffInput{
		Username:    loginName(req.Username),
		Password:    req.Password,
		Email:       strings.TrimSpace(req.Email),
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	h.reply(c, http.StatusCreated, user, err)
}

// List godoc
// @ID           listUsers
// @Summary      List users
// @Tags         admin-users
// @Produce      json
// @Param        page       query int    false "Page number" default(1)
// @Param        page_size  query int    false "Page size" default(20) maximum(100)
// @Param        search     query string false "Username, email or name"
// @Param        role       query string false "ADMIN, OPERATOR or CUSTOMER"
// @Param        status     query string false "ACTIVE, LOCKED or DISABLED"
// @Param        company_id query string false "Company ID" format(uuid)
// @Success      200 {object} APIResponse[[]identity.UserDTO]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c, []string{"role", "status"}, nil, []string{"company_id"})
	if !ok {
		return
	}
	page, err := h.users.ListUsers(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Page(&h.BaseHandler, c, page)
}

// Disable godoc
// @ID           disableUser
// @Summary      Disable a user
// @Description  Disabled users cannot log in and their issued tokens are revoked
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/disable [post]
func (h *UserHandler) Disable(c *gin.Context) {
	h.transition(c, h.users.DisableUser)
}

// Enable godoc
// @ID           enableUser
// @Summary      Enable a disabled user
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/enable [post]
func (h *UserHandler) Enable(c *gin.Context) {
	h.transition(c, h.users.EnableUser)
}

// Unlock godoc
// @ID           unlockUser
// @Summary      Unlock a locked user
// @Tags         admin-users
// @Produce      json
// @Param        id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[identity.UserDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /admin/users/{id}/unlock [post]
func (h *UserHandler) Unlock(c *gin.Context) {
	h.transition(c, h.users.UnlockUser)
}

// transition runs one account state change on the :id user
func (h *UserHandler) transition(c *gin.Context, fn func(context.Context, shared.Actor, uuid.UUID) (*identity.UserDTO, error)) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	user, err := fn(c.Request.Context(), actor(c), id)
	h.reply(c, http.StatusOK, user, err)
}
