package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/user/model"
	"library-backend/internal/domains/user/service"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

// UserHandler serves authentication, profile and account administration.
type UserHandler struct {
	service service.ServiceInterface
}

func NewUserHandler(service service.ServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// ========================================
// AUTHENTICATION ENDPOINTS
// ========================================

// Register handles POST /auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	info, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "successfully registered", info)
}

// Login handles POST /auth/login
func (h *UserHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully logged in", res)
}

// Logout handles POST /auth/logout. Every token of the account stops working.
func (h *UserHandler) Logout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully logged out", nil)
}

// ========================================
// PROFILE ENDPOINTS
// ========================================

// AboutMe handles GET /users/me
func (h *UserHandler) AboutMe(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	me, err := h.service.AboutMe(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully fetched user profile", me)
}

// ChangePassword handles PUT /users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	var req model.ChangePasswordRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully updated password", nil)
}

// ========================================
// ADMIN ENDPOINTS
// ========================================

// ListUsers handles GET /admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully fetched user infos", users)
}

// GetUser handles GET /admin/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidUserID)
	if !ok {
		return
	}

	info, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully fetched user info", info)
}

// CreateUser handles POST /admin/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	info, err := h.service.CreateUser(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "successfully created user", info)
}

// DeleteUser handles DELETE /admin/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidUserID)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully deleted user", nil)
}

// SetRole handles PUT /admin/users/:id/role
func (h *UserHandler) SetRole(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidUserID)
	if !ok {
		return
	}

	var req model.SetRoleRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	if err := h.service.SetRole(c.Request.Context(), id, *req.IsAdmin); err != nil {
		response.Error(c, err)
		return
	}

	msg := "successfully set admin as user"
	if *req.IsAdmin {
		msg = "successfully set user as admin"
	}
	response.Success(c, http.StatusOK, msg, nil)
}
