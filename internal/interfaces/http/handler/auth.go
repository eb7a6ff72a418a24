package handler

import (
	"net/http"
	"strings"

	"github.com/freightport/backend/internal/application/identity"
	"github.com/freightport/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves /auth: sessions and the caller's own account.
type AuthHandler struct {
	BaseHandler
	auth *identity.AuthService
}

func NewAuthHandler(auth *identity.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func loginName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register godoc
// @Summary      Register a customer account
// @Description  Creates an active CUSTOMER account. The company is submitted separately.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Account details"
// @Success      201 {object} dto.Response{data=identity.UserDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), identity.RegisterInput{
		Username:    loginName(req.Username),
		Email:       strings.TrimSpace(req.Email),
		Phone:       req.Phone,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	h.reply(c, http.StatusCreated, user, err)
}

// Login godoc
// @Summary      Password login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} dto.Response{data=identity.Session}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.auth.Login(c.Request.Context(), identity.LoginInput{
		Username: loginName(req.Username),
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	h.reply(c, http.StatusOK, session, err)
}

// WechatLogin godoc
// @Summary      Mini-program login
// @Description  Exchanges a wx.login code for tokens of the bound account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body WechatCodeRequest true "wx.login code"
// @Success      200 {object} dto.Response{data=identity.Session}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/wechat/login [post]
func (h *AuthHandler) WechatLogin(c *gin.Context) {
	var req WechatCodeRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.auth.WechatLogin(c.Request.Context(), identity.WechatLoginInput{Code: req.Code, IP: c.ClientIP()})
	h.reply(c, http.StatusOK, session, err)
}

// WechatBind godoc
// @Summary      Bind WeChat
// @Description  Binds the caller's account to the WeChat user behind the code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body WechatCodeRequest true "wx.login code"
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/wechat/bind [post]
func (h *AuthHandler) WechatBind(c *gin.Context) {
	var req WechatCodeRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.BindWechat(c.Request.Context(), actor(c), req.Code)
	h.reply(c, http.StatusOK, user, err)
}

// RefreshToken godoc
// @Summary      Refresh the session
// @Description  Role and company are re-read from the account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} dto.Response{data=identity.Session}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !h.bind(c, &req) {
		return
	}
	session, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	h.reply(c, http.StatusOK, session, err)
}

// Logout godoc
// @Summary      Logout
// @Description  Revokes the presented access token until it expires
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=MessageResponse}
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader(middleware.AuthHeaderKey), middleware.BearerPrefix)
	if !ok || token == "" {
		h.Unauthorized(c, "Authorization header is required")
		return
	}
	err := h.auth.Logout(c.Request.Context(), token)
	h.reply(c, http.StatusOK, MessageResponse{Message: "Logged out"}, err)
}

// GetProfile godoc
// @Summary      Current user profile
// @Tags         auth
// @Produce      json
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Security     BearerAuth
// @Router       /auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.auth.GetProfile(c.Request.Context(), actor(c))
	h.reply(c, http.StatusOK, user, err)
}

// UpdateProfile godoc
// @Summary      Update profile
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} dto.Response{data=identity.UserDTO}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.auth.UpdateProfile(c.Request.Context(), actor(c), identity.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Email:       strings.TrimSpace(req.Email),
		Phone:       req.Phone,
		Avatar:      req.Avatar,
	})
	h.reply(c, http.StatusOK, user, err)
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Every token issued before the change stops working.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} dto.Response{data=MessageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), actor(c), identity.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	h.reply(c, http.StatusOK, MessageResponse{Message: "Password changed"}, err)
}
