package handler

// RegisterRequest is a customer self-registration
type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50" example:"acme.ops"`
	Email       string `json:"email" binding:"required,email,max=200"`
	Phone       string `json:"phone" binding:"omitempty,max=50"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,max=128"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// WechatCodeRequest carries a wx.login code
type WechatCodeRequest struct {
	Code string `json:"code" binding:"required,max=128"`
}

type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Phone       string `json:"phone" binding:"omitempty,max=50"`
	Avatar      string `json:"avatar" binding:"omitempty,max=500"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// CreateStaffRequest is used by admins to add ADMIN or OPERATOR accounts
type CreateStaffRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	Email       string `json:"email" binding:"required,email,max=200"`
	DisplayName string `json:"display_name" binding:"omitempty,max=100"`
	Role        string `json:"role" binding:"required,oneof=ADMIN OPERATOR"`
}

// MessageResponse confirms an action that has no resource to return
type MessageResponse struct {
	Message string `json:"message"`
}
