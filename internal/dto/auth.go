package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求（login 为邮箱或 10 位 NIM / NIDN）
type LoginRequest struct {
	Login    string `json:"login"    binding:"required,max=255"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}
