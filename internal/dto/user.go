package dto

// ── 用户模块 DTO ──

// CreateUserRequest 管理员创建用户
type CreateUserRequest struct {
	Name           string `json:"name"            binding:"required,min=2,max=100"`
	Email          string `json:"email"           binding:"required,email,max=255"`
	Password       string `json:"password"        binding:"required,min=8,max=72"`
	Role           string `json:"role"            binding:"required,oneof=ADMIN DOSEN MAHASISWA"`
	IdentityNumber string `json:"identity_number" binding:"required,nim"`
}

// UpdateUserRequest 更新用户信息请求
type UpdateUserRequest struct {
	Name           *string `json:"name"            binding:"omitempty,min=2,max=100"`
	Email          *string `json:"email"           binding:"omitempty,email,max=255"`
	Role           *string `json:"role"            binding:"omitempty,oneof=ADMIN DOSEN MAHASISWA"`
	IdentityNumber *string `json:"identity_number" binding:"omitempty,nim"`
	Password       *string `json:"password"        binding:"omitempty,min=8,max=72"` // 管理员重置密码
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=ADMIN DOSEN MAHASISWA"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}
