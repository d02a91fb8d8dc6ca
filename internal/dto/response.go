package dto

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	IdentityNumber     string `json:"identity_number"`
	Role               string `json:"role"`
	MustChangePassword bool   `json:"must_change_password"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// UserBrief 嵌入其它响应中的用户摘要
type UserBrief struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	IdentityNumber string `json:"identity_number"`
}

// ── 冲突明细 ──

// ConflictItem 与请求时间段重叠的已有条目
type ConflictItem struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // schedule | availability | session
	Label     string `json:"label"`
	DayOfWeek int    `json:"day_of_week"`
	Date      string `json:"date,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// Offset 计算偏移量
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
