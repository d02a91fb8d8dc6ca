package dto

// ── 学期模块 DTO ──

// CreatePeriodRequest 创建学期请求
// 日期须满足 start_date < uts_date < uas_date <= end_date
type CreatePeriodRequest struct {
	Name      string `json:"name"       binding:"required,min=2,max=100"`
	StartDate string `json:"start_date" binding:"required,isodate"`
	EndDate   string `json:"end_date"   binding:"required,isodate"`
	UTSDate   string `json:"uts_date"   binding:"required,isodate"`
	UASDate   string `json:"uas_date"   binding:"required,isodate"`
}

// UpdatePeriodRequest 更新学期请求
type UpdatePeriodRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=2,max=100"`
	StartDate *string `json:"start_date" binding:"omitempty,isodate"`
	EndDate   *string `json:"end_date"   binding:"omitempty,isodate"`
	UTSDate   *string `json:"uts_date"   binding:"omitempty,isodate"`
	UASDate   *string `json:"uas_date"   binding:"omitempty,isodate"`
}

// PeriodResponse 学期信息响应
type PeriodResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	UTSDate   string `json:"uts_date"`
	UASDate   string `json:"uas_date"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// PeriodBrief 嵌入其它响应中的学期摘要
type PeriodBrief struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	UTSDate string `json:"uts_date"`
	UASDate string `json:"uas_date"`
}
