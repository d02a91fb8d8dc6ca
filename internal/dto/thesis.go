package dto

// ── 论文项目 DTO ──

// CreateThesisRequest 创建论文项目
type CreateThesisRequest struct {
	Judul      string   `json:"judul"       binding:"required,min=3,max=255"`
	Tipe       string   `json:"tipe"        binding:"required,oneof=TA1 TA2"`
	PeriodID   string   `json:"period_id"   binding:"required,uuid"`
	StudentID  string   `json:"student_id"  binding:"required,uuid"`
	AdvisorIDs []string `json:"advisor_ids" binding:"required,min=1,max=3,unique,dive,uuid"`
}

// UpdateThesisRequest 更新论文项目；advisor_ids 省略时不修改导师
type UpdateThesisRequest struct {
	Judul      *string  `json:"judul"       binding:"omitempty,min=3,max=255"`
	Tipe       *string  `json:"tipe"        binding:"omitempty,oneof=TA1 TA2"`
	PeriodID   *string  `json:"period_id"   binding:"omitempty,uuid"`
	StudentID  *string  `json:"student_id"  binding:"omitempty,uuid"`
	AdvisorIDs []string `json:"advisor_ids" binding:"omitempty,min=1,max=3,unique,dive,uuid"`
}

// ThesisListRequest 论文列表查询参数
type ThesisListRequest struct {
	PaginationRequest
	PeriodID string `form:"period_id" binding:"omitempty,uuid"`
}

// ThesisResponse 论文项目响应
type ThesisResponse struct {
	ID        string       `json:"id"`
	Judul     string       `json:"judul"`
	Tipe      string       `json:"tipe"`
	Period    *PeriodBrief `json:"period,omitempty"`
	Student   *UserBrief   `json:"student,omitempty"`
	Advisors  []UserBrief  `json:"advisors"`
	CreatedAt string       `json:"created_at"`
}
